package switchapi

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when the client id or secret is blank.
var ErrMissingCredentials = errors.New("switchapi: client id and secret are required")

// ErrMalformedBody wraps any failure to read a JSON body from the switch.
var ErrMalformedBody = errors.New("malformed JSON body")

// URIError reports a reference that cannot be used against the service base:
// it failed to parse, or it was absolute where a base-relative one is required
// (or the reverse).
type URIError struct {
	Ref    string
	Reason string
	Err    error
}

func (e *URIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid URI %q: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("invalid URI %q: %s", e.Ref, e.Reason)
}

func (e *URIError) Unwrap() error { return e.Err }

// TokenError means no bearer token could be obtained. It is not a designed
// failure of any workflow and ends the invocation.
type TokenError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return "switchapi: token request failed: " + e.Err.Error()
	}
	return "switchapi: token request failed: " + e.Status
}

func (e *TokenError) Unwrap() error { return e.Err }
