package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"choiceview-connect/internal/switchapi"
	"choiceview-connect/pkg/logger"
)

// Failure prefixes identifying the category of a local error.
const (
	prefixRequest  = "Error occurred when making API request - "
	prefixArgument = "Argument error - "
	prefixEvent    = "Error reading the Connect event - "

	prefixSessionURI        = "Bad session uri - "
	prefixQueryURI          = "Bad query uri - "
	prefixTransferURI       = "Bad transfer session uri - "
	prefixControlMessageURI = "Bad control message uri - "
	prefixPropertiesURI     = "Bad properties uri - "
)

// Missing-input reasons.
const (
	reasonNoCallerID          = "no caller id found"
	reasonNoSessionURL        = "No session url parameter"
	reasonNoClientURL         = "No client url parameter"
	reasonNoAccountID         = "No account id parameter"
	reasonNoControlMessageURL = "No control message url parameter"
	reasonNoPropertiesURL     = "No properties url attribute"
	reasonNoPropertyName      = "No property name parameter"
)

// requestFailed records a non-success reply from the switch. A 404 on a
// session-scoped resource means the session has already ended.
func requestFailed(ctx context.Context, name string, r *Result, resp *switchapi.Response) {
	msg := resp.FailureMessage()
	r.SetString(KeyFailureReason, msg)
	r.SetInt(KeyStatusCode, resp.StatusCode)
	r.SetBool(KeyTimeout, resp.StatusCode == http.StatusRequestTimeout)
	if resp.StatusCode == http.StatusNotFound {
		r.SetString(KeySessionStatus, "disconnected")
	}
	logger.From(ctx).Warn(name+" - request failed", "status", resp.StatusCode, "reason", msg)
}

// classifyError converts the designed local failures into a failed result
// and returns nil. Anything else, including a failure to obtain a bearer
// token, is returned unchanged for the caller to propagate.
func classifyError(ctx context.Context, name string, r *Result, err error, uriPrefix string) error {
	prefix, ok := errorPrefix(err, uriPrefix)
	if !ok {
		return err
	}
	reason := prefix + err.Error()
	logger.From(ctx).Warn(name+" - "+reason, "err", err)
	r.Fail(reason)
	return nil
}

func errorPrefix(err error, uriPrefix string) (string, bool) {
	var tokenErr *switchapi.TokenError
	if errors.As(err, &tokenErr) {
		return "", false
	}

	var uriErr *switchapi.URIError
	if errors.As(err, &uriErr) {
		return uriPrefix, true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, ErrMalformedEvent) || errors.Is(err, switchapi.ErrMalformedBody) ||
		errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return prefixEvent, true
	}

	if errors.Is(err, ErrInvalidArgument) {
		return prefixArgument, true
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return prefixRequest, true
	}
	return "", false
}

// missing reports a blank required input without calling out.
func missing(ctx context.Context, name string, reason string) *Result {
	logger.From(ctx).Info(name + " - " + reason)
	return Failed(reason)
}

// addProperties flattens session properties into the result.
func addProperties(r *Result, props switchapi.Properties) error {
	return props.Each(func(k, v string) {
		r.SetString(k, v)
	})
}

// sessionLinks names the result key for each link relation handed back to
// the contact flow.
var sessionLinks = []struct{ rel, key string }{
	{switchapi.RelSelf, KeySessionURL},
	{switchapi.RelProperties, KeyPropertiesURL},
	{switchapi.RelControlMessage, KeyControlMessageURL},
}

// addSession maps the session links to base-relative urls, then its properties.
func addSession(r *Result, sw Switch, s *switchapi.SessionResource) error {
	for _, l := range sessionLinks {
		href, ok := s.Href(l.rel)
		if !ok {
			continue
		}
		rel, err := sw.MakeRelative(href)
		if err != nil {
			return err
		}
		r.SetString(l.key, rel)
	}
	return addProperties(r, s.Properties)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func logResult(ctx context.Context, name string, r *Result) {
	logger.From(ctx).Debug(name+" - result", "result", r)
}
