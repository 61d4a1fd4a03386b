package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

var (
	// ErrMalformedEvent means the contact event is not a JSON object.
	ErrMalformedEvent = errors.New("malformed contact event")
	// ErrInvalidArgument marks an event field whose value cannot be used.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Endpoint is a customer or system address from the contact data.
type Endpoint struct {
	Address string
	Type    string
}

// ContactEvent is the read-only document the contact flow sends with each
// invocation. Missing paths read as absent, never as errors.
type ContactEvent struct {
	raw []byte
}

func ParseContactEvent(data []byte) (*ContactEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return nil, ErrMalformedEvent
	}
	return &ContactEvent{raw: []byte(trimmed)}, nil
}

// MustParseContactEvent is for fixtures known to be valid.
func MustParseContactEvent(data string) *ContactEvent {
	ev, err := ParseContactEvent([]byte(data))
	if err != nil {
		panic(err)
	}
	return ev
}

func (e *ContactEvent) MarshalJSON() ([]byte, error) {
	return e.raw, nil
}

// Lookup reads a scalar at path. Strings are unescaped and other scalars keep
// their JSON text; null, objects, arrays and missing paths are not found.
func (e *ContactEvent) Lookup(path ...string) (string, bool) {
	v, dt, _, err := jsonparser.Get(e.raw, path...)
	if err != nil {
		return "", false
	}
	switch dt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return "", false
		}
		return s, true
	case jsonparser.Number, jsonparser.Boolean:
		return string(v), true
	default:
		return "", false
	}
}

func (e *ContactEvent) get(path ...string) string {
	v, _ := e.Lookup(path...)
	return v
}

func (e *ContactEvent) RequestName() string {
	return e.get("Details", "Parameters", "RequestName")
}

func (e *ContactEvent) Parameter(name string) string {
	return e.get("Details", "Parameters", name)
}

// OptionalParameter distinguishes a missing or null parameter from an empty one.
func (e *ContactEvent) OptionalParameter(name string) (string, bool) {
	return e.Lookup("Details", "Parameters", name)
}

func (e *ContactEvent) Attribute(name string) string {
	return e.get("Details", "ContactData", "Attributes", name)
}

func (e *ContactEvent) ContactID() string {
	return e.get("Details", "ContactData", "ContactId")
}

func (e *ContactEvent) CustomerEndpoint() Endpoint {
	return e.endpoint("CustomerEndpoint")
}

func (e *ContactEvent) SystemEndpoint() Endpoint {
	return e.endpoint("SystemEndpoint")
}

func (e *ContactEvent) endpoint(name string) Endpoint {
	return Endpoint{
		Address: e.get("Details", "ContactData", name, "Address"),
		Type:    e.get("Details", "ContactData", name, "Type"),
	}
}

// BoolParameter accepts a JSON boolean or a boolean string. A missing or null
// parameter is false.
func (e *ContactEvent) BoolParameter(name string) (bool, error) {
	v, dt, _, err := jsonparser.Get(e.raw, "Details", "Parameters", name)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, name, err)
	}
	switch dt {
	case jsonparser.Null:
		return false, nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(v)
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, name, err)
		}
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidArgument, name, s)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgument, name)
	}
}
