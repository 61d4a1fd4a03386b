package switchapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
)

// Response is a fully read switch reply. Bodies are small JSON documents, so
// the transport reads them eagerly and releases the connection.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ReasonPhrase is the textual part of the status line.
func (r *Response) ReasonPhrase() string {
	if _, reason, ok := strings.Cut(r.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(r.StatusCode)
}

// FailureMessage prefers the "message" member of a JSON error body and falls
// back to the reason phrase.
func (r *Response) FailureMessage() string {
	msg, err := jsonparser.GetString(r.Body, "message")
	if err != nil || strings.TrimSpace(msg) == "" {
		return r.ReasonPhrase()
	}
	return msg
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
