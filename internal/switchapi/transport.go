package switchapi

import (
	"net/http"
	"strings"
)

const bearerScheme = "Bearer"

// bearerTransport fills in the token for requests that carry an
// Authorization header. Requests without one are sent untouched.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	auth := req.Header.Get("Authorization")
	if auth == "" {
		return t.transport().RoundTrip(req)
	}

	token, err := t.tokens.Token(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	scheme, _, _ := strings.Cut(auth, " ")
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", scheme+" "+token)
	return t.transport().RoundTrip(out)
}

func (t *bearerTransport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}
