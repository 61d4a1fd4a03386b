package workflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"choiceview-connect/internal/sms"
	"choiceview-connect/internal/switchapi"

	"github.com/stretchr/testify/require"
)

type workflowFunc func(ctx context.Context, ev *ContactEvent) (*Result, error)

func (f workflowFunc) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	return f(ctx, ev)
}

// recordedRequest is what the fake switch saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeSwitch struct {
	t      *testing.T
	srv    *httptest.Server
	client *switchapi.Client

	mu       sync.Mutex
	requests []recordedRequest
}

// newFakeSwitch serves status and body for every request.
func newFakeSwitch(t *testing.T, status int, body string) *fakeSwitch {
	return newFakeSwitchFunc(t, func(w http.ResponseWriter, _ *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func newFakeSwitchFunc(t *testing.T, h http.HandlerFunc) *fakeSwitch {
	t.Helper()
	fs := &fakeSwitch{t: t}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(b)})
		fs.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(fs.srv.Close)

	c, err := switchapi.NewClient(fs.srv.URL+"/ivr/api/", switchapi.WithHTTPClient(fs.srv.Client()))
	require.NoError(t, err)
	fs.client = c
	return fs
}

// href builds an absolute switch url for a path below the api base.
func (fs *fakeSwitch) href(rel string) string {
	return fs.srv.URL + "/ivr/api/" + rel
}

func (fs *fakeSwitch) calls() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func (fs *fakeSwitch) requireNoCalls() {
	fs.t.Helper()
	require.Empty(fs.t, fs.calls())
}

func (fs *fakeSwitch) requireOneCall(method, path string) recordedRequest {
	fs.t.Helper()
	calls := fs.calls()
	require.Len(fs.t, calls, 1)
	require.Equal(fs.t, method, calls[0].Method)
	require.Equal(fs.t, path, calls[0].Path)
	return calls[0]
}

type eventFields struct {
	RequestName string
	Params      map[string]any
	Attributes  map[string]any
	ContactID   string
	Customer    *Endpoint
	System      *Endpoint
}

func phone(addr string) *Endpoint {
	return &Endpoint{Address: addr, Type: "TELEPHONE_NUMBER"}
}

func buildEvent(t *testing.T, f eventFields) *ContactEvent {
	t.Helper()
	params := map[string]any{}
	for k, v := range f.Params {
		params[k] = v
	}
	if f.RequestName != "" {
		params["RequestName"] = f.RequestName
	}
	contact := map[string]any{
		"ContactId":  f.ContactID,
		"Attributes": f.Attributes,
	}
	if f.Attributes == nil {
		contact["Attributes"] = map[string]any{}
	}
	if f.Customer != nil {
		contact["CustomerEndpoint"] = map[string]string{"Address": f.Customer.Address, "Type": f.Customer.Type}
	}
	if f.System != nil {
		contact["SystemEndpoint"] = map[string]string{"Address": f.System.Address, "Type": f.System.Type}
	}
	doc := map[string]any{
		"Name": "ContactFlowEvent",
		"Details": map[string]any{
			"ContactData": contact,
			"Parameters":  params,
		},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	ev, err := ParseContactEvent(b)
	require.NoError(t, err)
	return ev
}

func process(t *testing.T, w Workflow, ev *ContactEvent) *Result {
	t.Helper()
	r, err := w.Process(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func requireKeys(t *testing.T, r *Result, keys ...string) {
	t.Helper()
	require.Equal(t, keys, r.Keys())
}

func requireString(t *testing.T, r *Result, key, want string) {
	t.Helper()
	v, ok := r.Get(key)
	require.True(t, ok, "missing key %s", key)
	require.Equal(t, KindString, v.Kind(), key)
	require.Equal(t, want, v.Str(), key)
}

func requireBool(t *testing.T, r *Result, key string, want bool) {
	t.Helper()
	v, ok := r.Get(key)
	require.True(t, ok, "missing key %s", key)
	require.Equal(t, KindBool, v.Kind(), key)
	require.Equal(t, want, v.Bool(), key)
}

type fakeBackend struct {
	name         string
	reportErrors bool

	numberType string
	lookupErr  error
	delivered  bool
	sendErr    error

	lookups []string
	sent    []sms.Message
}

func twilioLike() *fakeBackend {
	return &fakeBackend{name: "twilio", numberType: "mobile", delivered: true}
}

func awsLike() *fakeBackend {
	return &fakeBackend{name: "aws", reportErrors: true, numberType: "MOBILE", delivered: true}
}

func (f *fakeBackend) Name() string       { return f.name }
func (f *fakeBackend) Policy() sms.Policy { return sms.Policy{ReportErrors: f.reportErrors} }

func (f *fakeBackend) LookupNumberType(_ context.Context, number string) (string, error) {
	f.lookups = append(f.lookups, number)
	return f.numberType, f.lookupErr
}

func (f *fakeBackend) Send(_ context.Context, msg sms.Message) (bool, error) {
	f.sent = append(f.sent, msg)
	return f.delivered, f.sendErr
}
