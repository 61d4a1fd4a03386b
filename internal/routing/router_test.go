package routing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"choiceview-connect/internal/audit"
	"choiceview-connect/internal/sms"
	"choiceview-connect/internal/switchapi"
	"choiceview-connect/internal/workflow"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/require"
)

type stubSwitch struct {
	resp *switchapi.Response
	err  error

	mu    sync.Mutex
	calls []string
}

func (s *stubSwitch) do(method, ref string) (*switchapi.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, method+" "+ref)
	s.mu.Unlock()
	return s.resp, s.err
}

func (s *stubSwitch) Get(_ context.Context, ref string) (*switchapi.Response, error) {
	return s.do(http.MethodGet, ref)
}

func (s *stubSwitch) Post(_ context.Context, ref string, _ any) (*switchapi.Response, error) {
	return s.do(http.MethodPost, ref)
}

func (s *stubSwitch) Delete(_ context.Context, ref string) (*switchapi.Response, error) {
	return s.do(http.MethodDelete, ref)
}

func (s *stubSwitch) MakeRelative(href string) (string, error) { return href, nil }

type stubBackend struct {
	name string
}

func (b stubBackend) Name() string       { return b.name }
func (b stubBackend) Policy() sms.Policy { return sms.Policy{} }

func (b stubBackend) LookupNumberType(context.Context, string) (string, error) {
	return "mobile", nil
}

func (b stubBackend) Send(context.Context, sms.Message) (bool, error) { return true, nil }

type recorder struct {
	err  error
	invs []Invocation
}

func (r *recorder) RecordInvocation(_ context.Context, inv Invocation) error {
	r.invs = append(r.invs, inv)
	return r.err
}

func event(requestName string) *workflow.ContactEvent {
	return workflow.MustParseContactEvent(`{"Details":{
		"ContactData":{"ContactId":"contact-1","Attributes":{"SessionUrl":"session/42"},
			"CustomerEndpoint":{"Address":"+17202950840","Type":"TELEPHONE_NUMBER"},
			"SystemEndpoint":{"Address":"+13035551212","Type":"TELEPHONE_NUMBER"}},
		"Parameters":{"RequestName":"` + requestName + `","SmsMessage":"Hello"}}}`)
}

func okSwitch() *stubSwitch {
	return &stubSwitch{resp: &switchapi.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"}}
}

func TestRouter_UnknownRequest(t *testing.T) {
	rec := &recorder{}
	rt := NewRouter(Backends{Switch: okSwitch(), Sms: stubBackend{name: "twilio"}}, WithRecorder(rec))

	r, err := rt.Route(context.Background(), event("Bogus"))
	require.NoError(t, err)
	require.Equal(t, []string{workflow.KeyLambdaResult, workflow.KeyFailureReason}, r.Keys())
	require.False(t, r.LambdaResult())
	require.Equal(t, "Unknown request", r.FailureReason())

	require.Len(t, rec.invs, 1)
	require.Equal(t, audit.OutcomeUnknown, rec.invs[0].Outcome)
	require.Equal(t, "Bogus", rec.invs[0].RequestName)
}

func TestRouter_MissingRequestName(t *testing.T) {
	rec := &recorder{}
	rt := NewRouter(Backends{}, WithRecorder(rec))

	r, err := rt.Route(context.Background(), workflow.MustParseContactEvent(`{}`))
	require.NoError(t, err)
	require.Equal(t, "Unknown request", r.FailureReason())
	require.Equal(t, "(null)", rec.invs[0].RequestName)
}

func TestRouter_Unavailable(t *testing.T) {
	cases := []struct {
		name     string
		backends Backends
		request  string
		want     string
	}{
		{"no switch", Backends{Sms: stubBackend{name: "twilio"}}, workflow.RequestGetSession, "Not connected to ChoiceView."},
		{"nothing", Backends{}, workflow.RequestSendSms, "Not connected to ChoiceView."},
		{"no sms", Backends{Switch: okSwitch()}, workflow.RequestSendSms, "Not connected to Twilio."},
		{"no sms for lookup", Backends{Switch: okSwitch()}, workflow.RequestGetPhoneNumberType, "Not connected to Twilio."},
		{"sms invite without sms", Backends{Switch: okSwitch()}, workflow.RequestCreateSessionWithSms, "Not connected to Twilio."},
		{"sms invite without switch", Backends{Sms: stubBackend{name: "aws"}}, workflow.RequestCreateSessionWithSms, "Not connected to ChoiceView."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			r, err := NewRouter(tc.backends, WithRecorder(rec)).Route(context.Background(), event(tc.request))
			require.NoError(t, err)
			require.False(t, r.LambdaResult())
			require.Equal(t, tc.want, r.FailureReason())
			require.Equal(t, audit.OutcomeUnavailable, rec.invs[0].Outcome)
		})
	}
}

func TestRouter_DispatchesToWorkflow(t *testing.T) {
	sw := okSwitch()
	rec := &recorder{}
	rt := NewRouter(Backends{Switch: sw}, WithRecorder(rec))

	r, err := rt.Route(context.Background(), event(workflow.RequestGetSession))
	require.NoError(t, err)
	require.True(t, r.LambdaResult())
	v, ok := r.Get(workflow.KeySessionStatus)
	require.True(t, ok)
	require.Equal(t, "disconnected", v.Str())
	require.Equal(t, []string{"GET session/42"}, sw.calls)

	require.Equal(t, audit.OutcomeHandled, rec.invs[0].Outcome)
	require.Equal(t, "contact-1", rec.invs[0].ContactID)
	require.Same(t, r, rec.invs[0].Result)
}

func TestRouter_SmsRequests(t *testing.T) {
	rt := NewRouter(Backends{Switch: okSwitch(), Sms: stubBackend{name: "twilio"}})
	require.True(t, rt.SwitchConnected())
	require.Equal(t, "twilio", rt.SmsBackend())

	r, err := rt.Route(context.Background(), event(workflow.RequestSendSms))
	require.NoError(t, err)
	require.True(t, r.LambdaResult())

	r, err = rt.Route(context.Background(), event(workflow.RequestGetPhoneNumberType))
	require.NoError(t, err)
	v, _ := r.Get(workflow.KeyNumberType)
	require.Equal(t, "mobile", v.Str())
}

func TestRouter_Status(t *testing.T) {
	rt := NewRouter(Backends{})
	require.False(t, rt.SwitchConnected())
	require.Equal(t, "none", rt.SmsBackend())
}

func TestRouter_PropagatesUnclassifiedErrors(t *testing.T) {
	tokenErr := &switchapi.TokenError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}
	rec := &recorder{}
	rt := NewRouter(Backends{Switch: &stubSwitch{err: tokenErr}}, WithRecorder(rec))

	r, err := rt.Route(context.Background(), event(workflow.RequestGetSession))
	require.Nil(t, r)
	require.ErrorIs(t, err, tokenErr)
	require.Equal(t, audit.OutcomeError, rec.invs[0].Outcome)
	require.ErrorIs(t, rec.invs[0].Err, tokenErr)
}

func TestRouter_RecorderFailureKeepsResult(t *testing.T) {
	rt := NewRouter(Backends{Switch: okSwitch()}, WithRecorder(&recorder{err: errors.New("db down")}))

	r, err := rt.Route(context.Background(), event(workflow.RequestGetSession))
	require.NoError(t, err)
	require.True(t, r.LambdaResult())
}

func TestRouter_HandleRejectsMalformedEvent(t *testing.T) {
	rt := NewRouter(Backends{})
	_, err := rt.Handle(context.Background(), []byte(`[1,2]`))
	require.ErrorIs(t, err, workflow.ErrMalformedEvent)

	r, err := rt.Handle(context.Background(), []byte(`{"Details":{"Parameters":{"RequestName":"Nope"}}}`))
	require.NoError(t, err)
	require.Equal(t, "Unknown request", r.FailureReason())
}

func TestAuditAdapter_RecordsInvocation(t *testing.T) {
	repo := audit.NewMemoryRepo()
	rt := NewRouter(Backends{Switch: okSwitch()}, WithRecorder(AuditAdapter{Audit: audit.NewService(repo)}))

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: "req-7"})
	_, err := rt.Route(ctx, event(workflow.RequestEndSession))
	require.NoError(t, err)

	evs := repo.Events()
	require.Len(t, evs, 1)
	require.Equal(t, "EndSession", evs[0].RequestName)
	require.Equal(t, audit.OutcomeHandled, evs[0].Outcome)
	require.Equal(t, "203.0.113.9", evs[0].IPAddress)
	require.Equal(t, "req-7", evs[0].AWSRequestID)
	require.False(t, evs[0].LambdaResult)
	require.Equal(t, http.StatusNotFound, evs[0].StatusCode)
	require.Equal(t, "Not Found", evs[0].FailureReason)
	require.NotEmpty(t, evs[0].ID)
}

func TestAuditAdapter_NilServiceIsNoop(t *testing.T) {
	require.NoError(t, AuditAdapter{}.RecordInvocation(context.Background(), Invocation{}))
}

func TestClientIPFromContext(t *testing.T) {
	require.Equal(t, "", ClientIPFromContext(context.Background()))
	require.Equal(t, context.Background(), WithClientIP(context.Background(), ""))
	require.Equal(t, "10.1.1.1", ClientIPFromContext(WithClientIP(context.Background(), "10.1.1.1")))
}
