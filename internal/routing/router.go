package routing

import (
	"context"
	"fmt"
	"time"

	"choiceview-connect/internal/audit"
	"choiceview-connect/internal/sms"
	"choiceview-connect/internal/workflow"
	"choiceview-connect/pkg/logger"
)

const (
	reasonUnknownRequest   = "Unknown request"
	reasonSwitchMissing    = "Not connected to ChoiceView."
	reasonMessagingMissing = "Not connected to Twilio."

	// nullRequestName stands in for an event without a request name.
	nullRequestName = "(null)"
)

// Backends are the collaborators a Router dispatches to. A nil field means the
// backend is not connected; requests that need it are answered with a canned
// failure instead.
type Backends struct {
	Switch workflow.Switch
	Sms    sms.Backend

	// SmsFrom overrides the contact's system endpoint as the SMS sender.
	SmsFrom string
	// ClientURL is the deep-link base for session invitations.
	ClientURL string
}

// Invocation summarizes one routed event for the audit hook.
type Invocation struct {
	RequestName string
	ContactID   string
	Outcome     audit.Outcome
	Result      *workflow.Result
	Err         error
	Duration    time.Duration
}

// InvocationRecorder receives one record per routed event. Failures are
// logged and never change the result.
type InvocationRecorder interface {
	RecordInvocation(ctx context.Context, inv Invocation) error
}

// Router maps request names to workflows. It is built once per process and
// is safe for concurrent use.
type Router struct {
	handlers map[string]workflow.Workflow
	switchOK bool
	smsName  string
	recorder InvocationRecorder
	now      func() time.Time
}

type Option func(*Router)

func WithRecorder(rec InvocationRecorder) Option {
	return func(rt *Router) { rt.recorder = rec }
}

func NewRouter(b Backends, opts ...Option) *Router {
	rt := &Router{
		handlers: make(map[string]workflow.Workflow),
		switchOK: b.Switch != nil,
		smsName:  "none",
		now:      time.Now,
	}

	if b.Switch != nil {
		rt.handlers[workflow.RequestCreateSession] = workflow.NewCreateSession(b.Switch)
		rt.handlers[workflow.RequestGetSession] = workflow.NewGetSession(b.Switch)
		rt.handlers[workflow.RequestQuerySession] = workflow.NewQuerySession(b.Switch)
		rt.handlers[workflow.RequestEndSession] = workflow.NewEndSession(b.Switch)
		rt.handlers[workflow.RequestSendURL] = workflow.NewSendURL(b.Switch)
		rt.handlers[workflow.RequestTransferSession] = workflow.NewTransferSession(b.Switch)
		rt.handlers[workflow.RequestGetControlMessage] = workflow.NewGetControlMessage(b.Switch)
		rt.handlers[workflow.RequestClearControlMessage] = workflow.NewClearControlMessage(b.Switch)
		rt.handlers[workflow.RequestAddProperty] = workflow.NewAddProperty(b.Switch)
		rt.handlers[workflow.RequestGetProperties] = workflow.NewGetProperties(b.Switch)
	}
	if b.Sms != nil {
		rt.smsName = b.Sms.Name()
		sendSms := workflow.NewSendSms(b.Sms, b.SmsFrom, b.ClientURL)
		rt.handlers[workflow.RequestSendSms] = sendSms
		rt.handlers[workflow.RequestGetPhoneNumberType] = workflow.NewGetPhoneNumberType(b.Sms)
		if b.Switch != nil {
			rt.handlers[workflow.RequestCreateSessionWithSms] = workflow.NewCreateSessionWithSms(b.Switch, sendSms)
		}
	}

	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// SwitchConnected reports whether switch requests can be served.
func (rt *Router) SwitchConnected() bool { return rt.switchOK }

// SmsBackend names the connected SMS backend, or "none".
func (rt *Router) SmsBackend() string { return rt.smsName }

// Handle parses a raw contact-flow event and routes it. An event that is not
// a JSON object fails the invocation.
func (rt *Router) Handle(ctx context.Context, payload []byte) (*workflow.Result, error) {
	ev, err := workflow.ParseContactEvent(payload)
	if err != nil {
		logger.From(ctx).Error("cannot read connect event", "err", err)
		return nil, fmt.Errorf("routing: %w", err)
	}
	return rt.Route(ctx, ev)
}

// Route dispatches ev to the workflow named by its RequestName parameter.
// Only errors the workflow could not turn into a result are returned.
func (rt *Router) Route(ctx context.Context, ev *workflow.ContactEvent) (*workflow.Result, error) {
	started := rt.now()

	name := ev.RequestName()
	if name == "" {
		name = nullRequestName
	}
	log := logger.ForInvocation(ctx, logger.From(ctx), name, ev.ContactID())
	ctx = logger.With(ctx, log)
	log.Debug("connect event", "event", ev)

	result, outcome, err := rt.dispatch(ctx, name, ev)
	if err != nil {
		log.Error(name+" failed", "err", err)
	}

	rt.record(ctx, Invocation{
		RequestName: name,
		ContactID:   ev.ContactID(),
		Outcome:     outcome,
		Result:      result,
		Err:         err,
		Duration:    rt.now().Sub(started),
	})
	return result, err
}

func (rt *Router) dispatch(ctx context.Context, name string, ev *workflow.ContactEvent) (*workflow.Result, audit.Outcome, error) {
	if w, ok := rt.handlers[name]; ok {
		r, err := w.Process(ctx, ev)
		if err != nil {
			return nil, audit.OutcomeError, err
		}
		return r, audit.OutcomeHandled, nil
	}

	if isKnownRequest(name) {
		reason := reasonMessagingMissing
		if !rt.switchOK {
			reason = reasonSwitchMissing
		}
		logger.From(ctx).Warn(name+" - backend not connected", "reason", reason)
		return workflow.Failed(reason), audit.OutcomeUnavailable, nil
	}

	logger.From(ctx).Warn("Unknown request " + name)
	return workflow.Failed(reasonUnknownRequest), audit.OutcomeUnknown, nil
}

func (rt *Router) record(ctx context.Context, inv Invocation) {
	if rt.recorder == nil {
		return
	}
	if err := rt.recorder.RecordInvocation(ctx, inv); err != nil {
		logger.From(ctx).Warn("audit record failed", "err", err)
	}
}

func isKnownRequest(name string) bool {
	switch name {
	case workflow.RequestCreateSession,
		workflow.RequestCreateSessionWithSms,
		workflow.RequestGetSession,
		workflow.RequestQuerySession,
		workflow.RequestEndSession,
		workflow.RequestSendURL,
		workflow.RequestTransferSession,
		workflow.RequestGetControlMessage,
		workflow.RequestClearControlMessage,
		workflow.RequestAddProperty,
		workflow.RequestGetProperties,
		workflow.RequestGetPhoneNumberType,
		workflow.RequestSendSms:
		return true
	default:
		return false
	}
}
