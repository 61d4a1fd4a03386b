package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"choiceview-connect/internal/switchapi"
	"choiceview-connect/internal/telephony"
	"choiceview-connect/pkg/logger"
)

// SessionConnectTimeout bounds how long QuerySession waits for a caller to
// connect the client before reporting a timeout.
const SessionConnectTimeout = 90 * time.Second

// CreateSession asks the switch for a session for the current caller. With an
// SMS step attached it first texts the caller a link to the client.
type CreateSession struct {
	sw   Switch
	sms  Workflow
	name string
	now  func() time.Time
}

func NewCreateSession(sw Switch) *CreateSession {
	return &CreateSession{sw: sw, name: RequestCreateSession, now: time.Now}
}

// NewCreateSessionWithSms runs sendSms before creating the session and
// records whether it succeeded as SmsSent. The SMS outcome never stops
// session creation.
func NewCreateSessionWithSms(sw Switch, sendSms Workflow) *CreateSession {
	return &CreateSession{sw: sw, sms: sendSms, name: RequestCreateSessionWithSms, now: time.Now}
}

func (w *CreateSession) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	customer := ev.CustomerEndpoint()
	if !telephony.IsTelephone(customer.Type) || blank(customer.Address) {
		return missing(ctx, w.name, reasonNoCallerID), nil
	}

	req := switchapi.NewSessionRequest{
		CallerID:        telephony.SwitchCallerID(customer.Address),
		CallID:          ev.ContactID(),
		ImmediateReturn: true,
	}
	log := logger.From(ctx)
	log.Info(w.name+" request", "caller_id", req.CallerID)

	r := NewResult()
	if w.sms != nil {
		log.Info(w.name + " - attempt to send SMS with client url")
		smsResult, err := w.sms.Process(ctx, ev)
		if err != nil {
			return nil, err
		}
		r.SetBool(KeySmsSent, smsResult.LambdaResult())
	}

	if err := w.create(ctx, r, req); err != nil {
		if err := classifyError(ctx, w.name, r, err, prefixSessionURI); err != nil {
			return nil, err
		}
	}
	logResult(ctx, w.name, r)
	return r, nil
}

func (w *CreateSession) create(ctx context.Context, r *Result, req switchapi.NewSessionRequest) error {
	resp, err := w.sw.Post(ctx, "sessions", req)
	if err != nil {
		return err
	}
	r.SetBool(KeyLambdaResult, resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusCreated)

	switch resp.StatusCode {
	case http.StatusAccepted:
		var started struct {
			QueryURL string `json:"QueryUrl"`
		}
		if err := resp.Decode(&started); err != nil {
			return err
		}
		if blank(started.QueryURL) {
			return fmt.Errorf("%w: QueryUrl missing", ErrInvalidArgument)
		}
		r.SetTime(KeyConnectStartTime, w.now())
		rel, err := w.sw.MakeRelative(started.QueryURL)
		if err != nil {
			return err
		}
		r.SetString(KeyQueryURL, rel)
		logger.From(ctx).Info(w.name+" - session create started, return immediately", "query_url", rel)
	case http.StatusCreated:
		var session switchapi.SessionResource
		if err := resp.Decode(&session); err != nil {
			return err
		}
		if err := addSession(r, w.sw, &session); err != nil {
			return err
		}
		r.SetString(KeySessionStatus, session.Status)
		logger.From(ctx).Info(w.name+" - session created", "session_id", session.SessionID)
	default:
		requestFailed(ctx, w.name, r, resp)
	}
	return nil
}

// GetSession reads the current session state. A 404 is a normal answer:
// the caller has disconnected.
type GetSession struct {
	sw Switch
}

func NewGetSession(sw Switch) *GetSession { return &GetSession{sw: sw} }

func (w *GetSession) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestGetSession
	sessionURL := ev.Attribute("SessionUrl")
	if blank(sessionURL) {
		return missing(ctx, name, reasonNoSessionURL), nil
	}
	logger.From(ctx).Info(name+" request", "session_url", sessionURL)

	r := NewResult()
	err := func() error {
		resp, err := w.sw.Get(ctx, sessionURL)
		if err != nil {
			return err
		}
		r.SetBool(KeyLambdaResult, resp.IsSuccess() || resp.StatusCode == http.StatusNotFound)

		switch {
		case resp.StatusCode == http.StatusOK:
			var session switchapi.SessionResource
			if err := resp.Decode(&session); err != nil {
				return err
			}
			r.SetString(KeySessionStatus, session.Status)
			return addProperties(r, session.Properties)
		case resp.IsSuccess():
			logger.From(ctx).Info(name+" - no session information received", "status", resp.StatusCode)
			r.SetString(KeySessionStatus, "")
			r.SetInt(KeyStatusCode, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			logger.From(ctx).Info(name + " - session not found, assume disconnected")
			r.SetString(KeySessionStatus, "disconnected")
		default:
			requestFailed(ctx, name, r, resp)
		}
		return nil
	}()
	if err != nil {
		if err := classifyError(ctx, name, r, err, prefixSessionURI); err != nil {
			return nil, err
		}
	}
	logResult(ctx, name, r)
	return r, nil
}

// QuerySession polls for the session started by an immediate-return
// CreateSession. The flow re-invokes it until the session is retrieved or
// SessionTimeout is reported.
type QuerySession struct {
	sw  Switch
	now func() time.Time
}

func NewQuerySession(sw Switch) *QuerySession { return &QuerySession{sw: sw, now: time.Now} }

func (w *QuerySession) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestQuerySession
	callID := ev.ContactID()
	queryURL := ev.Attribute("QueryUrl")
	if blank(queryURL) {
		queryURL = "sessions?callid=" + url.QueryEscape(callID)
	}
	logger.From(ctx).Info(name+" request", "call_id", callID, "query_url", queryURL)

	r := NewResult()
	err := func() error {
		started, err := parseStartTime(ev.Attribute("ConnectStartTime"))
		if err != nil {
			return err
		}

		resp, err := w.sw.Get(ctx, queryURL)
		if err != nil {
			return err
		}

		switch {
		case resp.IsSuccess():
			var session switchapi.SessionResource
			if err := resp.Decode(&session); err != nil {
				return err
			}
			if err := addSession(r, w.sw, &session); err != nil {
				return err
			}
			r.SetBool(KeyLambdaResult, true)
			r.SetBool(KeySessionRetrieved, true)
			r.SetBool(KeySessionTimeout, false)
			r.SetString(KeySessionStatus, session.Status)
			logger.From(ctx).Info(name+" - session found", "session_id", session.SessionID)
		case resp.StatusCode == http.StatusNotFound:
			r.SetBool(KeyLambdaResult, true)
			r.SetBool(KeySessionRetrieved, false)
			r.SetBool(KeySessionTimeout, w.now().Sub(started) > SessionConnectTimeout)
		default:
			r.SetBool(KeyLambdaResult, false)
			requestFailed(ctx, name, r, resp)
		}
		return nil
	}()
	if err != nil {
		if err := classifyError(ctx, name, r, err, prefixQueryURI); err != nil {
			return nil, err
		}
	}
	logResult(ctx, name, r)
	return r, nil
}

// Layouts accepted for ConnectStartTime. The first is what CreateSession
// emits; the others cover values set by older flows.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
}

func parseStartTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: ConnectStartTime is required", ErrInvalidArgument)
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: ConnectStartTime %q is not a timestamp", ErrInvalidArgument, raw)
}

// EndSession disconnects the session.
type EndSession struct {
	sw Switch
}

func NewEndSession(sw Switch) *EndSession { return &EndSession{sw: sw} }

func (w *EndSession) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestEndSession
	sessionURL := ev.Attribute("SessionUrl")
	if blank(sessionURL) {
		return missing(ctx, name, reasonNoSessionURL), nil
	}
	logger.From(ctx).Info(name+" request", "session_url", sessionURL)

	r := NewResult()
	resp, err := w.sw.Delete(ctx, sessionURL)
	if err != nil {
		if err := classifyError(ctx, name, r, err, prefixSessionURI); err != nil {
			return nil, err
		}
	} else {
		r.SetBool(KeyLambdaResult, resp.IsSuccess())
		if resp.IsSuccess() {
			r.SetString(KeySessionStatus, "disconnected")
		} else {
			requestFailed(ctx, name, r, resp)
		}
	}
	logResult(ctx, name, r)
	return r, nil
}
