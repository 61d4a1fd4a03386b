// Package workflow implements the request handlers behind the contact-flow
// dispatcher. Each handler reads a few fields of a ContactEvent, makes at most
// a couple of calls to the switch or the SMS provider, and answers with a flat
// Result. Designed failures are reported in the Result; only errors outside
// that surface are returned.
package workflow

import (
	"context"

	"choiceview-connect/internal/switchapi"
)

// Request names understood by the dispatcher.
const (
	RequestCreateSession        = "CreateSession"
	RequestCreateSessionWithSms = "CreateSessionWithSms"
	RequestGetSession           = "GetSession"
	RequestQuerySession         = "QuerySession"
	RequestEndSession           = "EndSession"
	RequestSendURL              = "SendUrl"
	RequestTransferSession      = "TransferSession"
	RequestGetControlMessage    = "GetControlMessage"
	RequestClearControlMessage  = "ClearControlMessage"
	RequestAddProperty          = "AddProperty"
	RequestGetProperties        = "GetProperties"
	RequestGetPhoneNumberType   = "GetPhoneNumberType"
	RequestSendSms              = "SendSms"
)

type Workflow interface {
	Process(ctx context.Context, ev *ContactEvent) (*Result, error)
}

// Switch is the part of the switch client the workflows use.
type Switch interface {
	Get(ctx context.Context, ref string) (*switchapi.Response, error)
	Post(ctx context.Context, ref string, body any) (*switchapi.Response, error)
	Delete(ctx context.Context, ref string) (*switchapi.Response, error)
	MakeRelative(href string) (string, error)
}

var _ Switch = (*switchapi.Client)(nil)
