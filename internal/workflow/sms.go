package workflow

import (
	"context"
	"strings"

	"choiceview-connect/internal/sms"
	"choiceview-connect/internal/telephony"
	"choiceview-connect/pkg/logger"
)

const (
	reasonLandline           = "Cannot send SMS to a landline or VOIP telephone number."
	reasonCustomerNotPhone   = "Cannot send SMS: Customer address is not a valid telephone number."
	reasonSystemNotPhone     = "Cannot send SMS: System address is not a valid telephone number."
	reasonNoMessage          = "No SMS message to send."
	reasonNoClientLink       = "Cannot create the ChoiceView client link."
	reasonNotQueued          = "SMS message not queued."
	reasonNoNumberToValidate = "No customer number to validate"
)

// SendSms texts the caller. During CreateSessionWithSms the message is
// completed with a deep link to the client; otherwise a message is required.
// Unless SkipNumberCheck is set, only numbers classified as mobile are texted.
type SendSms struct {
	backend   sms.Backend
	from      string
	clientURL string
}

// NewSendSms sends from the given number when set, otherwise from the
// contact's system endpoint.
func NewSendSms(backend sms.Backend, from, clientURL string) *SendSms {
	return &SendSms{backend: backend, from: strings.TrimSpace(from), clientURL: clientURL}
}

func (w *SendSms) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestSendSms
	log := logger.From(ctx)

	customer := ev.CustomerEndpoint()
	if !telephony.IsTelephone(customer.Type) || blank(customer.Address) {
		return w.fail(ctx, reasonCustomerNotPhone), nil
	}
	from := w.from
	if from == "" {
		system := ev.SystemEndpoint()
		if !telephony.IsTelephone(system.Type) {
			return w.fail(ctx, reasonSystemNotPhone), nil
		}
		from = system.Address
	}

	message := ev.Parameter("SmsMessage")
	if ev.RequestName() == RequestCreateSessionWithSms {
		composed, ok := sms.ComposeInvitation(message, w.clientURL, customer.Address)
		if !ok {
			return w.fail(ctx, reasonNoClientLink), nil
		}
		message = composed
	} else if blank(message) {
		return w.fail(ctx, reasonNoMessage), nil
	}

	skip, err := ev.BoolParameter("SkipNumberCheck")
	if err != nil {
		return w.fail(ctx, prefixArgument+err.Error()), nil
	}
	if !skip {
		numberType, err := w.backend.LookupNumberType(ctx, customer.Address)
		if err != nil {
			log.Warn(name+" - cannot validate customer number", "backend", w.backend.Name(), "err", err)
			return w.fail(ctx, sms.FailureMessage(err)), nil
		}
		log.Info(name+" - number classified", "number_type", numberType)
		if !sms.IsMobile(numberType) {
			return w.fail(ctx, reasonLandline), nil
		}
	}

	msg := sms.Message{From: from, To: customer.Address, Body: sms.FinalizeBody(message, customer.Address)}
	delivered, err := w.backend.Send(ctx, msg)
	if err != nil {
		log.Warn(name+" - cannot send SMS", "backend", w.backend.Name(), "err", err)
		return w.fail(ctx, sms.FailureMessage(err)), nil
	}
	if !delivered {
		return w.fail(ctx, reasonNotQueued), nil
	}

	log.Info(name+" - SMS message queued", "backend", w.backend.Name(), "to", customer.Address)
	r := NewResult()
	r.SetBool(KeyLambdaResult, true)
	logResult(ctx, name, r)
	return r, nil
}

// fail reports a failed send; backends that do not report errors answer with
// LambdaResult alone.
func (w *SendSms) fail(ctx context.Context, reason string) *Result {
	logger.From(ctx).Info(RequestSendSms + " - " + reason)
	r := NewResult()
	r.SetBool(KeyLambdaResult, false)
	if w.backend.Policy().ReportErrors {
		r.SetString(KeyFailureReason, reason)
	}
	logResult(ctx, RequestSendSms, r)
	return r
}

// GetPhoneNumberType classifies the caller's number as mobile, landline, voip
// or unknown ("").
type GetPhoneNumberType struct {
	backend sms.Backend
}

func NewGetPhoneNumberType(backend sms.Backend) *GetPhoneNumberType {
	return &GetPhoneNumberType{backend: backend}
}

func (w *GetPhoneNumberType) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestGetPhoneNumberType
	log := logger.From(ctx)
	reportErrors := w.backend.Policy().ReportErrors

	number := ev.CustomerEndpoint().Address
	numberType := ""
	switch {
	case blank(number) && reportErrors:
		return missing(ctx, name, reasonNoNumberToValidate), nil
	case blank(number):
		log.Info(name + " - no customer number")
	default:
		t, err := w.backend.LookupNumberType(ctx, number)
		if err != nil {
			log.Warn(name+" - phone number lookup failed", "backend", w.backend.Name(), "err", err)
			if reportErrors {
				r := Failed(sms.FailureMessage(err))
				logResult(ctx, name, r)
				return r, nil
			}
		}
		numberType = t
		log.Info(name+" - phone number classified", "number_type", numberType)
	}

	r := NewResult()
	r.SetString(KeyNumberType, numberType)
	r.SetBool(KeyLambdaResult, true)
	logResult(ctx, name, r)
	return r, nil
}
