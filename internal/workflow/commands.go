package workflow

import (
	"context"

	"choiceview-connect/internal/switchapi"
	"choiceview-connect/pkg/logger"
)

// command runs a single switch call whose only outcome is success or failure.
func command(ctx context.Context, name, uriPrefix string, call func() (*switchapi.Response, error)) (*Result, error) {
	r := NewResult()
	resp, err := call()
	if err != nil {
		if err := classifyError(ctx, name, r, err, uriPrefix); err != nil {
			return nil, err
		}
		logResult(ctx, name, r)
		return r, nil
	}
	r.SetBool(KeyLambdaResult, resp.IsSuccess())
	if !resp.IsSuccess() {
		requestFailed(ctx, name, r, resp)
	}
	logResult(ctx, name, r)
	return r, nil
}

// SendURL pushes a web page to the caller's client.
type SendURL struct {
	sw Switch
}

func NewSendURL(sw Switch) *SendURL { return &SendURL{sw: sw} }

func (w *SendURL) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestSendURL
	sessionURL := ev.Attribute("SessionUrl")
	clientURL := ev.Parameter("ClientUrl")
	switch {
	case blank(sessionURL):
		return missing(ctx, name, reasonNoSessionURL), nil
	case blank(clientURL):
		return missing(ctx, name, reasonNoClientURL), nil
	}
	logger.From(ctx).Info(name+" request", "session_url", sessionURL, "url", clientURL)

	return command(ctx, name, prefixSessionURI, func() (*switchapi.Response, error) {
		return w.sw.Post(ctx, sessionURL, switchapi.SendURLRequest{URL: clientURL})
	})
}

// TransferSession hands the session to another ChoiceView account.
type TransferSession struct {
	sw Switch
}

func NewTransferSession(sw Switch) *TransferSession { return &TransferSession{sw: sw} }

func (w *TransferSession) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestTransferSession
	sessionURL := ev.Attribute("SessionUrl")
	accountID := ev.Parameter("AccountId")
	switch {
	case blank(sessionURL):
		return missing(ctx, name, reasonNoSessionURL), nil
	case blank(accountID):
		return missing(ctx, name, reasonNoAccountID), nil
	}
	logger.From(ctx).Info(name+" request", "session_url", sessionURL, "account_id", accountID)

	return command(ctx, name, prefixTransferURI, func() (*switchapi.Response, error) {
		return w.sw.Post(ctx, sessionURL+"/transfer/"+accountID, nil)
	})
}

// ClearControlMessage discards the pending control message.
type ClearControlMessage struct {
	sw Switch
}

func NewClearControlMessage(sw Switch) *ClearControlMessage { return &ClearControlMessage{sw: sw} }

func (w *ClearControlMessage) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestClearControlMessage
	controlURL := ev.Attribute("ControlMessageUrl")
	if blank(controlURL) {
		return missing(ctx, name, reasonNoControlMessageURL), nil
	}
	logger.From(ctx).Info(name+" request", "control_message_url", controlURL)

	return command(ctx, name, prefixControlMessageURI, func() (*switchapi.Response, error) {
		return w.sw.Delete(ctx, controlURL)
	})
}

// AddProperty sets one session property. A missing PropertyValue is sent as null.
type AddProperty struct {
	sw Switch
}

func NewAddProperty(sw Switch) *AddProperty { return &AddProperty{sw: sw} }

func (w *AddProperty) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestAddProperty
	propertiesURL := ev.Attribute("PropertiesUrl")
	propName := ev.Parameter("PropertyName")
	switch {
	case blank(propertiesURL):
		return missing(ctx, name, reasonNoPropertiesURL), nil
	case blank(propName):
		return missing(ctx, name, reasonNoPropertyName), nil
	}

	body := switchapi.PropertyRequest{Name: propName}
	if v, ok := ev.OptionalParameter("PropertyValue"); ok {
		body.Value = &v
	}
	logger.From(ctx).Info(name+" request", "properties_url", propertiesURL, "property", propName)

	return command(ctx, name, prefixPropertiesURI, func() (*switchapi.Response, error) {
		return w.sw.Post(ctx, propertiesURL, body)
	})
}
