package workflow

import (
	"context"
	"net/http"

	"choiceview-connect/internal/switchapi"
	"choiceview-connect/pkg/logger"
)

// GetControlMessage fetches the form the caller last submitted from the
// client. Each form field becomes a result key.
type GetControlMessage struct {
	sw Switch
}

func NewGetControlMessage(sw Switch) *GetControlMessage { return &GetControlMessage{sw: sw} }

func (w *GetControlMessage) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestGetControlMessage
	controlURL := ev.Attribute("ControlMessageUrl")
	if blank(controlURL) {
		return missing(ctx, name, reasonNoControlMessageURL), nil
	}
	log := logger.From(ctx)
	log.Info(name+" request", "control_message_url", controlURL)

	r := NewResult()
	err := func() error {
		resp, err := w.sw.Get(ctx, controlURL)
		if err != nil {
			return err
		}
		r.SetBool(KeyLambdaResult, resp.IsSuccess())

		switch {
		case resp.StatusCode == http.StatusOK:
			var fields [][2]string
			if err := switchapi.EachField(resp.Body, func(k, v string) {
				fields = append(fields, [2]string{k, v})
			}); err != nil {
				return err
			}
			r.SetBool(KeyControlMessageAvailable, true)
			for _, f := range fields {
				log.Debug(name+" - control message field", "key", f[0], "value", f[1])
				r.SetString(f[0], f[1])
			}
		case resp.StatusCode == http.StatusNoContent:
			r.SetBool(KeyControlMessageAvailable, false)
			log.Debug(name + " - no control message available")
		case resp.IsSuccess():
			log.Info(name+" - no control message received", "status", resp.StatusCode)
			r.SetInt(KeyStatusCode, resp.StatusCode)
		default:
			requestFailed(ctx, name, r, resp)
		}
		return nil
	}()
	if err != nil {
		if err := classifyError(ctx, name, r, err, prefixControlMessageURI); err != nil {
			return nil, err
		}
	}
	logResult(ctx, name, r)
	return r, nil
}

// GetProperties flattens the session properties into the result. A 404 is
// reported by status code only, since the session has ended.
type GetProperties struct {
	sw Switch
}

func NewGetProperties(sw Switch) *GetProperties { return &GetProperties{sw: sw} }

func (w *GetProperties) Process(ctx context.Context, ev *ContactEvent) (*Result, error) {
	const name = RequestGetProperties
	propertiesURL := ev.Attribute("PropertiesUrl")
	if blank(propertiesURL) {
		return missing(ctx, name, reasonNoPropertiesURL), nil
	}
	log := logger.From(ctx)
	log.Info(name+" request", "properties_url", propertiesURL)

	r := NewResult()
	err := func() error {
		resp, err := w.sw.Get(ctx, propertiesURL)
		if err != nil {
			return err
		}
		r.SetBool(KeyLambdaResult, resp.IsSuccess())

		switch {
		case resp.StatusCode == http.StatusOK:
			var props switchapi.PropertiesResource
			if err := resp.Decode(&props); err != nil {
				return err
			}
			return addProperties(r, props.Properties)
		case resp.IsSuccess():
			log.Info(name+" - no property information received", "status", resp.StatusCode)
			r.SetInt(KeyStatusCode, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			log.Info(name + " - session not found, assume disconnected")
			r.SetInt(KeyStatusCode, resp.StatusCode)
		default:
			requestFailed(ctx, name, r, resp)
		}
		return nil
	}()
	if err != nil {
		if err := classifyError(ctx, name, r, err, prefixPropertiesURI); err != nil {
			return nil, err
		}
	}
	logResult(ctx, name, r)
	return r, nil
}
