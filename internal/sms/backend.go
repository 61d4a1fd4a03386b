package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrNotConfigured is returned when a backend is missing credentials.
var ErrNotConfigured = errors.New("sms: backend not configured")

// NumberTypeMobile is the classification that permits sending.
const NumberTypeMobile = "mobile"

// Backend is a provider adapter for number classification and delivery.
//
// Rules:
//   - No provider SDK or REST calls outside adapters.
//   - Numbers are passed through as the contact flow supplied them.
type Backend interface {
	Name() string
	Policy() Policy

	// LookupNumberType returns the carrier classification of number, such
	// as "mobile", "landline" or "voip". An unknown type is "".
	LookupNumberType(ctx context.Context, number string) (string, error)

	// Send reports whether the provider accepted msg for delivery.
	Send(ctx context.Context, msg Message) (bool, error)
}

// Policy captures how failures from a backend are surfaced to the flow.
type Policy struct {
	// ReportErrors adds FailureReason to failed SMS results and makes a
	// failed number lookup fail the request. Without it, SMS failures
	// surface only as LambdaResult=false and lookup errors as an empty type.
	ReportErrors bool
}

type Message struct {
	From string
	To   string
	Body string
}

// IsMobile compares a classification case-insensitively.
func IsMobile(numberType string) bool {
	return strings.EqualFold(numberType, NumberTypeMobile)
}

// ProviderError is a non-2xx reply from a REST provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Provider, e.StatusCode, e.Message)
}

// FailureMessage extracts the provider's own description of err.
func FailureMessage(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}
