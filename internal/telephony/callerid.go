package telephony

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// EndpointTypeTelephone is the endpoint type Amazon Connect reports for PSTN numbers.
const EndpointTypeTelephone = "TELEPHONE_NUMBER"

// switchCallerIDLen is the longest caller id the switch accepts.
const switchCallerIDLen = 10

const defaultRegion = "US"

var ErrInvalidNumber = errors.New("telephony: invalid phone number")

// SwitchCallerID converts a contact address into the caller id form the switch
// expects: one leading "+" removed, then only the last 10 characters kept.
// The remaining characters are not validated.
func SwitchCallerID(raw string) string {
	id := []rune(strings.TrimPrefix(raw, "+"))
	if n := len(id); n > switchCallerIDLen {
		return string(id[n-switchCallerIDLen:])
	}
	return string(id)
}

// IsTelephone reports whether an endpoint type names a telephone number.
func IsTelephone(endpointType string) bool {
	return endpointType == EndpointTypeTelephone
}

// NormalizeE164 parses a configured phone number and returns it in E.164 form.
// Numbers without a country code are read as US numbers.
func NormalizeE164(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}
	num, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
