package sms

import (
	"errors"
	"net/url"
	"strings"

	"choiceview-connect/internal/telephony"
)

const (
	// PhoneMarker ending a message asks for the customer number to be
	// appended inline at send time.
	PhoneMarker = "phone="

	linkPrompt = "Tap this link to start ChoiceView: "
)

var errBadClientURL = errors.New("sms: client url must be absolute")

// ClientLink is the deep link that opens the ChoiceView client for a caller:
// clientURL with its query replaced by phone=<switch caller id>.
func ClientLink(clientURL, customerNumber string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(clientURL))
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", errBadClientURL
	}
	u.RawQuery = phoneFragment(customerNumber)
	return u.String(), nil
}

func phoneFragment(customerNumber string) string {
	return PhoneMarker + telephony.SwitchCallerID(customerNumber)
}

// ComposeInvitation prepares the message sent ahead of session creation.
// A blank message becomes a bare link prompt. A message that neither
// carries the caller's phone fragment nor ends with PhoneMarker gets the
// link prompt appended. ok is false when the link is needed but clientURL
// cannot produce one.
func ComposeInvitation(message, clientURL, customerNumber string) (composed string, ok bool) {
	fragment := phoneFragment(customerNumber)
	needsLink := strings.TrimSpace(message) == "" ||
		(!strings.Contains(message, fragment) && !strings.HasSuffix(message, PhoneMarker))

	link, err := ClientLink(clientURL, customerNumber)
	if err != nil {
		return message, !needsLink
	}

	if strings.TrimSpace(message) == "" {
		return linkPrompt + link, true
	}
	if needsLink {
		return message + " " + linkPrompt + link, true
	}
	return message, true
}

// FinalizeBody appends the recipient's caller id to a body ending in PhoneMarker.
func FinalizeBody(body, to string) string {
	if strings.HasSuffix(body, PhoneMarker) {
		return body + telephony.SwitchCallerID(to)
	}
	return body
}
