package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

const (
	DefaultTwilioMessagingURL = "https://api.twilio.com"
	DefaultTwilioLookupsURL   = "https://lookups.twilio.com/v1"

	twilioQueued = "queued"
)

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	PhoneNumber  string
	MessagingURL string
	LookupsURL   string
}

// TwilioBackend uses the Twilio Lookups and Messaging REST APIs.
type TwilioBackend struct {
	cfg  TwilioConfig
	http *http.Client
}

func NewTwilioBackend(cfg TwilioConfig, hc *http.Client) (*TwilioBackend, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" || strings.TrimSpace(cfg.PhoneNumber) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.MessagingURL == "" {
		cfg.MessagingURL = DefaultTwilioMessagingURL
	}
	if cfg.LookupsURL == "" {
		cfg.LookupsURL = DefaultTwilioLookupsURL
	}
	cfg.MessagingURL = strings.TrimRight(cfg.MessagingURL, "/")
	cfg.LookupsURL = strings.TrimRight(cfg.LookupsURL, "/")
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwilioBackend{cfg: cfg, http: hc}, nil
}

func (b *TwilioBackend) Name() string { return "twilio" }

func (b *TwilioBackend) Policy() Policy { return Policy{ReportErrors: false} }

func (b *TwilioBackend) LookupNumberType(ctx context.Context, number string) (string, error) {
	q := url.Values{}
	q.Set("CountryCode", "USA")
	q.Set("Type", "carrier")
	endpoint := fmt.Sprintf("%s/PhoneNumbers/%s?%s", b.cfg.LookupsURL, url.PathEscape(number), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	data, err := b.do(req)
	if err != nil {
		return "", err
	}

	numberType, err := jsonparser.GetString(data, "carrier", "type")
	if err != nil {
		// carrier or its type may be null for numbers the carrier database does not know
		return "", nil
	}
	return numberType, nil
}

func (b *TwilioBackend) Send(ctx context.Context, msg Message) (bool, error) {
	form := url.Values{}
	form.Set("From", msg.From)
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", b.cfg.MessagingURL, url.PathEscape(b.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	data, err := b.do(req)
	if err != nil {
		return false, err
	}

	status, _ := jsonparser.GetString(data, "status")
	return status == twilioQueued, nil
}

func (b *TwilioBackend) do(req *http.Request) ([]byte, error) {
	req.SetBasicAuth(b.cfg.AccountSID, b.cfg.AuthToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read twilio response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := jsonparser.GetString(data, "message")
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{Provider: "twilio", StatusCode: resp.StatusCode, Message: msg}
	}
	return data, nil
}
