package switchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"choiceview-connect/pkg/logger"

	"github.com/buger/jsonparser"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTokenURL      = "https://radishsystems.auth0.com/oauth/token"
	DefaultAudience      = "https://radishsystems.com/ivr/api/"
	defaultTokenLifetime = 86400 * time.Second
)

// TokenSource supplies bearer tokens for the switch.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ClientCredentials identifies this integration to the token endpoint.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
}

// OAuthTokenSource runs the client-credentials grant and keeps the token in a
// TokenCache until it expires. Refresh happens on demand; concurrent callers
// in one process share a single refresh.
type OAuthTokenSource struct {
	creds ClientCredentials
	http  *http.Client
	cache TokenCache
	group singleflight.Group
	now   func() time.Time
}

func NewTokenSource(creds ClientCredentials, cache TokenCache, hc *http.Client) (*OAuthTokenSource, error) {
	if strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
		return nil, ErrMissingCredentials
	}
	if creds.TokenURL == "" {
		creds.TokenURL = DefaultTokenURL
	}
	if creds.Audience == "" {
		creds.Audience = DefaultAudience
	}
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &OAuthTokenSource{creds: creds, http: hc, cache: cache, now: time.Now}, nil
}

func (s *OAuthTokenSource) cacheKey() string {
	return tokenKeyPrefix + s.creds.ClientID
}

func (s *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	key := s.cacheKey()
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.From(ctx).Warn("token cache read failed", "err", err)
	}
	if ok && !s.now().After(cached.ExpiresAt) {
		return cached.AccessToken, nil
	}

	// The refresh is shared by every waiter, so it must outlive the caller
	// that happened to start it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		tok, err := s.fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(shared, key, tok); err != nil {
			logger.From(ctx).Warn("token cache write failed", "err", err)
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *OAuthTokenSource) fetch(ctx context.Context) (CachedToken, error) {
	issued := s.now()

	body, err := json.Marshal(tokenRequest{
		ClientID:     s.creds.ClientID,
		ClientSecret: s.creds.ClientSecret,
		Audience:     s.creds.Audience,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return CachedToken{}, &TokenError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.TokenURL, bytes.NewReader(body))
	if err != nil {
		return CachedToken{}, &TokenError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.http.Do(req)
	if err != nil {
		return CachedToken{}, &TokenError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CachedToken{}, &TokenError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return CachedToken{}, &TokenError{StatusCode: resp.StatusCode, Err: err}
	}

	access, err := jsonparser.GetString(data, "access_token")
	if err != nil || access == "" {
		return CachedToken{}, &TokenError{StatusCode: resp.StatusCode, Err: fmt.Errorf("no access_token in response")}
	}
	lifetime := defaultTokenLifetime
	if secs, err := jsonparser.GetInt(data, "expires_in"); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}

	logger.From(ctx).Debug("switch token refreshed", "expires_in_s", int64(lifetime.Seconds()))
	return CachedToken{AccessToken: access, ExpiresAt: issued.Add(lifetime)}, nil
}
