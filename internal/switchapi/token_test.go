package switchapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, hits *atomic.Int32, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.GrantType != "client_credentials" || req.ClientID != "id" || req.ClientSecret != "secret" || req.Audience != DefaultAudience {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, tokenURL string, cache TokenCache) *OAuthTokenSource {
	t.Helper()
	ts, err := NewTokenSource(ClientCredentials{TokenURL: tokenURL, ClientID: "id", ClientSecret: "secret"}, cache, nil)
	require.NoError(t, err)
	return ts
}

func TestNewTokenSource_RequiresCredentials(t *testing.T) {
	_, err := NewTokenSource(ClientCredentials{ClientID: "id", ClientSecret: "  "}, nil, nil)
	require.ErrorIs(t, err, ErrMissingCredentials)
	_, err = NewTokenSource(ClientCredentials{ClientSecret: "s"}, nil, nil)
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestToken_CachedUntilExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"access_token":"abc","token_type":"Bearer"}`, http.StatusOK)
	ts := newSource(t, srv.URL, nil)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		tok, err := ts.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "abc", tok)
	}
	require.Equal(t, int32(1), hits.Load())

	now = now.Add(defaultTokenLifetime + time.Second)
	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestToken_HonorsExpiresIn(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"access_token":"abc","expires_in":60}`, http.StatusOK)
	cache := NewMemoryTokenCache()
	ts := newSource(t, srv.URL, cache)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }
	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	cached, ok, err := cache.Get(context.Background(), tokenKeyPrefix+"id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, now.Add(time.Minute), cached.ExpiresAt)
}

func TestToken_Non2xxIsTokenError(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"error":"access_denied"}`, http.StatusForbidden)
	ts := newSource(t, srv.URL, nil)

	_, err := ts.Token(context.Background())
	var terr *TokenError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.StatusForbidden, terr.StatusCode)
}

func TestToken_MissingAccessToken(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"token_type":"Bearer"}`, http.StatusOK)
	ts := newSource(t, srv.URL, nil)

	_, err := ts.Token(context.Background())
	var terr *TokenError
	require.True(t, errors.As(err, &terr))
}

func TestToken_ConcurrentCallersShareRefresh(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = io.WriteString(w, `{"access_token":"shared"}`)
	}))
	defer srv.Close()
	ts := newSource(t, srv.URL, nil)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			if err == nil {
				results[i] = tok
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		require.Equal(t, "shared", r)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestToken_SharedRefreshSurvivesCancelledStarter(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = io.WriteString(w, `{"access_token":"shared"}`)
	}))
	defer srv.Close()
	ts := newSource(t, srv.URL, nil)

	starterCtx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		tok string
		err error
	}
	starter := make(chan outcome, 1)
	go func() {
		tok, err := ts.Token(starterCtx)
		starter <- outcome{tok, err}
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	waiter := make(chan outcome, 1)
	go func() {
		tok, err := ts.Token(context.Background())
		waiter <- outcome{tok, err}
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	got := <-waiter
	require.NoError(t, got.err)
	require.Equal(t, "shared", got.tok)
	got = <-starter
	require.NoError(t, got.err)
	require.Equal(t, int32(1), hits.Load())
}

func TestRedisTokenCache_SharesAndExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"access_token":"from-redis","expires_in":120}`, http.StatusOK)

	first := newSource(t, srv.URL, NewRedisTokenCache(rdb))
	tok, err := first.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from-redis", tok)
	require.True(t, mr.Exists(tokenKeyPrefix+"id"))
	require.InDelta(t, 120, mr.TTL(tokenKeyPrefix+"id").Seconds(), 2)

	second := newSource(t, srv.URL, NewRedisTokenCache(rdb))
	tok, err = second.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from-redis", tok)
	require.Equal(t, int32(1), hits.Load())

	mr.FastForward(121 * time.Second)
	_, err = second.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestRedisTokenCache_SkipsExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedisTokenCache(rdb)
	require.NoError(t, c.Set(context.Background(), "k", CachedToken{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestToken_RedisDownFallsBackToFetch(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	var hits atomic.Int32
	srv := tokenServer(t, &hits, `{"access_token":"direct"}`, http.StatusOK)
	ts := newSource(t, srv.URL, NewRedisTokenCache(rdb))

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "direct", tok)
}
