package switchapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "choiceview:token:"

type CachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenCache stores bearer tokens by key.
type TokenCache interface {
	Get(ctx context.Context, key string) (CachedToken, bool, error)
	Set(ctx context.Context, key string, tok CachedToken) error
}

// MemoryTokenCache keeps tokens for the life of the process.
type MemoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]CachedToken
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]CachedToken)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (CachedToken, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[key]
	return tok, ok, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, tok CachedToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = tok
	return nil
}

// RedisTokenCache shares tokens between Lambda instances and gateway replicas
// so each does not run its own grant. Entries expire with the token.
type RedisTokenCache struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisTokenCache(rdb redis.Cmdable) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb, now: time.Now}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (CachedToken, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedToken{}, false, nil
	}
	if err != nil {
		return CachedToken{}, false, err
	}
	var tok CachedToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return CachedToken{}, false, err
	}
	return tok, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, tok CachedToken) error {
	ttl := tok.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}
