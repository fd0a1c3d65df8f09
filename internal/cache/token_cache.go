package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/identity-service/internal/domain"
)

const keyPrefix = "token:"

// TokenCache is the fast path in front of ledger status lookups. It is
// best-effort: entries are evicted on every status-mutating write, and the
// TTL bounds how long an entry from an abandoned request can linger.
type TokenCache interface {
	Get(ctx context.Context, value string) (*domain.Token, error)
	Put(ctx context.Context, token *domain.Token) error
	Evict(ctx context.Context, values ...string) error
}

type redisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenCache builds a Redis-backed cache with the given entry TTL.
func NewTokenCache(client *redis.Client, ttl time.Duration) TokenCache {
	return &redisTokenCache{client: client, ttl: ttl}
}

// Get returns the cached ledger row for value, or (nil, nil) on miss.
func (c *redisTokenCache) Get(ctx context.Context, value string) (*domain.Token, error) {
	payload, err := c.client.Get(ctx, keyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var token domain.Token
	if err := json.Unmarshal(payload, &token); err != nil {
		// Treat a corrupt entry as a miss; the ledger remains authoritative.
		_ = c.client.Del(ctx, keyPrefix+value).Err()
		return nil, nil
	}
	return &token, nil
}

func (c *redisTokenCache) Put(ctx context.Context, token *domain.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+token.Value, payload, c.ttl).Err()
}

// Evict drops the entries for the given token values. Callers must not treat
// a mutating ledger write as complete until Evict has returned nil.
func (c *redisTokenCache) Evict(ctx context.Context, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, len(values))
	for i, value := range values {
		keys[i] = keyPrefix + value
	}
	return c.client.Del(ctx, keys...).Err()
}
