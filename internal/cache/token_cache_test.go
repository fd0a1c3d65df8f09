package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/cache"
	"github.com/spec-kit/identity-service/internal/domain"
)

func newTestCache(t *testing.T) (cache.TokenCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewTokenCache(client, time.Minute), mr
}

func sampleToken(value string) *domain.Token {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Token{
		ID:         "token-1",
		Value:      value,
		Kind:       domain.TokenKindAccess,
		Status:     domain.TokenStatusActive,
		OwnerID:    "user-1",
		OwnerEmail: "alice@example.com",
		OwnerRole:  domain.RoleUser,
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Hour),
	}
}

func TestTokenCache_PutGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	token := sampleToken("abc")
	require.NoError(t, c.Put(ctx, token))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, token.Value, got.Value)
	assert.Equal(t, token.Status, got.Status)
	assert.Equal(t, token.OwnerEmail, got.OwnerEmail)
}

func TestTokenCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenCache_Evict(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	first := sampleToken("one")
	second := sampleToken("two")
	require.NoError(t, c.Put(ctx, first))
	require.NoError(t, c.Put(ctx, second))

	require.NoError(t, c.Evict(ctx, "one", "two"))

	for _, value := range []string{"one", "two"} {
		got, err := c.Get(ctx, value)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestTokenCache_EvictNothing(t *testing.T) {
	c, _ := newTestCache(t)
	assert.NoError(t, c.Evict(context.Background()))
}

func TestTokenCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("token:bad", "{not json"))

	got, err := c.Get(ctx, "bad")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("token:bad"))
}

func TestTokenCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleToken("ttl")))
	mr.FastForward(2 * time.Minute)

	got, err := c.Get(ctx, "ttl")
	require.NoError(t, err)
	assert.Nil(t, got)
}
