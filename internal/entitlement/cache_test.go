package entitlement

import (
	"context"
	"testing"

	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "facto_premium:anon", Key(nil))
	assert.Equal(t, "facto_premium:anon", Key(&auth.User{}))
	assert.Equal(t, "facto_premium:u1", Key(&auth.User{UID: "u1"}))
}

func TestGrantIsPerIdentity(t *testing.T) {
	ctx := context.Background()
	c := NewCache(storage.LocalScope(cache.NewMemoryBackend()), logger.NewNoopLogger())
	alice := &auth.User{UID: "alice"}
	bob := &auth.User{UID: "bob"}

	assert.False(t, c.IsEntitled(ctx, alice))
	require.NoError(t, c.Grant(ctx, alice))

	assert.True(t, c.IsEntitled(ctx, alice))
	assert.False(t, c.IsEntitled(ctx, bob))
	assert.False(t, c.IsEntitled(ctx, nil))

	require.NoError(t, c.Grant(ctx, nil))
	assert.True(t, c.IsEntitled(ctx, nil))
	assert.False(t, c.IsEntitled(ctx, bob))
}

func TestEntitlementSurvivesAcrossStores(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend()
	user := &auth.User{UID: "u1"}

	require.NoError(t, NewCache(storage.LocalScope(backend), logger.NewNoopLogger()).Grant(ctx, user))

	again := NewCache(storage.LocalScope(backend), logger.NewNoopLogger())
	assert.True(t, again.IsEntitled(ctx, user))
}

func TestOtherValuesAreNotEntitled(t *testing.T) {
	ctx := context.Background()
	local := storage.LocalScope(cache.NewMemoryBackend())
	c := NewCache(local, logger.NewNoopLogger())
	user := &auth.User{UID: "u1"}

	require.NoError(t, local.Set(ctx, Key(user), "yes"))
	assert.False(t, c.IsEntitled(ctx, user))
}
