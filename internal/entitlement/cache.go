package entitlement

import (
	"context"

	"github.com/facto/facto/internal/domain/auth"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
)

const (
	keyPrefix    = "facto_premium:"
	anonymousKey = "anon"
	grantedValue = "true"
)

// Key is the local-storage key holding the premium flag for user
func Key(user *auth.User) string {
	if user == nil || user.UID == "" {
		return keyPrefix + anonymousKey
	}
	return keyPrefix + user.UID
}

// Cache remembers which identities have paid for exports on this device.
// Entries are never cleared by the application.
type Cache struct {
	store  storage.Store
	logger *logger.Logger
}

func NewCache(store storage.Store, logger *logger.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// IsEntitled is false on any read failure
func (c *Cache) IsEntitled(ctx context.Context, user *auth.User) bool {
	v, ok, err := c.store.Get(ctx, Key(user))
	if err != nil {
		c.logger.Warnw("entitlement read failed", "key", Key(user), "error", err)
		return false
	}
	return ok && v == grantedValue
}

func (c *Cache) Grant(ctx context.Context, user *auth.User) error {
	key := Key(user)
	if err := c.store.Set(ctx, key, grantedValue); err != nil {
		c.logger.Errorw("entitlement grant failed", "key", key, "error", err)
		return err
	}
	c.logger.Infow("entitlement granted", "key", key)
	return nil
}
