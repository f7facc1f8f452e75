package cache

import (
	"github.com/facto/facto/internal/config"
	"github.com/facto/facto/internal/logger"
)

// Initialize initializes the cache system
func Initialize(cfg *config.Configuration, log *logger.Logger) *InMemoryCache {
	log.Infow("initializing cache system", "enabled", cfg.Cache.Enabled)
	return NewInMemoryCache(cfg.Cache.Enabled)
}

// ProvideCache exposes the in-memory cache behind the Cache interface for fx
func ProvideCache(c *InMemoryCache) Cache {
	return c
}
