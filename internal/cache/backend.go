package cache

import (
	"context"
	"time"

	"github.com/facto/facto/internal/storage"
	goCache "github.com/patrickmn/go-cache"
)

var _ storage.Backend = (*MemoryBackend)(nil)

// MemoryBackend is a process-local storage.Backend. Values vanish with the process,
// which makes it suitable for tests and throwaway sessions only.
type MemoryBackend struct {
	cache *goCache.Cache
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: goCache.New(goCache.NoExpiration, DefaultCleanupInterval)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := b.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = goCache.NoExpiration
	}
	b.cache.Set(key, value, ttl)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.cache.Delete(key)
	return nil
}

func (b *MemoryBackend) Close() error {
	b.cache.Flush()
	return nil
}
