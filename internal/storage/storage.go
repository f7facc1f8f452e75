package storage

import (
	"context"
	"strings"
	"time"
)

// Store is a synchronous string key/value capability. Each call is indivisible with
// respect to its callers; there is no multi-key transaction.
type Store interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is the persistence engine shared by every Store. A ttl of zero keeps the
// value until it is deleted.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Lifetime tells how long values written through a Store survive
type Lifetime string

const (
	// LifetimeTab survives restarts of the same tab but not a new tab
	LifetimeTab Lifetime = "tab"
	// LifetimeLocal survives across tabs and sessions
	LifetimeLocal Lifetime = "local"
)

type namespaced struct {
	backend Backend
	prefix  string
	ttl     time.Duration
}

// Namespace exposes backend as a Store whose keys live under prefix
func Namespace(backend Backend, prefix string, ttl time.Duration) Store {
	return &namespaced{backend: backend, prefix: prefix, ttl: ttl}
}

// TabScope is the session-storage view of backend for one tab
func TabScope(backend Backend, tabID string, ttl time.Duration) Store {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		tabID = "default"
	}
	return Namespace(backend, string(LifetimeTab)+":"+tabID+":", ttl)
}

// LocalScope is the local-storage view of backend
func LocalScope(backend Backend) Store {
	return Namespace(backend, string(LifetimeLocal)+":", 0)
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.backend.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.backend.Set(ctx, n.prefix+key, value, n.ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.backend.Delete(ctx, n.prefix+key)
}
