package redis

import (
	"context"
	"time"

	"github.com/facto/facto/internal/config"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

var _ storage.Backend = (*Store)(nil)

// Store keeps tab and local storage in Redis so several processes can share a tab.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

// NewStore wraps an existing client; every key is written under prefix.
func NewStore(rdb *goredis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

// Open connects to the configured Redis and checks the connection.
func Open(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, ierr.WithError(err).
			WithHint("Redis is unreachable").
			WithReportableDetails(map[string]any{"address": cfg.Address}).
			Mark(ierr.ErrNetwork)
	}
	return NewStore(rdb, "facto:"), nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, ierr.WithError(err).WithMessage("redis get").Mark(ierr.ErrSystem)
	}
	return v, true, nil
}

// Set stores value; ttl zero means no expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return ierr.WithError(err).WithMessage("redis set").Mark(ierr.ErrSystem)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return ierr.WithError(err).WithMessage("redis del").Mark(ierr.ErrSystem)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
