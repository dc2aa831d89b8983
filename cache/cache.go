// Package cache holds the read-through cache used by the feed and the
// interaction lookups. Entries expire by TTL only.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Cache stores opaque payloads under string keys.
type Cache interface {
	// Get reports ok=false on a miss. A non-nil error means the cache itself
	// failed and the caller should fall back to the store.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	inner *redis.Client
}

// NewRedis connects to the server at addr and pings it.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return &RedisCache{inner: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{inner: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.inner.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.inner.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.inner.Close()
}

// Noop never stores anything. It is used when no cache is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// FeedKey names one cached feed page. The parts (ids, search terms, tags)
// are folded into a stable digest so arbitrary input stays a safe key.
func FeedKey(kind string, page, limit int, parts ...string) string {
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("feed:%s:p%d:l%d:%s", kind, page, limit, digest.String())
}

func InteractionsKey(email string) string {
	return "interactions:" + email
}
