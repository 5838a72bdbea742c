package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/whereabouts/internal/model"
)

// DefaultRedisPrefix namespaces cache keys in a shared Redis.
const DefaultRedisPrefix = "whereabouts:bundle:"

// Redis caches bundles in Redis as JSON. Entries also carry a server-side
// expiry equal to the TTL; the clock check on Get is what decides liveness.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  Clock
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithRedisClock sets the clock used for TTL checks.
func WithRedisClock(c Clock) RedisOption {
	return func(r *Redis) { r.clock = c }
}

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
		ttl:    ttl,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis parses url, connects and pings.
func DialRedis(ctx context.Context, url string, ttl time.Duration, opts ...RedisOption) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	o.DialTimeout = 5 * time.Second
	o.ReadTimeout = 3 * time.Second
	o.WriteTimeout = 3 * time.Second

	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(client, ttl, opts...), nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k Key) string {
	return r.prefix + k.String()
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", key.UserID, err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached bundle: %w", err)
	}
	if e.Bundle == nil || Expired(e.StoredAt, r.clock.Now(), r.ttl) {
		if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
			return Entry{}, false, fmt.Errorf("redis evict %s: %w", key.UserID, err)
		}
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key Key, b *model.ContextBundle) error {
	raw, err := json.Marshal(Entry{Bundle: b, StoredAt: r.clock.Now()})
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key.UserID, err)
	}
	return nil
}

// Evict implements Cache.
func (r *Redis) Evict(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis evict %s: %w", key.UserID, err)
	}
	return nil
}
