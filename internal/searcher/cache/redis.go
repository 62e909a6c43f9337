package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// opTimeout bounds a single cache round trip so a slow Redis cannot stall
// a search.
const opTimeout = 250 * time.Millisecond

// RedisClient is the subset of pkg/redis used by the backend.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Redis is a shared backend. Every call goes through a circuit breaker; while
// it is open reads miss and writes are dropped, so searches keep working
// without the cache.
type Redis struct {
	client  RedisClient
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewRedis(client RedisClient, ttl time.Duration, breaker *resilience.CircuitBreaker) *Redis {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{})
	}
	return &Redis{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache-redis"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	var data string
	err := r.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "redis-cache-get", func(ctx context.Context) error {
			v, err := r.client.Get(ctx, key)
			if pkgredis.IsNilError(err) {
				return nil
			}
			data = v
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			r.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	if data == "" {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		r.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}

func (r *Redis) Set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = r.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "redis-cache-set", func(ctx context.Context) error {
			return r.client.Set(ctx, key, data, r.ttl)
		})
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		r.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Purge(ctx context.Context, scope string) (int64, error) {
	return r.client.FlushByPattern(ctx, scopePrefix(scope)+"*")
}

func (r *Redis) Name() string { return "redis" }
