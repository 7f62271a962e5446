package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	pkgredis "github.com/Adithya-Monish-Kumar-K/rankengine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/rankengine/pkg/resilience"
)

const DefaultLocalEntries = 1024

type redisBackend struct {
	client *pkgredis.Client
}

// NewRedisBackend stores results in Redis under the "search:" prefix.
func NewRedisBackend(client *pkgredis.Client) Backend {
	return &redisBackend{client: client}
}

func (b *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (b *redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl)
}

func (b *redisBackend) Clear(ctx context.Context) (int64, error) {
	return b.client.FlushByPattern(ctx, keyPrefix+"*")
}

func (b *redisBackend) Name() string { return "redis" }

type localBackend struct {
	lru *expirable.LRU[string, []byte]
}

// NewLocalBackend keeps up to size results in process. Entries expire after
// ttl; a zero ttl disables expiry.
func NewLocalBackend(size int, ttl time.Duration) Backend {
	if size <= 0 {
		size = DefaultLocalEntries
	}
	return &localBackend{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (b *localBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := b.lru.Get(key)
	return data, ok, nil
}

func (b *localBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.lru.Add(key, value)
	return nil
}

func (b *localBackend) Clear(_ context.Context) (int64, error) {
	n := int64(b.lru.Len())
	b.lru.Purge()
	return n, nil
}

func (b *localBackend) Name() string { return "local" }

type breakerBackend struct {
	inner Backend
	cb    *resilience.CircuitBreaker
}

// NewBreakerBackend guards inner with cb. While the circuit is open, reads
// report a miss and writes are dropped without touching inner.
func NewBreakerBackend(inner Backend, cb *resilience.CircuitBreaker) Backend {
	return &breakerBackend{inner: inner, cb: cb}
}

func (b *breakerBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	err := b.cb.Execute(func() error {
		var err error
		data, ok, err = b.inner.Get(ctx, key)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, false, nil
	}
	return data, ok, err
}

func (b *breakerBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.cb.Execute(func() error {
		return b.inner.Set(ctx, key, value, ttl)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil
	}
	return err
}

// Clear bypasses the breaker so an explicit invalidation always reaches inner.
func (b *breakerBackend) Clear(ctx context.Context) (int64, error) {
	return b.inner.Clear(ctx)
}

func (b *breakerBackend) Name() string { return b.inner.Name() }
