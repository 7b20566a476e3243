package population

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/percentile"
)

// Cache holds computed percentile vectors. Lookups never fail: a backend
// error is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (percentile.Vector, bool)
	Set(ctx context.Context, key string, v percentile.Vector)
}

// MemoryCache is an in-process cache with per-entry expiry.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (percentile.Vector, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	return v.(percentile.Vector).Clone(), true
}

func (m *MemoryCache) Set(_ context.Context, key string, v percentile.Vector) {
	m.c.Set(key, v.Clone(), gocache.DefaultExpiration)
}

func (m *MemoryCache) Len() int {
	return m.c.ItemCount()
}

// RedisCache shares vectors between service replicas.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "planscore:percentiles:", ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (percentile.Vector, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("key", key).Warn("percentile cache read failed")
		}
		return nil, false
	}
	var v percentile.Vector
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("discarding corrupt cache entry")
		return nil, false
	}
	return v, true
}

func (r *RedisCache) Set(ctx context.Context, key string, v percentile.Vector) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("percentile cache write failed")
	}
}
