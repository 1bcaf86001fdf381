// Package cache provides the read-through caching layers in front of the reference
// catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/domain"
)

const keyPrefix = "billing:catalog:"

// CachedCatalog implements domain.PlanCatalog with multi-level caching:
// an in-process expirable LRU, then an optional Redis tier, then the backing catalog.
// Only single-item lookups are cached; list calls always hit the backing catalog.
type CachedCatalog struct {
	backing  domain.PlanCatalog
	memory   *expirable.LRU[string, []byte] // Tier 1: hot entries
	redis    *redis.Client                  // Tier 2: shared across instances, may be nil
	redisTTL time.Duration
	logger   *logrus.Logger

	memoryHits  atomic.Int64
	redisHits   atomic.Int64
	backingHits atomic.Int64
	errors      atomic.Int64
}

// Options configures a CachedCatalog.
type Options struct {
	MemoryItems int
	MemoryTTL   time.Duration
	RedisTTL    time.Duration
}

// Stats reports where lookups were served from.
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	RedisHits    int64 `json:"redis_hits"`
	BackingCalls int64 `json:"backing_calls"`
	ErrorCount   int64 `json:"error_count"`
	MemoryItems  int   `json:"memory_items"`
}

// NewCachedCatalog wraps backing. redisClient may be nil to run memory-only.
func NewCachedCatalog(backing domain.PlanCatalog, redisClient *redis.Client, opts Options, logger *logrus.Logger) *CachedCatalog {
	if opts.MemoryItems <= 0 {
		opts.MemoryItems = 256
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = 5 * time.Minute
	}
	if opts.RedisTTL <= 0 {
		opts.RedisTTL = time.Hour
	}

	return &CachedCatalog{
		backing:  backing,
		memory:   expirable.NewLRU[string, []byte](opts.MemoryItems, nil, opts.MemoryTTL),
		redis:    redisClient,
		redisTTL: opts.RedisTTL,
		logger:   logger,
	}
}

func (c *CachedCatalog) GetPlan(ctx context.Context, name string) (*domain.InsurancePlan, error) {
	return lookup(ctx, c, "plan:"+catalog.NormalizeName(name), func() (*domain.InsurancePlan, error) {
		return c.backing.GetPlan(ctx, name)
	})
}

func (c *CachedCatalog) ListPlans(ctx context.Context) ([]domain.InsurancePlan, error) {
	return c.backing.ListPlans(ctx)
}

func (c *CachedCatalog) GetPackage(ctx context.Context, name string) (*domain.PackageDefinition, error) {
	return lookup(ctx, c, "package:"+catalog.NormalizeName(name), func() (*domain.PackageDefinition, error) {
		return c.backing.GetPackage(ctx, name)
	})
}

func (c *CachedCatalog) ListPackages(ctx context.Context) ([]domain.PackageDefinition, error) {
	return c.backing.ListPackages(ctx)
}

func (c *CachedCatalog) GetIncentiveRule(ctx context.Context, key string) (*domain.IncentiveRule, error) {
	return lookup(ctx, c, "rule:"+catalog.NormalizeName(key), func() (*domain.IncentiveRule, error) {
		return c.backing.GetIncentiveRule(ctx, key)
	})
}

// Invalidate drops a plan, package or rule of the given name from both tiers.
func (c *CachedCatalog) Invalidate(ctx context.Context, name string) error {
	norm := catalog.NormalizeName(name)
	keys := []string{"plan:" + norm, "package:" + norm, "rule:" + norm}

	for _, k := range keys {
		c.memory.Remove(k)
	}

	if c.redis != nil {
		redisKeys := make([]string, len(keys))
		for i, k := range keys {
			redisKeys[i] = keyPrefix + k
		}
		if err := c.redis.Del(ctx, redisKeys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate %q in Redis: %w", name, err)
		}
	}

	c.logger.WithField("name", name).Info("Invalidated catalog cache entry")
	return nil
}

// Stats returns cache performance counters.
func (c *CachedCatalog) Stats() Stats {
	return Stats{
		MemoryHits:   c.memoryHits.Load(),
		RedisHits:    c.redisHits.Load(),
		BackingCalls: c.backingHits.Load(),
		ErrorCount:   c.errors.Load(),
		MemoryItems:  c.memory.Len(),
	}
}

func lookup[T any](ctx context.Context, c *CachedCatalog, key string, fetch func() (*T, error)) (*T, error) {
	if data, ok := c.memory.Get(key); ok {
		if v, err := decode[T](data); err == nil {
			c.memoryHits.Add(1)
			return v, nil
		}
		c.memory.Remove(key)
	}

	if data, ok := c.getFromRedis(ctx, key); ok {
		if v, err := decode[T](data); err == nil {
			c.redisHits.Add(1)
			c.memory.Add(key, data)
			c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "redis"}).Debug("Cache hit in Redis")
			return v, nil
		}
		// Remove corrupted cache entry
		c.redis.Del(ctx, keyPrefix+key)
	}

	c.backingHits.Add(1)
	v, err := fetch()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.errors.Add(1)
		}
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog entry: %w", err)
	}
	c.memory.Add(key, data)
	c.setInRedis(ctx, key, data)

	return v, nil
}

func (c *CachedCatalog) getFromRedis(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.errors.Add(1)
		c.logger.WithError(err).WithField("key", key).Warn("Redis catalog lookup failed, falling back")
		return nil, false
	}
	return data, true
}

func (c *CachedCatalog) setInRedis(ctx context.Context, key string, data []byte) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+key, data, c.redisTTL).Err(); err != nil {
		c.errors.Add(1)
		c.logger.WithError(err).WithField("key", key).Warn("Failed to populate Redis catalog cache")
	}
}

func decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
