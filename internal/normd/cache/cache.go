// Package cache implements the Redis-backed transform-result cache. Entries
// are keyed by the fitted-model digest plus a digest of the documents being
// transformed, so a re-fit naturally invalidates everything it should.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/lexstat/pivotnorm/internal/weighting"
	"github.com/lexstat/pivotnorm/pkg/config"
	"github.com/lexstat/pivotnorm/pkg/metrics"
	pkgredis "github.com/lexstat/pivotnorm/pkg/redis"
)

const keyPrefix = "transform:"

// TransformCache caches normalized-vector results in Redis and collapses
// concurrent identical requests with singleflight.
type TransformCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a TransformCache on top of an established Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *TransformCache {
	return &TransformCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "transform-cache"),
	}
}

// Key builds the cache key for a document batch under a given model digest.
func Key(modelDigest string, docs []weighting.CountVector) string {
	h := sha256.New()
	h.Write([]byte(modelDigest))
	enc := json.NewEncoder(h)
	for _, doc := range docs {
		enc.Encode(doc)
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, modelDigest, h.Sum(nil)[:16])
}

// GetOrCompute returns the cached vectors for key, or runs computeFn once
// (across concurrent callers) and stores the result.
func (c *TransformCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() ([]weighting.WeightVector, error),
) ([]weighting.WeightVector, error) {
	if vectors, ok := c.get(ctx, key); ok {
		return vectors, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if vectors, ok := c.get(ctx, key); ok {
			return vectors, nil
		}
		vectors, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, vectors)
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]weighting.WeightVector), nil
}

// Invalidate removes every cached entry.
func (c *TransformCache) Invalidate(ctx context.Context) (int64, error) {
	return c.client.FlushByPattern(ctx, keyPrefix+"*")
}

// Stats returns the hit and miss counters accumulated by this process.
func (c *TransformCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *TransformCache) get(ctx context.Context, key string) ([]weighting.WeightVector, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var vectors []weighting.WeightVector
	if err := json.Unmarshal([]byte(data), &vectors); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return vectors, true
}

func (c *TransformCache) set(ctx context.Context, key string, vectors []weighting.WeightVector) {
	data, err := json.Marshal(vectors)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *TransformCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
