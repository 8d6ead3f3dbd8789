// Package cache provides a Redis-backed scan-result cache with singleflight
// deduplication of concurrent identical queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/permscan/permscan/internal/scanner/executor"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/metrics"
	pkgredis "github.com/permscan/permscan/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "scan:"

// QueryCache caches ScanResults in Redis keyed by pattern, mode, and limit.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil when metrics are disabled.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "scan-cache"),
	}
}

// Get returns a cached result for the query, if present.
func (c *QueryCache) Get(ctx context.Context, q executor.Query) (*executor.ScanResult, bool) {
	key := c.buildKey(q)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var result executor.ScanResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

// Set stores a result under the query's key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, q executor.Query, result *executor.ScanResult) {
	key := c.buildKey(q)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and caches it.
// Concurrent identical queries share one computation via singleflight. The
// returned bool reports whether the result came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q executor.Query,
	computeFn func() (*executor.ScanResult, error),
) (*executor.ScanResult, bool, error) {
	if result, ok := c.Get(ctx, q); ok {
		return result, true, nil
	}
	key := c.buildKey(q)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, q); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.ScanResult), false, nil
}

// Invalidate removes every cached scan result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating scan cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(q executor.Query) string {
	raw := fmt.Sprintf("%s|%s|%d", q.Pattern, q.Mode, q.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
