package simserver

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
	pkgredis "github.com/cjdd3b/car-datascience-toolkit/pkg/redis"
)

const cacheKeyPrefix = "similar:"

// Cache stores similarity lookup responses in Redis with a TTL.
// Concurrent misses for the same key are collapsed with singleflight so the
// database sees one query per key.
type Cache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *Cache {
	return &Cache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("similarity-cache"),
	}
}

func (c *Cache) Get(ctx context.Context, docID string, limit int) (*SimilarResponse, bool) {
	key := c.buildKey(docID, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var resp SimilarResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &resp, true
}

func (c *Cache) Set(ctx context.Context, docID string, limit int, resp *SimilarResponse) {
	key := c.buildKey(docID, limit)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) GetOrCompute(
	ctx context.Context,
	docID string,
	limit int,
	computeFn func() (*SimilarResponse, error),
) (*SimilarResponse, bool, error) {
	if resp, ok := c.Get(ctx, docID, limit); ok {
		return resp, true, nil
	}
	key := c.buildKey(docID, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.Get(ctx, docID, limit); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, docID, limit, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*SimilarResponse), false, nil
}

// Invalidate drops every cached similarity response, typically after a
// fresh pipeline run is loaded.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating similarity cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *Cache) buildKey(docID string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", docID, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
