package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/corpuskit/novel-analyzer/pkg/config"
	pkgredis "github.com/corpuskit/novel-analyzer/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache caches search results in Redis, keyed by document, query, and
// limit. Concurrent identical lookups are deduplicated with singleflight.
type ResultCache struct {
	client Backend
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a ResultCache backed by the given Redis client.
func NewCache(client Backend, cfg config.RedisConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-cache"),
	}
}

// Get returns the cached result for the key parameters, if present.
func (c *ResultCache) Get(ctx context.Context, docID, query string, limit int) (*Result, bool) {
	key := c.buildKey(docID, query, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "doc_id", docID, "query", query)
	return &result, true
}

// Set stores a result under the key parameters with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, docID, query string, limit int, result *Result) {
	key := c.buildKey(docID, query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and caches it. The
// second return value reports whether the result came from the cache.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	docID, query string,
	limit int,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	if result, ok := c.Get(ctx, docID, query, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(docID, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Double-check under the flight: a concurrent caller may have
		// populated the key since the lookup above.
		if result, ok := c.Get(ctx, docID, query, limit); ok {
			return flightResult{result: result, cached: true}, nil
		}
		result, err := computeFn()
		if err != nil {
			return flightResult{}, err
		}
		c.Set(ctx, docID, query, limit, result)
		return flightResult{result: result}, nil
	})
	if err != nil {
		return nil, false, err
	}
	fr := val.(flightResult)
	return fr.result, fr.cached, nil
}

// flightResult carries a singleflight outcome together with whether it was
// served from the cache, so coalesced callers report hits honestly.
type flightResult struct {
	result *Result
	cached bool
}

// Invalidate drops every cached search result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Info("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// InvalidateDoc drops cached results for a single document.
func (c *ResultCache) InvalidateDoc(ctx context.Context, docID string) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+docID+":*")
	if err != nil {
		return fmt.Errorf("invalidating search cache for %s: %w", docID, err)
	}
	c.logger.Info("search cache invalidated", "doc_id", docID, "keys_deleted", deleted)
	return nil
}

// Stats returns the cache hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) buildKey(docID, query string, limit int) string {
	raw := fmt.Sprintf("%s|limit=%d|%s", query, limit, docID)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, docID, hash[:16])
}
