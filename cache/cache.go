// Package cache is a look-aside JSON cache for computed API responses.
// It is never authoritative: every backend failure is logged and treated
// as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "mgnrega:"

// Cache types and their lifetimes.
const (
	TypeDistrict            = "district"
	TypeAllDistricts        = "all_districts"
	TypeDistrictList        = "district_list"
	TypeComparison          = "comparison"
	TypeStatsState          = "stats_state"
	TypeStatsDashboard      = "stats_dashboard"
	TypeStatsRankings       = "stats_rankings"
	TypeStatsDistrictTrends = "stats_district_trends"
	TypeStatsStateTrends    = "stats_state_trends"
	TypeSitemap             = "sitemap"

	TTLDistrict     = 24 * time.Hour
	TTLAllDistricts = 24 * time.Hour
	TTLDistrictList = 7 * 24 * time.Hour
	TTLComparison   = 12 * time.Hour
	TTLStatistics   = 6 * time.Hour
	TTLRankings     = 12 * time.Hour
	TTLTrends       = 12 * time.Hour
	TTLSitemap      = 24 * time.Hour
)

const scanBatch = 100

// redisClient is the subset of the go-redis client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Cache stores JSON values in Redis, or in process memory when Redis is
// not configured.
type Cache struct {
	client redisClient
	local  *gocache.Cache
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewRedis returns a cache backed by client.
func NewRedis(client redisClient, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: componentLogger(logger)}
}

// NewLocal returns an in-process cache. defaultTTL applies when Set is
// called with a zero TTL.
func NewLocal(defaultTTL, cleanupInterval time.Duration, logger *slog.Logger) *Cache {
	return &Cache{local: gocache.New(defaultTTL, cleanupInterval), logger: componentLogger(logger)}
}

func componentLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "cache")
}

// Backend names the storage in use.
func (c *Cache) Backend() string {
	if c.client != nil {
		return "redis"
	}
	return "memory"
}

// Key builds "mgnrega:{type}:{k}:{v}:..." with params sorted by name.
// Empty values are left out.
func Key(typ string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+":"+params[k])
	}
	return KeyPrefix + typ + ":" + strings.Join(parts, ":")
}

// Get decodes the cached value into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, typ string, params map[string]string, dest any) bool {
	key := Key(typ, params)

	var data []byte
	if c.client != nil {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return false
		}
		if err != nil {
			c.errors.Add(1)
			c.logger.Warn("cache get failed", "key", key, "error", err)
			return false
		}
		data = b
	} else {
		v, ok := c.local.Get(key)
		if !ok {
			c.misses.Add(1)
			return false
		}
		data = v.([]byte)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache entry undecodable, dropping", "key", key, "error", err)
		c.Delete(ctx, typ, params)
		return false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return true
}

// Set stores value under the key for typ and params.
func (c *Cache) Set(ctx context.Context, typ string, params map[string]string, value any, ttl time.Duration) {
	key := Key(typ, params)
	data, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache value not encodable", "key", key, "error", err)
		return
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			c.errors.Add(1)
			c.logger.Warn("cache set failed", "key", key, "error", err)
			return
		}
	} else {
		if ttl == 0 {
			ttl = gocache.DefaultExpiration
		}
		c.local.Set(key, data, ttl)
	}
	c.logger.Debug("cache set", "key", key, "ttl", ttl)
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, typ string, params map[string]string) {
	key := Key(typ, params)
	if c.client == nil {
		c.local.Delete(key)
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// InvalidateType removes every entry of one cache type and returns how many
// were removed.
func (c *Cache) InvalidateType(ctx context.Context, typ string) int {
	return c.deletePrefix(ctx, KeyPrefix+typ+":")
}

// InvalidateAll removes every entry this service wrote.
func (c *Cache) InvalidateAll(ctx context.Context) int {
	n := c.deletePrefix(ctx, KeyPrefix)
	c.logger.Info("cache invalidated", "removed", n)
	return n
}

func (c *Cache) deletePrefix(ctx context.Context, prefix string) int {
	if c.client == nil {
		removed := 0
		for key := range c.local.Items() {
			if strings.HasPrefix(key, prefix) {
				c.local.Delete(key)
				removed++
			}
		}
		return removed
	}

	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			c.errors.Add(1)
			c.logger.Warn("cache scan failed", "prefix", prefix, "error", err)
			return removed
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.errors.Add(1)
				c.logger.Warn("cache delete failed", "prefix", prefix, "error", err)
				return removed
			}
			removed += int(n)
		}
		if next == 0 {
			return removed
		}
		cursor = next
	}
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Stats holds lookup counters since start.
type Stats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries,omitempty"`
}

// Stats returns current counters. Counters are read atomically.
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Backend: c.Backend(),
		Hits:    hits,
		Misses:  misses,
		Errors:  c.errors.Load(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	if c.local != nil {
		s.Entries = c.local.ItemCount()
	}
	return s
}
