// Package cache stores raw category payloads in Redis keyed by account
// and category. Freshness is decided from the fetchedAt timestamp
// stored inside the entry, not from the Redis key TTL: a stale entry
// stays readable for immediate display while a background refetch
// replaces it. The Redis expiry is only a janitor that clears entries
// nobody has refreshed in a long time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/common/metrics"
	"sellerqi-insights/internal/models"
)

// Entry is one cached category payload. Data holds the upstream
// response verbatim so normalization stays a pure function of it.
type Entry struct {
	Account   string          `json:"account"`
	Category  models.Category `json:"category"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// FreshWithin reports whether the entry is younger than the TTL.
func (e *Entry) FreshWithin(ttl time.Duration, now time.Time) bool {
	return e.Age(now) < ttl
}

// CategoryCache is the Redis-backed category payload cache.
type CategoryCache struct {
	rdb        *redis.Client
	janitorTTL time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// New builds a cache on top of an existing Redis client.
func New(rdb *redis.Client, janitorTTL time.Duration, log logger.Logger) *CategoryCache {
	return &CategoryCache{
		rdb:        rdb,
		janitorTTL: janitorTTL,
		logger:     log.WithFields(map[string]interface{}{"component": "cache"}),
		now:        time.Now,
	}
}

func cacheKey(account string, category models.Category) string {
	return "issues:" + account + ":" + string(category)
}

// Lookup is the result of a cache read.
type Lookup struct {
	Entry *Entry
	Fresh bool
}

// Get reads the entry for account+category and classifies it against
// the given freshness TTL. A missing key returns a nil Entry and no
// error; Redis being unreachable returns a CACHE_UNAVAILABLE error so
// callers can fall through to a live fetch.
func (c *CategoryCache) Get(ctx context.Context, account string, category models.Category, ttl time.Duration) (Lookup, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(account, category)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.WithLabelValues(string(category)).Inc()
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, stderrors.NewCacheUnavailableError(err).WithCategory(string(category))
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the
		// next Put.
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{
			"account":  account,
			"category": string(category),
			"error":    err.Error(),
		})
		metrics.CacheMissesTotal.WithLabelValues(string(category)).Inc()
		return Lookup{}, nil
	}

	fresh := entry.FreshWithin(ttl, c.now())
	freshness := "stale"
	if fresh {
		freshness = "fresh"
	}
	metrics.CacheHitsTotal.WithLabelValues(string(category), freshness).Inc()

	return Lookup{Entry: &entry, Fresh: fresh}, nil
}

// Put replaces the entry for account+category in a single SET, so
// readers always observe either the old payload or the new one whole.
func (c *CategoryCache) Put(ctx context.Context, account string, category models.Category, data json.RawMessage) error {
	entry := Entry{
		Account:   account,
		Category:  category,
		Data:      data,
		FetchedAt: c.now().UTC(),
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return stderrors.NewCacheUnavailableError(err).WithCategory(string(category))
	}

	if err := c.rdb.Set(ctx, cacheKey(account, category), encoded, c.janitorTTL).Err(); err != nil {
		return stderrors.NewCacheUnavailableError(err).WithCategory(string(category))
	}
	return nil
}

// Invalidate drops the entry for account+category.
func (c *CategoryCache) Invalidate(ctx context.Context, account string, category models.Category) error {
	if err := c.rdb.Del(ctx, cacheKey(account, category)).Err(); err != nil {
		return stderrors.NewCacheUnavailableError(err).WithCategory(string(category))
	}
	return nil
}

// InvalidateAccount drops every category entry for the account.
func (c *CategoryCache) InvalidateAccount(ctx context.Context, account string) error {
	keys := make([]string, 0, len(models.IssueCategories))
	for _, category := range models.IssueCategories {
		keys = append(keys, cacheKey(account, category))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return stderrors.NewCacheUnavailableError(err)
	}
	return nil
}
