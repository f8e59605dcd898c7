// Package cache is the caller-side report cache: assembled payloads keyed by
// the (today, baseline) pair. Invalidation is by key construction, since any
// date change produces a different key; entries also expire on a TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
	"github.com/revlens/revlens/internal/report"
)

// ReportCache stores payloads in Redis.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps a Redis client. TTL <= 0 falls back to five minutes.
func New(rdb *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// Key renders the cache key for one (today, baseline) pair.
func Key(today, baseline time.Time) string {
	return fmt.Sprintf("report:%s:%s", domain.FormatDay(today), domain.FormatDay(baseline))
}

// Get returns the cached payload for the date pair, with a hit flag. Cache
// infrastructure errors are logged and reported as misses; the caller can
// always rebuild.
func (c *ReportCache) Get(ctx context.Context, today, baseline time.Time) (*report.Payload, bool) {
	data, err := c.rdb.Get(ctx, Key(today, baseline)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("report cache get failed, treating as miss")
		return nil, false
	}

	var payload report.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warn().Err(err).Msg("report cache entry corrupt, treating as miss")
		return nil, false
	}
	return &payload, true
}

// Put stores a payload under its date-pair key.
func (c *ReportCache) Put(ctx context.Context, today, baseline time.Time, payload *report.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(today, baseline), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}
	return nil
}
