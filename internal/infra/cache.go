package infra

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	reportCachePrefix = "reports:"
	reportGenKey      = reportCachePrefix + "gen"
)

// ReportCache keeps report summaries in Redis. Entries are keyed under a
// generation counter; Invalidate bumps the counter so every older entry is
// unreachable and left to expire on its TTL.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// Get looks key up under the current generation and returns that
// generation for a later Set. gen is "" when Redis could not be asked.
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, string, bool) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return nil, "", false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, "", false
	}
	val, err := c.rdb.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("report cache: get failed")
		}
		return nil, gen, false
	}
	return val, gen, true
}

// Set stores value under gen, the generation returned by the Get that
// preceded the computation. An invalidated gen is never read again.
func (c *ReportCache) Set(ctx context.Context, gen, key string, value []byte) {
	if c == nil || c.rdb == nil || c.ttl <= 0 || gen == "" {
		return
	}
	if err := c.rdb.Set(ctx, c.entryKey(gen, key), value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("report cache: set failed")
	}
}

func (c *ReportCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, reportGenKey).Err(); err != nil {
		log.Warn().Err(err).Msg("report cache: invalidate failed")
	}
}

func (c *ReportCache) generation(ctx context.Context) (string, error) {
	gen, err := c.rdb.Get(ctx, reportGenKey).Result()
	if err == redis.Nil {
		return "0", nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("report cache: generation lookup failed")
	}
	return gen, err
}

func (c *ReportCache) entryKey(gen, key string) string {
	sum := sha1.Sum([]byte(key))
	return reportCachePrefix + gen + ":" + hex.EncodeToString(sum[:])
}
