// Package cache keeps a Redis mirror of the reserved slot set per date.
// It is the secondary read path for availability when Postgres is down
// and is refreshed on every successful primary read.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrMiss means the cache holds nothing for the requested date.
var ErrMiss = errors.New("availability cache miss")

// AvailabilityCache mirrors booked time labels keyed by date.
type AvailabilityCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// New creates a cache with the given entry TTL.
func New(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AvailabilityCache{rdb: rdb, ttl: ttl, logger: logger}
}

func slotKey(date string) string {
	return "slots:" + date
}

// BookedTimes returns the cached reserved labels for date. A date with no
// reservations is cached as an explicit empty marker so a miss is
// distinguishable from "all free".
func (c *AvailabilityCache) BookedTimes(ctx context.Context, date string) ([]string, error) {
	key := slotKey(date)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache exists %s: %w", key, err)
	}
	if exists == 0 {
		return nil, ErrMiss
	}

	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache read %s: %w", key, err)
	}

	times := make([]string, 0, len(members))
	for _, m := range members {
		if m == emptyMarker {
			continue
		}
		times = append(times, m)
	}
	return times, nil
}

// emptyMarker keeps a set alive in Redis when a date has no reservations.
const emptyMarker = "__none__"

// SetBookedTimes replaces the cached reserved set for date.
func (c *AvailabilityCache) SetBookedTimes(ctx context.Context, date string, times []string) error {
	key := slotKey(date)

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	members := make([]interface{}, 0, len(times)+1)
	members = append(members, emptyMarker)
	for _, t := range times {
		members = append(members, t)
	}
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache write %s: %w", key, err)
	}
	return nil
}

// AddBookedTime records a freshly reserved label. No-op if the date is not
// cached yet; the next primary read will populate it.
func (c *AvailabilityCache) AddBookedTime(ctx context.Context, date, label string) {
	key := slotKey(date)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}
	if err := c.rdb.SAdd(ctx, key, label).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("Failed to extend availability cache")
	}
}

// RemoveBookedTime drops a released label from the cached set.
func (c *AvailabilityCache) RemoveBookedTime(ctx context.Context, date, label string) {
	if err := c.rdb.SRem(ctx, slotKey(date), label).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("Failed to trim availability cache")
	}
}
