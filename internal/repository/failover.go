// Package repository provides the failover read path for availability.
// The primary reader is Postgres; the fallback is the Redis availability
// mirror. A read that fails on both paths is surfaced as an error so
// callers never mistake "unreadable" for "all slots free".
package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"stillwater/internal/metrics"
)

// SlotReader reads the reserved time labels for a date.
type SlotReader interface {
	BookedTimes(ctx context.Context, date string) ([]string, error)
}

// SlotCache is the fallback reader plus its refresh hook.
type SlotCache interface {
	SlotReader
	SetBookedTimes(ctx context.Context, date string, times []string) error
}

// recoveryInterval is how long the primary stays benched after a failure
// before the next read probes it again.
const recoveryInterval = time.Minute

// FailoverSlotReader reads from the primary store and falls back to the
// cache while the primary is down, probing for recovery periodically.
type FailoverSlotReader struct {
	primary  SlotReader
	fallback SlotCache
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewFailoverSlotReader wires the primary and fallback readers.
func NewFailoverSlotReader(primary SlotReader, fallback SlotCache, logger *zerolog.Logger) *FailoverSlotReader {
	return &FailoverSlotReader{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// BookedTimes returns the reserved labels for date. On primary success the
// fallback mirror is refreshed best-effort.
func (r *FailoverSlotReader) BookedTimes(ctx context.Context, date string) ([]string, error) {
	if r.shouldTryPrimary() {
		times, err := r.primary.BookedTimes(ctx, date)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary slot store recovered")
			}
			if r.fallback != nil {
				if cacheErr := r.fallback.SetBookedTimes(ctx, date, times); cacheErr != nil {
					r.logger.Warn().Err(cacheErr).Str("date", date).Msg("Failed to refresh slot cache")
				}
			}
			return times, nil
		}

		r.markDown()
		r.logger.Error().Err(err).Str("date", date).Msg("Primary slot read failed, using fallback")
	}

	if r.fallback == nil {
		return nil, fmt.Errorf("slot store unavailable for %s", date)
	}

	times, err := r.fallback.BookedTimes(ctx, date)
	if err != nil {
		// Both paths are unreadable; the caller must treat this as
		// retryable rather than assume an empty reserved set.
		return nil, fmt.Errorf("slot store and cache unavailable for %s: %w", date, err)
	}
	metrics.IncAvailabilityFallback()
	return times, nil
}

// shouldTryPrimary reports whether this read should hit the primary:
// either it is healthy, or the bench period has elapsed and it is time
// for a recovery probe.
func (r *FailoverSlotReader) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) >= recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSlotReader) markDown() {
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}
