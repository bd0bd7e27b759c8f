// Package sweeper reclaims slots held by paid bookings whose payment
// never arrived. A pending booking older than the TTL is marked failed
// and its slot returns to availability.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stillwater/internal/models"
)

// Config holds the sweep cadence and the pending hold TTL.
type Config struct {
	// Interval is how often stale bookings are checked. Default: 5 minutes.
	Interval time.Duration

	// PendingTTL is how long a pending booking may hold its slot.
	// Default: 30 minutes.
	PendingTTL time.Duration
}

// DefaultConfig returns the default cadence and TTL.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		PendingTTL: 30 * time.Minute,
	}
}

// SweepStore fails stale pending bookings and returns what was released.
type SweepStore interface {
	ReleaseStalePending(ctx context.Context, olderThan time.Duration) ([]models.Booking, error)
}

// Releaser propagates released slots to the cache and event consumers.
type Releaser interface {
	ReleaseSwept(ctx context.Context, stale []models.Booking)
}

// Service runs the sweep loop.
type Service struct {
	cfg      Config
	store    SweepStore
	releaser Releaser
	logger   *zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewService builds a sweeper. Zero config fields fall back to defaults.
func NewService(cfg Config, store SweepStore, releaser Releaser, logger *zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultConfig().PendingTTL
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		releaser: releaser,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Dur("interval", s.cfg.Interval).
		Dur("pending_ttl", s.cfg.PendingTTL).Msg("sweeper started")
}

// Stop halts the loop and waits for an in-flight sweep.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("sweeper stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	s.sweepOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Service) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stale, err := s.store.ReleaseStalePending(ctx, s.cfg.PendingTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		return
	}
	if len(stale) == 0 {
		return
	}

	s.releaser.ReleaseSwept(ctx, stale)
	s.logger.Info().Int("count", len(stale)).Msg("stale pending bookings released")
}
