package sweeper

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stillwater/internal/models"
)

type fakeSweepStore struct {
	mu    sync.Mutex
	stale []models.Booking
	calls int
	ttl   time.Duration
	err   error
}

func (f *fakeSweepStore) ReleaseStalePending(_ context.Context, olderThan time.Duration) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ttl = olderThan
	if f.err != nil {
		return nil, f.err
	}
	out := f.stale
	f.stale = nil
	return out, nil
}

type fakeReleaser struct {
	mu       sync.Mutex
	released []models.Booking
}

func (f *fakeReleaser) ReleaseSwept(_ context.Context, stale []models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, stale...)
}

func TestSweepReleasesStale(t *testing.T) {
	store := &fakeSweepStore{stale: []models.Booking{
		{ID: "bk1", Date: "2026-02-08", Time: "11:30 AM", PaymentStatus: models.PaymentFailed},
		{ID: "bk2", Date: "2026-02-08", Time: "12:00 PM", PaymentStatus: models.PaymentFailed},
	}}
	releaser := &fakeReleaser{}
	logger := zerolog.New(io.Discard)

	svc := NewService(Config{PendingTTL: 30 * time.Minute}, store, releaser, &logger)
	svc.sweepOnce()

	require.Len(t, releaser.released, 2)
	assert.Equal(t, "bk1", releaser.released[0].ID)
	assert.Equal(t, 30*time.Minute, store.ttl)
}

func TestSweepNothingStale(t *testing.T) {
	store := &fakeSweepStore{}
	releaser := &fakeReleaser{}
	logger := zerolog.New(io.Discard)

	svc := NewService(Config{}, store, releaser, &logger)
	svc.sweepOnce()

	assert.Empty(t, releaser.released)
	assert.Equal(t, DefaultConfig().PendingTTL, store.ttl)
}

func TestStartStop(t *testing.T) {
	store := &fakeSweepStore{}
	releaser := &fakeReleaser{}
	logger := zerolog.New(io.Discard)

	svc := NewService(Config{Interval: time.Hour}, store, releaser, &logger)
	svc.Start()
	svc.Start() // second start is a no-op
	svc.Stop()
	svc.Stop() // second stop is a no-op

	store.mu.Lock()
	defer store.mu.Unlock()
	// The loop sweeps once on start regardless of the ticker.
	assert.Equal(t, 1, store.calls)
}
