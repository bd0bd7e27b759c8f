// Package audit keeps the append-only action trail and its XLSX export.
// Recording is asynchronous so the booking path never waits on the trail.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stillwater/internal/models"
)

// TrailStore persists audit entries.
type TrailStore interface {
	InsertAudit(ctx context.Context, e *models.AuditEntry) error
}

const queueSize = 256

// Trail buffers entries and writes them from a single background worker.
type Trail struct {
	store   TrailStore
	logger  *zerolog.Logger
	queue   chan *models.AuditEntry
	wg      sync.WaitGroup
	closing sync.Once
}

// NewTrail starts the background writer.
func NewTrail(store TrailStore, logger *zerolog.Logger) *Trail {
	t := &Trail{
		store:  store,
		logger: logger,
		queue:  make(chan *models.AuditEntry, queueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *Trail) run() {
	defer t.wg.Done()
	for e := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.store.InsertAudit(ctx, e); err != nil {
			t.logger.Error().Err(err).Str("action", e.Action).Msg("audit insert failed")
		}
		cancel()
	}
}

// Record queues one entry. A full queue drops the entry with a warning
// rather than stalling the caller.
func (t *Trail) Record(action, entityID string, userID *string, details map[string]interface{}) {
	var payload []byte
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			t.logger.Error().Err(err).Str("action", action).Msg("audit details marshal")
		} else {
			payload = b
		}
	}
	e := &models.AuditEntry{
		Action:     action,
		UserID:     userID,
		EntityID:   entityID,
		EntityType: "booking",
		Details:    payload,
	}
	select {
	case t.queue <- e:
	default:
		t.logger.Warn().Str("action", action).Msg("audit queue full, entry dropped")
	}
}

// Close drains the queue and stops the worker.
func (t *Trail) Close() {
	t.closing.Do(func() { close(t.queue) })
	t.wg.Wait()
}
