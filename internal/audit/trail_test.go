package audit

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stillwater/internal/models"
)

type captureStore struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (c *captureStore) InsertAudit(_ context.Context, e *models.AuditEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureStore) all() []*models.AuditEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.AuditEntry(nil), c.entries...)
}

func TestTrailRecordsAsync(t *testing.T) {
	store := &captureStore{}
	logger := zerolog.New(io.Discard)
	trail := NewTrail(store, &logger)

	user := "user1"
	trail.Record("booking_created", "bk1", &user, map[string]interface{}{"date": "2026-02-02"})
	trail.Record("payment_verified", "bk1", nil, nil)
	trail.Close()

	entries := store.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "booking_created", entries[0].Action)
	assert.Equal(t, "bk1", entries[0].EntityID)
	assert.Equal(t, "booking", entries[0].EntityType)
	assert.JSONEq(t, `{"date":"2026-02-02"}`, string(entries[0].Details))
	assert.Nil(t, entries[1].UserID)
	assert.Empty(t, entries[1].Details)
}

type fixedExportStore struct {
	entries []models.AuditEntry
}

func (f *fixedExportStore) AuditEntries(context.Context, time.Time, time.Time) ([]models.AuditEntry, error) {
	return f.entries, nil
}

func TestExportWritesWorkbook(t *testing.T) {
	user := "user1"
	store := &fixedExportStore{entries: []models.AuditEntry{
		{
			ID: 1, Action: "booking_created", UserID: &user,
			EntityID: "bk1", EntityType: "booking",
			Details:   []byte(`{"kind":"paid"}`),
			CreatedAt: time.Date(2026, 2, 8, 11, 30, 0, 0, time.UTC),
		},
		{
			ID: 2, Action: "payment_verified",
			EntityID: "bk1", EntityType: "booking",
			CreatedAt: time.Date(2026, 2, 8, 11, 32, 0, 0, time.UTC),
		},
	}}

	var buf bytes.Buffer
	err := NewExporter(store).WriteXLSX(context.Background(),
		time.Time{}, time.Now(), &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Audit")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Action", rows[0][1])
	assert.Equal(t, "booking_created", rows[1][1])
	assert.Equal(t, "user1", rows[1][2])
	assert.Equal(t, "payment_verified", rows[2][1])
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "audit_2026-08.xlsx", ExportFilename(ts))
}
