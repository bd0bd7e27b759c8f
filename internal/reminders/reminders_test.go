package reminders

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stillwater/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	due       map[string][]models.Booking
	marked    []string
	markErr   error
	askedDate string
}

func (f *fakeStore) DueReminders(_ context.Context, date string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.askedDate = date
	return f.due[date], nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (f *fakeSender) Send(to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, to)
	return nil
}

func newService(store *fakeStore, sender *fakeSender) *Service {
	logger := zerolog.New(io.Discard)
	svc := NewService(store, sender, time.UTC, &logger)
	svc.now = func() time.Time {
		return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestRemindersForTomorrow(t *testing.T) {
	store := &fakeStore{due: map[string][]models.Booking{
		"2026-02-02": {
			{ID: "bk1", Email: "a@example.com", Name: "Asha", Time: "10:00 AM", Date: "2026-02-02"},
			{ID: "bk2", Email: "b@example.com", Name: "Ravi", Time: "11:30 AM", Date: "2026-02-02"},
		},
	}}
	sender := &fakeSender{}

	err := newService(store, sender).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2026-02-02", store.askedDate)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, sender.sent)
	assert.ElementsMatch(t, []string{"bk1", "bk2"}, store.marked)
}

func TestFailedSendIsNotMarked(t *testing.T) {
	store := &fakeStore{due: map[string][]models.Booking{
		"2026-02-02": {
			{ID: "bk1", Email: "a@example.com", Name: "Asha", Time: "10:00 AM"},
			{ID: "bk2", Email: "down@example.com", Name: "Ravi", Time: "11:30 AM"},
		},
	}}
	sender := &fakeSender{fail: map[string]bool{"down@example.com": true}}

	err := newService(store, sender).Run(context.Background())
	require.NoError(t, err)

	// The failed recipient stays unmarked and is retried on the next pass.
	assert.Equal(t, []string{"bk1"}, store.marked)
}

func TestNothingDue(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}

	err := newService(store, sender).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}
