// Package reminders mails next-day session reminders. The check runs on
// a schedule; each booking is reminded at most once, tracked in the store.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stillwater/internal/metrics"
	"stillwater/internal/models"
	"stillwater/internal/notify"
)

// BookingStore reads confirmed bookings due a reminder and marks them done.
type BookingStore interface {
	DueReminders(ctx context.Context, date string) ([]models.Booking, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// Sender delivers one email.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

const maxConcurrentSends = 10

// Service checks tomorrow's bookings and sends reminders.
type Service struct {
	store  BookingStore
	sender Sender
	loc    *time.Location
	logger *zerolog.Logger

	now func() time.Time
}

func NewService(store BookingStore, sender Sender, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:  store,
		sender: sender,
		loc:    loc,
		logger: logger,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// Run performs one reminder pass for tomorrow's sessions.
func (s *Service) Run(ctx context.Context) error {
	tomorrow := s.now().AddDate(0, 0, 1).Format(models.DateFormat)

	due, err := s.store.DueReminders(ctx, tomorrow)
	if err != nil {
		s.logger.Error().Err(err).Str("date", tomorrow).Msg("reminder lookup failed")
		return err
	}
	if len(due) == 0 {
		return nil
	}

	sem := make(chan struct{}, maxConcurrentSends)
	var wg sync.WaitGroup

	for _, b := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(b models.Booking) {
			defer wg.Done()
			defer func() { <-sem }()

			body := notify.ReminderBody(b.Name, b.Time)
			if err := s.sender.Send(b.Email, notify.ReminderSubject, body); err != nil {
				s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("reminder send failed")
				return
			}
			if err := s.store.MarkReminderSent(ctx, b.ID); err != nil {
				s.logger.Error().Err(err).Str("booking_id", b.ID).
					Msg("could not mark reminder sent")
				return
			}
			metrics.IncReminderSent()
			s.logger.Info().Str("booking_id", b.ID).Str("date", b.Date).
				Msg("reminder sent")
		}(b)
	}

	wg.Wait()
	return nil
}
