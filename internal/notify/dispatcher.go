package notify

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"stillwater/internal/events"
)

// Sender is the mail surface the dispatcher needs.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Dispatcher listens for confirmed bookings and sends the welcome mail in
// the background. Failures are logged, never propagated to the caller.
type Dispatcher struct {
	sender Sender
	logger *zerolog.Logger
}

func NewDispatcher(sender Sender, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Attach subscribes the dispatcher to the event bus.
func (d *Dispatcher) Attach(bus *events.EventBus) {
	bus.Subscribe(events.TypeBookingConfirmed, d.onConfirmed)
}

func (d *Dispatcher) onConfirmed(event events.Event) error {
	var ev events.BookingEvent
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		d.logger.Error().Err(err).Msg("notify: bad confirmation payload")
		return err
	}
	if ev.Email == "" {
		return nil
	}
	go func() {
		body := ConfirmationBody(ev.Name, ev.Date, ev.Time, ev.MeetingLink)
		if err := d.sender.Send(ev.Email, ConfirmationSubject, body); err != nil {
			d.logger.Error().Err(err).
				Str("booking_id", ev.BookingID).
				Msg("notify: confirmation email failed")
			return
		}
		d.logger.Info().Str("booking_id", ev.BookingID).Msg("confirmation email sent")
	}()
	return nil
}
