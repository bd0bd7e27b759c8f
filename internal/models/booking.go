package models

import "time"

// PaymentStatus tracks where a booking sits in the payment lifecycle.
type PaymentStatus string

const (
	// PaymentNotRequired marks free sessions: no charge is ever raised.
	PaymentNotRequired PaymentStatus = "not_required"
	// PaymentPending marks paid sessions waiting for gateway confirmation.
	// A pending booking still holds its slot.
	PaymentPending PaymentStatus = "pending"
	// PaymentPaid is terminal for a successful paid session.
	PaymentPaid PaymentStatus = "paid"
	// PaymentFailed releases the slot: failed rows are excluded from the
	// slot uniqueness index and from availability.
	PaymentFailed PaymentStatus = "failed"
)

// DateFormat is the wire and storage format for session dates.
const DateFormat = "2006-01-02"

// Booking represents one reserved session slot.
type Booking struct {
	ID          string     `json:"id"`
	Date        string     `json:"date"` // Format: "YYYY-MM-DD"
	Time        string     `json:"time"` // Format: "12:00 PM"
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	UserID      *string    `json:"user_id,omitempty"` // nil for anonymous bookings
	MeetingLink string     `json:"meeting_link,omitempty"`

	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderID       string        `json:"order_id,omitempty"`   // gateway order reference
	PaymentRef    string        `json:"payment_ref,omitempty"` // gateway payment reference
	AmountMinor   int64         `json:"amount_minor"`          // minor units (paise)
	Currency      string        `json:"currency,omitempty"`

	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OccupiesSlot reports whether the booking currently blocks its (date, time)
// pair. Failed bookings are treated as released.
func (b *Booking) OccupiesSlot() bool {
	return b.PaymentStatus != PaymentFailed
}

// IsFinal reports whether the booking reached a confirmed terminal state.
func (b *Booking) IsFinal() bool {
	return b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentNotRequired
}

// RequiresPayment reports whether the booking still needs gateway confirmation.
func (b *Booking) RequiresPayment() bool {
	return b.PaymentStatus == PaymentPending
}

// SessionStart returns the absolute start instant of the booked slot.
func (b *Booking) SessionStart(loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateFormat, b.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("03:04 PM", b.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// AuditEntry is one row of the append-only audit trail.
type AuditEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	UserID     *string   `json:"user_id,omitempty"`
	EntityID   string    `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Details    []byte    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
