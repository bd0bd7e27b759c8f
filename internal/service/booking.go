// Package service holds the reservation engine: slot validation, atomic
// reserve, payment verification and slot release. Uniqueness of a
// (date, time) pair is enforced by the store, never by a check here.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stillwater/internal/calendar"
	"stillwater/internal/events"
	"stillwater/internal/metrics"
	"stillwater/internal/models"
	"stillwater/internal/payment"
	"stillwater/internal/storage"
)

// Store is the persistence surface the engine needs.
type Store interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	MarkPaid(ctx context.Context, id, paymentRef string) error
	MarkFailed(ctx context.Context, id string) error
	UserBookings(ctx context.Context, userID string) ([]models.Booking, error)
	DeleteBooking(ctx context.Context, id, userID string) (*models.Booking, error)
}

// SlotReader answers which times are taken on a date. In production this
// is the failover reader (primary store, cache fallback).
type SlotReader interface {
	BookedTimes(ctx context.Context, date string) ([]string, error)
}

// SlotCache mirrors taken slots for the fallback read path. All calls are
// best-effort.
type SlotCache interface {
	AddBookedTime(ctx context.Context, date, label string)
	RemoveBookedTime(ctx context.Context, date, label string)
}

// PaymentGateway raises orders and checks callback signatures.
type PaymentGateway interface {
	CreateOrder(amountMinor int64, currency string) (*payment.Intent, error)
	VerifySignature(orderID, paymentID, signature string) error
}

// EventPublisher fans domain events out to side-effect consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Auditor records actions on the append-only trail.
type Auditor interface {
	Record(action, entityID string, userID *string, details map[string]interface{})
}

// Config carries the engine's pricing and scheduling knobs.
type Config struct {
	PriceMinor  int64  // charge for paid sessions, in minor units
	Currency    string // ISO code, e.g. "INR"
	MeetingHost string // base URL for generated meeting rooms
}

// ReserveRequest is one attempt to take a slot.
type ReserveRequest struct {
	Date   string  `json:"date"`
	Time   string  `json:"time"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	UserID *string `json:"-"`
}

// ReserveResult is a secured slot. Payment is nil for free sessions.
type ReserveResult struct {
	Booking *models.Booking `json:"booking"`
	Payment *payment.Intent `json:"payment,omitempty"`
}

// VerifyRequest carries the gateway callback fields.
type VerifyRequest struct {
	BookingID string `json:"booking_id"`
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// SlotInfo is one time label with its current availability.
type SlotInfo struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// BookingService implements the reservation engine.
type BookingService struct {
	store   Store
	slots   SlotReader
	cache   SlotCache
	gateway PaymentGateway
	bus     EventPublisher
	audit   Auditor
	cal     *calendar.Generator
	cfg     Config
	loc     *time.Location
	logger  *zerolog.Logger

	now func() time.Time
}

// New wires the engine. cache, gateway and audit may be nil when the
// deployment runs without them.
func New(store Store, slots SlotReader, cache SlotCache, gateway PaymentGateway,
	bus EventPublisher, audit Auditor, cal *calendar.Generator, cfg Config,
	loc *time.Location, logger *zerolog.Logger) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		store:   store,
		slots:   slots,
		cache:   cache,
		gateway: gateway,
		bus:     bus,
		audit:   audit,
		cal:     cal,
		cfg:     cfg,
		loc:     loc,
		logger:  logger,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// Calendar returns the bookable dates for the given page.
func (s *BookingService) Calendar(cursor int) []calendar.SessionDate {
	return s.cal.Dates(s.now(), cursor)
}

// AvailableTimes returns the free labels for a date in service-window
// order. A non-bookable date yields an empty list, not an error.
func (s *BookingService) AvailableTimes(ctx context.Context, date string) ([]string, error) {
	day, err := time.ParseInLocation(models.DateFormat, date, s.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	now := s.now()
	if !s.cal.IsBookableDate(day, now) {
		return []string{}, nil
	}
	candidates := s.cal.AvailableLabels(day, now)
	if len(candidates) == 0 {
		return []string{}, nil
	}

	booked, err := s.slots.BookedTimes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("read booked times for %s: %w", date, err)
	}
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	free := make([]string, 0, len(candidates))
	for _, label := range candidates {
		if _, ok := taken[label]; !ok {
			free = append(free, label)
		}
	}
	return free, nil
}

// DaySlots returns every label of the service window for a date, flagged
// with availability.
func (s *BookingService) DaySlots(ctx context.Context, date string) ([]SlotInfo, error) {
	free, err := s.AvailableTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	open := make(map[string]struct{}, len(free))
	for _, label := range free {
		open[label] = struct{}{}
	}
	labels := s.cal.Window().TimeLabels()
	out := make([]SlotInfo, 0, len(labels))
	for _, label := range labels {
		_, ok := open[label]
		out = append(out, SlotInfo{Time: label, Available: ok})
	}
	return out, nil
}

// Reserve secures a slot. Free sessions finish here; paid sessions come
// back pending with a payment intent and hold the slot until verified,
// failed, or swept.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	if req.Name == "" || req.Email == "" || req.Date == "" || req.Time == "" {
		return nil, ErrMissingFields
	}
	day, err := time.ParseInLocation(models.DateFormat, req.Date, s.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	now := s.now()
	if !s.cal.IsBookableDate(day, now) {
		return nil, ErrDayNotBookable
	}
	if !s.cal.Window().Contains(req.Time) {
		return nil, ErrInvalidSlot
	}
	start, err := calendar.LabelStart(day, req.Time)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if start.Before(now) {
		return nil, ErrSlotInPast
	}

	paid := s.cal.IsPaidDate(day)
	b := &models.Booking{
		ID:            uuid.NewString(),
		Date:          req.Date,
		Time:          req.Time,
		Name:          req.Name,
		Email:         req.Email,
		UserID:        req.UserID,
		PaymentStatus: models.PaymentNotRequired,
		Currency:      s.cfg.Currency,
	}
	b.MeetingLink = s.meetingLink(b.ID)

	var intent *payment.Intent
	if paid {
		if s.gateway == nil {
			return nil, fmt.Errorf("paid sessions unavailable: no payment gateway")
		}
		// Raise the order before holding the slot: an order that is never
		// paid costs nothing, but a held slot without an order would be
		// unpayable.
		intent, err = s.gateway.CreateOrder(s.cfg.PriceMinor, s.cfg.Currency)
		if err != nil {
			return nil, fmt.Errorf("create payment order: %w", err)
		}
		b.PaymentStatus = models.PaymentPending
		b.OrderID = intent.OrderID
		b.AmountMinor = s.cfg.PriceMinor
	}

	if err := s.store.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			metrics.IncBookingConflict()
			s.logger.Info().Str("date", b.Date).Str("time", b.Time).
				Msg("reservation lost slot race")
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.AddBookedTime(ctx, b.Date, b.Time)
	}
	s.publish(events.TypeSlotBooked, events.SlotEvent{Date: b.Date, Time: b.Time})

	kind := "free"
	if paid {
		kind = "paid"
	}
	metrics.IncBookingCreated(kind)
	s.record("booking_created", b, map[string]interface{}{
		"date": b.Date, "time": b.Time, "kind": kind,
	})

	if !paid {
		s.confirm(b)
	}

	s.logger.Info().Str("booking_id", b.ID).Str("date", b.Date).
		Str("time", b.Time).Bool("paid", paid).Msg("slot reserved")
	return &ReserveResult{Booking: b, Payment: intent}, nil
}

// VerifyPayment settles a pending booking from the gateway callback.
// A failed check releases the slot; a repeated call for an already
// settled payment is a no-op success.
func (s *BookingService) VerifyPayment(ctx context.Context, req VerifyRequest) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	// Duplicate callback for a payment we already accepted.
	if b.PaymentStatus == models.PaymentPaid && b.PaymentRef == req.PaymentID {
		return b, nil
	}
	if b.PaymentStatus != models.PaymentPending {
		return nil, ErrNotAwaitingPayment
	}

	if b.OrderID != req.OrderID {
		return nil, s.failPayment(ctx, b, "order mismatch")
	}
	if s.gateway == nil {
		return nil, ErrSignatureInvalid
	}
	if err := s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		return nil, s.failPayment(ctx, b, "signature mismatch")
	}

	if err := s.store.MarkPaid(ctx, b.ID, req.PaymentID); err != nil {
		return nil, fmt.Errorf("mark booking %s paid: %w", b.ID, err)
	}
	b.PaymentStatus = models.PaymentPaid
	b.PaymentRef = req.PaymentID

	metrics.IncPaymentVerified("ok")
	s.record("payment_verified", b, map[string]interface{}{"payment_ref": b.PaymentRef})
	s.confirm(b)

	s.logger.Info().Str("booking_id", b.ID).Msg("payment verified")
	return b, nil
}

// failPayment marks the booking failed and frees its slot.
func (s *BookingService) failPayment(ctx context.Context, b *models.Booking, reason string) error {
	if err := s.store.MarkFailed(ctx, b.ID); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).
			Msg("could not mark booking failed")
	} else {
		s.releaseSlot(ctx, b, "failed")
	}
	metrics.IncPaymentVerified("invalid")
	s.record("payment_failed", b, map[string]interface{}{"reason": reason})
	s.logger.Warn().Str("booking_id", b.ID).Str("reason", reason).
		Msg("payment verification rejected")
	return ErrSignatureInvalid
}

// Cancel removes a user's own booking and frees the slot.
func (s *BookingService) Cancel(ctx context.Context, id, userID string) error {
	b, err := s.store.DeleteBooking(ctx, id, userID)
	if err != nil {
		return err
	}
	s.releaseSlot(ctx, b, "cancelled")
	s.record("booking_cancelled", b, nil)
	s.logger.Info().Str("booking_id", id).Msg("booking cancelled")
	return nil
}

// UserBookings lists the bookings owned by a user.
func (s *BookingService) UserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.store.UserBookings(ctx, userID)
}

// ReleaseSwept frees the slots of bookings reclaimed by the sweeper.
func (s *BookingService) ReleaseSwept(ctx context.Context, stale []models.Booking) {
	for i := range stale {
		s.releaseSlot(ctx, &stale[i], "swept")
		s.record("booking_swept", &stale[i], nil)
	}
}

func (s *BookingService) releaseSlot(ctx context.Context, b *models.Booking, reason string) {
	if s.cache != nil {
		s.cache.RemoveBookedTime(ctx, b.Date, b.Time)
	}
	metrics.IncSlotReleased(reason)
	s.publish(events.TypeSlotReleased, events.SlotEvent{Date: b.Date, Time: b.Time})
}

func (s *BookingService) confirm(b *models.Booking) {
	s.publish(events.TypeBookingConfirmed, events.BookingEvent{
		BookingID:   b.ID,
		Date:        b.Date,
		Time:        b.Time,
		Name:        b.Name,
		Email:       b.Email,
		MeetingLink: b.MeetingLink,
	})
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event")
	}
}

func (s *BookingService) record(action string, b *models.Booking, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(action, b.ID, b.UserID, details)
}

func (s *BookingService) meetingLink(id string) string {
	host := s.cfg.MeetingHost
	if host == "" {
		host = "https://meet.jit.si"
	}
	room := id
	if len(room) > 8 {
		room = room[:8]
	}
	return fmt.Sprintf("%s/stillwater-%s", host, room)
}
