package service

import "errors"

var (
	// ErrMissingFields means the reservation request left a required
	// field empty.
	ErrMissingFields = errors.New("name, email, date and time are required")

	// ErrInvalidDate means the date did not parse as YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid session date")

	// ErrDayNotBookable means the date falls outside the bookable
	// calendar (wrong weekday, in the past, or beyond the horizon).
	ErrDayNotBookable = errors.New("date is not open for booking")

	// ErrInvalidSlot means the time label is not part of the service
	// window.
	ErrInvalidSlot = errors.New("invalid session time")

	// ErrSlotInPast means the slot's start has already passed today.
	ErrSlotInPast = errors.New("session time already passed")

	// ErrSignatureInvalid means payment verification failed and the
	// booking's slot has been released.
	ErrSignatureInvalid = errors.New("payment verification failed")

	// ErrNotAwaitingPayment means verification was attempted against a
	// booking that is not pending.
	ErrNotAwaitingPayment = errors.New("booking is not awaiting payment")
)
