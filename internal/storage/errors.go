package storage

import "errors"

var (
	// ErrSlotTaken means the (date, time) pair is already held by a live
	// booking. Raised by the partial unique index, never by a pre-check.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrBookingNotFound means no booking matched the given identifier.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBuildQuery wraps query-construction failures.
	ErrBuildQuery = errors.New("build query")

	// ErrExecQuery wraps execution failures (store unreachable, bad SQL).
	ErrExecQuery = errors.New("execute query")

	// ErrScanRow wraps row scanning failures.
	ErrScanRow = errors.New("scan row")
)
