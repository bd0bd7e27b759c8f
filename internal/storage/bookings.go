package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"stillwater/internal/models"
)

// uniqueViolation is the Postgres error code raised by the live-slot index.
const uniqueViolation = "23505"

var bookingColumns = []string{
	"id",
	"session_date",
	"session_time",
	"name",
	"email",
	"user_id",
	"meeting_link",
	"payment_status",
	"order_id",
	"payment_ref",
	"amount_minor",
	"currency",
	"reminder_sent",
	"created_at",
	"updated_at",
}

// CreateBooking atomically claims the booking's slot. The insert either
// commits the whole row or trips the live-slot unique index; there is no
// separate availability check to race against.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	query, args, err := psql.Insert("bookings").
		Columns(
			"id",
			"session_date",
			"session_time",
			"name",
			"email",
			"user_id",
			"meeting_link",
			"payment_status",
			"order_id",
			"payment_ref",
			"amount_minor",
			"currency",
		).
		Values(
			b.ID,
			b.Date,
			b.Time,
			b.Name,
			b.Email,
			b.UserID,
			b.MeetingLink,
			b.PaymentStatus,
			b.OrderID,
			b.PaymentRef,
			b.AmountMinor,
			b.Currency,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreateBooking: %v", ErrBuildQuery, err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("%w: CreateBooking: %v", ErrExecQuery, err)
	}

	return nil
}

// GetBooking fetches a booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBooking: %v", ErrBuildQuery, err)
	}

	b, err := s.scanBooking(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetBooking: %v", ErrScanRow, err)
	}
	return b, nil
}

// BookedTimes returns the time labels currently held by live bookings on
// the given date. Failed bookings do not count. Callers treat the result
// as a set; label strings do not sort chronologically.
func (s *Store) BookedTimes(ctx context.Context, date string) ([]string, error) {
	query, args, err := psql.Select("session_time").
		From("bookings").
		Where(squirrel.Eq{"session_date": date}).
		Where(squirrel.NotEq{"payment_status": models.PaymentFailed}).
		OrderBy("session_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: BookedTimes: %v", ErrBuildQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: BookedTimes: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	times := make([]string, 0)
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("%w: BookedTimes: %v", ErrScanRow, err)
		}
		times = append(times, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: BookedTimes: %v", ErrScanRow, err)
	}
	return times, nil
}

// MarkPaid finalizes a pending booking with the gateway payment reference.
func (s *Store) MarkPaid(ctx context.Context, id, paymentRef string) error {
	return s.updateStatus(ctx, id,
		squirrel.Eq{"payment_status": models.PaymentPending},
		map[string]interface{}{
			"payment_status": models.PaymentPaid,
			"payment_ref":    paymentRef,
		})
}

// MarkFailed releases the booking's slot by moving it to the failed state.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.updateStatus(ctx, id,
		squirrel.NotEq{"payment_status": models.PaymentPaid},
		map[string]interface{}{
			"payment_status": models.PaymentFailed,
		})
}

func (s *Store) updateStatus(ctx context.Context, id string, guard interface{}, set map[string]interface{}) error {
	builder := psql.Update("bookings").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(guard)
	for col, val := range set {
		builder = builder.Set(col, val)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: updateStatus: %v", ErrBuildQuery, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updateStatus: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updateStatus: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UserBookings returns all bookings owned by the given user, newest first.
func (s *Store) UserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("session_date DESC, session_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UserBookings: %v", ErrBuildQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: UserBookings: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: UserBookings: %v", ErrScanRow, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: UserBookings: %v", ErrScanRow, err)
	}
	return bookings, nil
}

// DeleteBooking removes a booking owned by userID and returns the released
// slot so callers can broadcast it.
func (s *Store) DeleteBooking(ctx context.Context, id, userID string) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID == nil || *b.UserID != userID {
		return nil, ErrBookingNotFound
	}

	query, args, err := psql.Delete("bookings").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: DeleteBooking: %v", ErrBuildQuery, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: DeleteBooking: %v", ErrExecQuery, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: DeleteBooking: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// ReleaseStalePending fails every pending booking created before the
// deadline and returns the released bookings. Used by the reclaim sweep.
func (s *Store) ReleaseStalePending(ctx context.Context, olderThan time.Duration) ([]models.Booking, error) {
	query, args, err := psql.Update("bookings").
		Set("payment_status", models.PaymentFailed).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"payment_status": models.PaymentPending}).
		Where(squirrel.Lt{"created_at": time.Now().Add(-olderThan)}).
		Suffix("RETURNING id, session_date, session_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ReleaseStalePending: %v", ErrBuildQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ReleaseStalePending: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	released := make([]models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Date, &b.Time); err != nil {
			return nil, fmt.Errorf("%w: ReleaseStalePending: %v", ErrScanRow, err)
		}
		b.PaymentStatus = models.PaymentFailed
		released = append(released, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ReleaseStalePending: %v", ErrScanRow, err)
	}
	return released, nil
}

// DueReminders returns finalized bookings on the given date that have not
// been reminded yet.
func (s *Store) DueReminders(ctx context.Context, date string) ([]models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"session_date": date, "reminder_sent": false}).
		Where(squirrel.Eq{"payment_status": []models.PaymentStatus{
			models.PaymentPaid, models.PaymentNotRequired,
		}}).
		OrderBy("session_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: DueReminders: %v", ErrBuildQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: DueReminders: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: DueReminders: %v", ErrScanRow, err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: DueReminders: %v", ErrScanRow, err)
	}
	return bookings, nil
}

// MarkReminderSent flags the booking so the reminder is not repeated.
func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	return s.updateStatus(ctx, id,
		squirrel.Eq{"reminder_sent": false},
		map[string]interface{}{"reminder_sent": true})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.Date,
		&b.Time,
		&b.Name,
		&b.Email,
		&b.UserID,
		&b.MeetingLink,
		&b.PaymentStatus,
		&b.OrderID,
		&b.PaymentRef,
		&b.AmountMinor,
		&b.Currency,
		&b.ReminderSent,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
