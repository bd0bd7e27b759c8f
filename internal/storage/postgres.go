// Package storage is the Postgres persistence layer. Slot uniqueness is
// enforced here, by a partial unique index over live bookings, so that
// concurrent reservations resolve inside the database rather than in
// application code.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog"
)

// psql builds queries with $N placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store wraps the database handle.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New opens the database, configures the pool and ensures the schema.
func New(dsn string, opts Options, logger *zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Msg("Database initialized")
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database reachability.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			session_date TEXT NOT NULL,
			session_time TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			user_id TEXT,
			meeting_link TEXT NOT NULL DEFAULT '',
			payment_status TEXT NOT NULL DEFAULT 'not_required',
			order_id TEXT NOT NULL DEFAULT '',
			payment_ref TEXT NOT NULL DEFAULT '',
			amount_minor BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// The core invariant: at most one live booking per slot. Failed
		// bookings fall out of the index and release the slot.
		`CREATE UNIQUE INDEX IF NOT EXISTS bookings_live_slot
			ON bookings (session_date, session_time)
			WHERE payment_status <> 'failed'`,
		`CREATE INDEX IF NOT EXISTS bookings_user
			ON bookings (user_id) WHERE user_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS bookings_pending_created
			ON bookings (created_at) WHERE payment_status = 'pending'`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			action TEXT NOT NULL,
			user_id TEXT,
			entity_id TEXT NOT NULL DEFAULT '',
			entity_type TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
