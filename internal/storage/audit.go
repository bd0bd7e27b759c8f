package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"stillwater/internal/models"
)

// InsertAudit appends one entry to the audit trail.
func (s *Store) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	query, args, err := psql.Insert("audit_log").
		Columns("action", "user_id", "entity_id", "entity_type", "ip_address", "user_agent", "details").
		Values(e.Action, e.UserID, e.EntityID, e.EntityType, e.IPAddress, e.UserAgent, e.Details).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: InsertAudit: %v", ErrBuildQuery, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: InsertAudit: %v", ErrExecQuery, err)
	}
	return nil
}

// AuditEntries returns trail entries in the [from, to) window, oldest first.
func (s *Store) AuditEntries(ctx context.Context, from, to time.Time) ([]models.AuditEntry, error) {
	query, args, err := psql.Select(
		"id", "action", "user_id", "entity_id", "entity_type",
		"ip_address", "user_agent", "details", "created_at",
	).
		From("audit_log").
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: AuditEntries: %v", ErrBuildQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: AuditEntries: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.Action, &e.UserID, &e.EntityID, &e.EntityType,
			&e.IPAddress, &e.UserAgent, &e.Details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: AuditEntries: %v", ErrScanRow, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: AuditEntries: %v", ErrScanRow, err)
	}
	return entries, nil
}
