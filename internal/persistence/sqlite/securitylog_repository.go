package sqlite

import (
	"context"

	"github.com/example/event-portal/internal/persistence"
)

// AppendSecurityLog records an audit entry.
func (s *Store) AppendSecurityLog(ctx context.Context, entry persistence.SecurityLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_log (id, actor, action, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Actor,
		entry.Action,
		entry.Detail,
		formatTime(entry.OccurredAt),
	)
	return mapError(err)
}

// ListSecurityLog returns audit entries newest first. A positive limit caps
// the result; zero returns everything.
func (s *Store) ListSecurityLog(ctx context.Context, limit int) ([]persistence.SecurityLogEntry, error) {
	query := `SELECT id, actor, action, detail, occurred_at FROM security_log
		ORDER BY occurred_at DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.SecurityLogEntry, 0)
	for rows.Next() {
		var (
			entry      persistence.SecurityLogEntry
			occurredAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.Detail, &occurredAt); err != nil {
			return nil, mapError(err)
		}
		if entry.OccurredAt, err = parseTime("occurred_at", occurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}
