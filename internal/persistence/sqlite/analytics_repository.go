package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/event-portal/internal/persistence"
)

const snapshotColumns = `event_id, views, registrations, revenue, referrers,
	created_at, updated_at`

// CreateSnapshot inserts a per-event analytics snapshot. A second insert for
// the same event reports a conflict.
func (s *Store) CreateSnapshot(ctx context.Context, snapshot persistence.AnalyticsSnapshot) error {
	referrers, err := encodeReferrers(snapshot.Referrers)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analytics_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshot.EventID,
		snapshot.Views,
		snapshot.Registrations,
		snapshot.Revenue.String(),
		referrers,
		formatTime(snapshot.CreatedAt),
		formatTime(snapshot.UpdatedAt),
	)
	return mapError(err)
}

// UpdateSnapshot replaces the stored counters.
func (s *Store) UpdateSnapshot(ctx context.Context, snapshot persistence.AnalyticsSnapshot) error {
	referrers, err := encodeReferrers(snapshot.Referrers)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE analytics_snapshots
		SET views = ?, registrations = ?, revenue = ?, referrers = ?, updated_at = ?
		WHERE event_id = ?`,
		snapshot.Views,
		snapshot.Registrations,
		snapshot.Revenue.String(),
		referrers,
		formatTime(snapshot.UpdatedAt),
		snapshot.EventID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetSnapshot retrieves the snapshot for an event.
func (s *Store) GetSnapshot(ctx context.Context, eventID string) (persistence.AnalyticsSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM analytics_snapshots WHERE event_id = ?`, eventID)
	return scanSnapshot(row)
}

// ApplySnapshotDelta merges counter bumps into the stored snapshot. The
// read-merge-write cycle runs inside one transaction on the store's single
// connection, so concurrent bumps never lose an increment.
func (s *Store) ApplySnapshotDelta(ctx context.Context, eventID string, delta persistence.SnapshotDelta) (persistence.AnalyticsSnapshot, error) {
	var snapshot persistence.AnalyticsSnapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+snapshotColumns+` FROM analytics_snapshots WHERE event_id = ?`, eventID)
		var err error
		if snapshot, err = scanSnapshot(row); err != nil {
			return err
		}
		delta.ApplyTo(&snapshot)

		referrers, err := encodeReferrers(snapshot.Referrers)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE analytics_snapshots
			SET views = ?, registrations = ?, revenue = ?, referrers = ?, updated_at = ?
			WHERE event_id = ?`,
			snapshot.Views,
			snapshot.Registrations,
			snapshot.Revenue.String(),
			referrers,
			formatTime(snapshot.UpdatedAt),
			snapshot.EventID,
		)
		if err != nil {
			return mapError(err)
		}
		return requireRow(result)
	})
	if err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	return snapshot, nil
}

func scanSnapshot(row rowScanner) (persistence.AnalyticsSnapshot, error) {
	var (
		snapshot             persistence.AnalyticsSnapshot
		revenue              string
		referrers            sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&snapshot.EventID,
		&snapshot.Views,
		&snapshot.Registrations,
		&revenue,
		&referrers,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.AnalyticsSnapshot{}, mapError(err)
	}

	if snapshot.Revenue, err = parseDecimal("revenue", revenue); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	if err = decodeJSON("referrers", referrers, &snapshot.Referrers); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	if snapshot.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	if snapshot.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	return snapshot, nil
}
