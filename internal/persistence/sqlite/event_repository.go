package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/event-portal/internal/persistence"
	"github.com/shopspring/decimal"
)

const eventColumns = `id, organizer_id, title, description, category, starts_at,
	venue_name, venue_address, venue_capacity, cover_image, status, visibility,
	price, currency, created_at, updated_at`

// CreateEvent inserts the event together with its zero-valued analytics
// snapshot so the two rows appear atomically.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID,
			event.OrganizerID,
			event.Title,
			event.Description,
			event.Category,
			formatTime(event.StartsAt),
			event.Venue.Name,
			event.Venue.Address,
			event.Venue.Capacity,
			event.CoverImage,
			event.Status,
			event.Visibility,
			nullDecimal(event.Price),
			event.Currency,
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO analytics_snapshots (event_id, views, registrations, revenue, referrers, created_at, updated_at)
			VALUES (?, 0, 0, '0', NULL, ?, ?)`,
			event.ID,
			formatTime(event.CreatedAt),
			formatTime(event.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return nil
	})
}

// UpdateEvent replaces the stored record.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET organizer_id = ?, title = ?, description = ?, category = ?, starts_at = ?,
			venue_name = ?, venue_address = ?, venue_capacity = ?, cover_image = ?,
			status = ?, visibility = ?, price = ?, currency = ?, updated_at = ?
		WHERE id = ?`,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.Category,
		formatTime(event.StartsAt),
		event.Venue.Name,
		event.Venue.Address,
		event.Venue.Capacity,
		event.CoverImage,
		event.Status,
		event.Visibility,
		nullDecimal(event.Price),
		event.Currency,
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetEvent retrieves one event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// ListEvents returns events matching the filter ordered by creation time
// then ID.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1 = 1`
	args := make([]any, 0, 5)
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.OrganizerID != "" {
		query += ` AND organizer_id = ?`
		args = append(args, filter.OrganizerID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// DeleteEvent removes the event and everything attached to it.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM ticket_types WHERE event_id = ?`,
			`DELETE FROM attendees WHERE event_id = ?`,
			`DELETE FROM analytics_snapshots WHERE event_id = ?`,
			`DELETE FROM campaigns WHERE event_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return mapError(err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRow(result)
	})
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                          persistence.Event
		startsAt, createdAt, updatedAt string
		price                          sql.NullString
	)
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&event.Category,
		&startsAt,
		&event.Venue.Name,
		&event.Venue.Address,
		&event.Venue.Capacity,
		&event.CoverImage,
		&event.Status,
		&event.Visibility,
		&price,
		&event.Currency,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}

	if event.StartsAt, err = parseTime("starts_at", startsAt); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Event{}, err
	}
	if event.Price, err = parseDecimalPtr("price", price); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimalPtr(column string, value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse %s: %w", column, err)
	}
	return &d, nil
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sqlite: parse %s: %w", column, err)
	}
	return d, nil
}
