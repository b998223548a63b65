package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/event-portal/internal/persistence"
)

const attendeeColumns = `id, event_id, ticket_type_id, user_id, registered_at,
	check_in_status, payment_status, updated_at`

// CreateAttendee inserts a registration.
func (s *Store) CreateAttendee(ctx context.Context, attendee persistence.Attendee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendees (`+attendeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attendee.ID,
		attendee.EventID,
		nullString(attendee.TicketTypeID),
		attendee.UserID,
		formatTime(attendee.RegisteredAt),
		attendee.CheckInStatus,
		attendee.PaymentStatus,
		formatTime(attendee.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAttendee replaces the stored registration.
func (s *Store) UpdateAttendee(ctx context.Context, attendee persistence.Attendee) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attendees
		SET ticket_type_id = ?, check_in_status = ?, payment_status = ?, updated_at = ?
		WHERE id = ?`,
		nullString(attendee.TicketTypeID),
		attendee.CheckInStatus,
		attendee.PaymentStatus,
		formatTime(attendee.UpdatedAt),
		attendee.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetAttendee retrieves one registration by ID.
func (s *Store) GetAttendee(ctx context.Context, id string) (persistence.Attendee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = ?`, id)
	return scanAttendee(row)
}

// ListAttendees returns all registrations for an event ordered by
// registration time.
func (s *Store) ListAttendees(ctx context.Context, eventID string) ([]persistence.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attendeeColumns+` FROM attendees
		WHERE event_id = ?
		ORDER BY registered_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	attendees := make([]persistence.Attendee, 0)
	for rows.Next() {
		attendee, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return attendees, nil
}

func scanAttendee(row rowScanner) (persistence.Attendee, error) {
	var (
		attendee                persistence.Attendee
		ticketTypeID            sql.NullString
		registeredAt, updatedAt string
	)
	err := row.Scan(
		&attendee.ID,
		&attendee.EventID,
		&ticketTypeID,
		&attendee.UserID,
		&registeredAt,
		&attendee.CheckInStatus,
		&attendee.PaymentStatus,
		&updatedAt,
	)
	if err != nil {
		return persistence.Attendee{}, mapError(err)
	}

	if ticketTypeID.Valid {
		id := ticketTypeID.String
		attendee.TicketTypeID = &id
	}
	if attendee.RegisteredAt, err = parseTime("registered_at", registeredAt); err != nil {
		return persistence.Attendee{}, err
	}
	if attendee.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Attendee{}, err
	}
	return attendee, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
