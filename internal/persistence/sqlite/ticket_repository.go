package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/event-portal/internal/persistence"
)

const ticketTypeColumns = `id, event_id, name, description, price, currency,
	quantity, sold, sale_start, sale_end, active, benefits, restrictions,
	created_at, updated_at`

// CreateTicketType inserts a ticket tier for an existing event.
func (s *Store) CreateTicketType(ctx context.Context, tt persistence.TicketType) error {
	benefits, err := encodeStrings(tt.Benefits)
	if err != nil {
		return err
	}
	restrictions, err := encodeStrings(tt.Restrictions)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ticket_types (`+ticketTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tt.ID,
		tt.EventID,
		tt.Name,
		tt.Description,
		tt.Price.String(),
		tt.Currency,
		tt.Quantity,
		tt.Sold,
		formatTime(tt.SaleStart),
		formatTime(tt.SaleEnd),
		tt.Active,
		benefits,
		restrictions,
		formatTime(tt.CreatedAt),
		formatTime(tt.UpdatedAt),
	)
	return mapError(err)
}

// UpdateTicketType replaces the stored tier.
func (s *Store) UpdateTicketType(ctx context.Context, tt persistence.TicketType) error {
	benefits, err := encodeStrings(tt.Benefits)
	if err != nil {
		return err
	}
	restrictions, err := encodeStrings(tt.Restrictions)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE ticket_types
		SET name = ?, description = ?, price = ?, currency = ?, quantity = ?,
			sold = ?, sale_start = ?, sale_end = ?, active = ?, benefits = ?,
			restrictions = ?, updated_at = ?
		WHERE id = ?`,
		tt.Name,
		tt.Description,
		tt.Price.String(),
		tt.Currency,
		tt.Quantity,
		tt.Sold,
		formatTime(tt.SaleStart),
		formatTime(tt.SaleEnd),
		tt.Active,
		benefits,
		restrictions,
		formatTime(tt.UpdatedAt),
		tt.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetTicketType retrieves one tier by ID.
func (s *Store) GetTicketType(ctx context.Context, id string) (persistence.TicketType, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id)
	return scanTicketType(row)
}

// ListTicketTypes returns all tiers for an event ordered by creation time.
func (s *Store) ListTicketTypes(ctx context.Context, eventID string) ([]persistence.TicketType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketTypeColumns+` FROM ticket_types
		WHERE event_id = ?
		ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	tiers := make([]persistence.TicketType, 0)
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return tiers, nil
}

// ClaimTicket takes one seat from a tier. The guarded UPDATE makes the
// capacity check and the sold increment a single statement, so overlapping
// claims cannot both take the last seat; a full tier reports ErrSoldOut.
func (s *Store) ClaimTicket(ctx context.Context, id string, now time.Time) (persistence.TicketType, error) {
	var tt persistence.TicketType
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE ticket_types
			SET sold = sold + 1, updated_at = ?
			WHERE id = ? AND sold < quantity`,
			formatTime(now), id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return mapError(err)
		}
		if affected == 0 {
			var sold, quantity int
			err := tx.QueryRowContext(ctx, `SELECT sold, quantity FROM ticket_types WHERE id = ?`, id).Scan(&sold, &quantity)
			if err != nil {
				return mapError(err)
			}
			return fmt.Errorf("%w: ticket type %s has %d of %d sold", persistence.ErrSoldOut, id, sold, quantity)
		}

		tt, err = scanTicketType(tx.QueryRowContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return persistence.TicketType{}, err
	}
	return tt, nil
}

// DeleteTicketType removes a tier. Tiers with recorded sales are retained
// and the delete reports a conflict.
func (s *Store) DeleteTicketType(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var sold int
		err := tx.QueryRowContext(ctx, `SELECT sold FROM ticket_types WHERE id = ?`, id).Scan(&sold)
		if err != nil {
			return mapError(err)
		}
		if sold > 0 {
			return fmt.Errorf("%w: ticket type %s has %d sold tickets", persistence.ErrConflict, id, sold)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRow(result)
	})
}

func scanTicketType(row rowScanner) (persistence.TicketType, error) {
	var (
		tt                        persistence.TicketType
		price, saleStart, saleEnd string
		createdAt, updatedAt      string
		benefits, restrictions    sql.NullString
	)
	err := row.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Description,
		&price,
		&tt.Currency,
		&tt.Quantity,
		&tt.Sold,
		&saleStart,
		&saleEnd,
		&tt.Active,
		&benefits,
		&restrictions,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.TicketType{}, mapError(err)
	}

	if tt.Price, err = parseDecimal("price", price); err != nil {
		return persistence.TicketType{}, err
	}
	if tt.SaleStart, err = parseTime("sale_start", saleStart); err != nil {
		return persistence.TicketType{}, err
	}
	if tt.SaleEnd, err = parseTime("sale_end", saleEnd); err != nil {
		return persistence.TicketType{}, err
	}
	if tt.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.TicketType{}, err
	}
	if tt.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.TicketType{}, err
	}
	if err = decodeJSON("benefits", benefits, &tt.Benefits); err != nil {
		return persistence.TicketType{}, err
	}
	if err = decodeJSON("restrictions", restrictions, &tt.Restrictions); err != nil {
		return persistence.TicketType{}, err
	}
	return tt, nil
}
