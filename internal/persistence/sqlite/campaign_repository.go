package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/event-portal/internal/persistence"
)

const campaignColumns = `id, event_id, name, channel, subject, content,
	audience, status, sent_at, open_rate, click_rate, created_at, updated_at`

// CreateCampaign inserts a marketing campaign.
func (s *Store) CreateCampaign(ctx context.Context, campaign persistence.Campaign) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		campaign.ID,
		campaign.EventID,
		campaign.Name,
		campaign.Channel,
		campaign.Subject,
		campaign.Content,
		campaign.Audience,
		campaign.Status,
		formatTimePtr(campaign.SentAt),
		campaign.OpenRate,
		campaign.ClickRate,
		formatTime(campaign.CreatedAt),
		formatTime(campaign.UpdatedAt),
	)
	return mapError(err)
}

// UpdateCampaign replaces the stored campaign.
func (s *Store) UpdateCampaign(ctx context.Context, campaign persistence.Campaign) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET name = ?, channel = ?, subject = ?, content = ?, audience = ?,
			status = ?, sent_at = ?, open_rate = ?, click_rate = ?, updated_at = ?
		WHERE id = ?`,
		campaign.Name,
		campaign.Channel,
		campaign.Subject,
		campaign.Content,
		campaign.Audience,
		campaign.Status,
		formatTimePtr(campaign.SentAt),
		campaign.OpenRate,
		campaign.ClickRate,
		formatTime(campaign.UpdatedAt),
		campaign.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetCampaign retrieves one campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id string) (persistence.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	return scanCampaign(row)
}

// ListCampaigns returns all campaigns for an event ordered by creation time.
func (s *Store) ListCampaigns(ctx context.Context, eventID string) ([]persistence.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE event_id = ?
		ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	campaigns := make([]persistence.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return campaigns, nil
}

// DeleteCampaign removes a campaign by ID.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

func scanCampaign(row rowScanner) (persistence.Campaign, error) {
	var (
		campaign             persistence.Campaign
		sentAt               sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&campaign.ID,
		&campaign.EventID,
		&campaign.Name,
		&campaign.Channel,
		&campaign.Subject,
		&campaign.Content,
		&campaign.Audience,
		&campaign.Status,
		&sentAt,
		&campaign.OpenRate,
		&campaign.ClickRate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Campaign{}, mapError(err)
	}

	if campaign.SentAt, err = parseTimePtr("sent_at", sentAt); err != nil {
		return persistence.Campaign{}, err
	}
	if campaign.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Campaign{}, err
	}
	if campaign.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Campaign{}, err
	}
	return campaign, nil
}
