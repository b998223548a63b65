package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CampaignRepository captures the persistence operations needed by the
// campaign service.
type CampaignRepository interface {
	CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	UpdateCampaign(ctx context.Context, c Campaign) (Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, eventID string) ([]Campaign, error)
}

// CampaignService orchestrates marketing campaigns attached to events.
type CampaignService struct {
	campaigns   CampaignRepository
	events      EventDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCampaignService constructs a campaign service with the provided
// dependencies.
func NewCampaignService(campaigns CampaignRepository, events EventDirectory, idGenerator func() string, now func() time.Time) *CampaignService {
	return NewCampaignServiceWithLogger(campaigns, events, idGenerator, now, nil)
}

// NewCampaignServiceWithLogger constructs a campaign service with a
// specified logger.
func NewCampaignServiceWithLogger(campaigns CampaignRepository, events EventDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CampaignService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CampaignService{
		campaigns:   campaigns,
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CampaignService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CampaignService", operation, attrs...)
}

func (s *CampaignService) authorizeEvent(ctx context.Context, principal Principal, eventID string) error {
	if s.events == nil {
		return fmt.Errorf("event directory not configured")
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapRepoError(err)
	}
	if !principal.IsAdmin && principal.UserID != event.OrganizerID {
		return ErrUnauthorized
	}
	return nil
}

// CreateCampaign validates and persists a new draft campaign.
func (s *CampaignService) CreateCampaign(ctx context.Context, params CreateCampaignParams) (campaign Campaign, err error) {
	if s == nil {
		err = fmt.Errorf("CampaignService is nil")
		return
	}
	if s.campaigns == nil {
		err = fmt.Errorf("campaign repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateCampaign",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create campaign", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("campaign_id", campaign.ID).InfoContext(ctx, "campaign created")
	}()

	if err = s.authorizeEvent(ctx, params.Principal, params.EventID); err != nil {
		return
	}

	normalized := normalizeCampaignInput(params.Input)
	vErr := validateCampaignInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	campaign = Campaign{
		ID:        s.idGenerator(),
		EventID:   params.EventID,
		Name:      normalized.Name,
		Channel:   normalized.Channel,
		Subject:   normalized.Subject,
		Content:   normalized.Content,
		Audience:  normalized.Audience,
		Status:    CampaignDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	persisted, repoErr := s.campaigns.CreateCampaign(ctx, campaign)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	campaign = persisted
	return
}

// GetCampaign retrieves one campaign by ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	if s == nil {
		return Campaign{}, fmt.Errorf("CampaignService is nil")
	}
	if s.campaigns == nil {
		return Campaign{}, fmt.Errorf("campaign repository not configured")
	}
	c, err := s.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return Campaign{}, mapRepoError(err)
	}
	return c, nil
}

// ListCampaigns returns the campaigns attached to one event.
func (s *CampaignService) ListCampaigns(ctx context.Context, principal Principal, eventID string) ([]Campaign, error) {
	if s == nil {
		return nil, fmt.Errorf("CampaignService is nil")
	}
	if s.campaigns == nil {
		return nil, nil
	}
	if err := s.authorizeEvent(ctx, principal, eventID); err != nil {
		return nil, err
	}
	campaigns, err := s.campaigns.ListCampaigns(ctx, eventID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return campaigns, nil
}

// UpdateCampaign validates a typed patch and merges it atomically into the
// existing campaign. A sent campaign can no longer be edited.
func (s *CampaignService) UpdateCampaign(ctx context.Context, params UpdateCampaignParams) (campaign Campaign, err error) {
	if s == nil {
		err = fmt.Errorf("CampaignService is nil")
		return
	}
	if s.campaigns == nil {
		err = fmt.Errorf("campaign repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateCampaign",
		"principal_id", params.Principal.UserID,
		"campaign_id", params.CampaignID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update campaign", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "campaign updated")
	}()

	existing, getErr := s.campaigns.GetCampaign(ctx, params.CampaignID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if err = s.authorizeEvent(ctx, params.Principal, existing.EventID); err != nil {
		return
	}
	if existing.Status == CampaignSent {
		err = &ConflictError{Reason: "campaign has already been sent"}
		return
	}

	merged, vErr := applyCampaignPatch(existing, params.Patch)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if merged.Status == CampaignSent && existing.Status != CampaignSent {
		sentAt := s.now()
		merged.SentAt = &sentAt
	}

	merged.UpdatedAt = s.now()
	persisted, repoErr := s.campaigns.UpdateCampaign(ctx, merged)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	campaign = persisted
	return
}

// SendCampaign marks a campaign as sent and stamps the send time. A second
// send reports a conflict.
func (s *CampaignService) SendCampaign(ctx context.Context, principal Principal, id string) (campaign Campaign, err error) {
	if s == nil {
		err = fmt.Errorf("CampaignService is nil")
		return
	}
	if s.campaigns == nil {
		err = fmt.Errorf("campaign repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SendCampaign",
		"principal_id", principal.UserID,
		"campaign_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send campaign", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "campaign sent")
	}()

	existing, getErr := s.campaigns.GetCampaign(ctx, id)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if err = s.authorizeEvent(ctx, principal, existing.EventID); err != nil {
		return
	}
	switch existing.Status {
	case CampaignSent:
		err = &ConflictError{Reason: "campaign has already been sent"}
		return
	case CampaignCancelled:
		err = &ConflictError{Reason: "campaign has been cancelled"}
		return
	}

	sentAt := s.now()
	existing.Status = CampaignSent
	existing.SentAt = &sentAt
	existing.UpdatedAt = sentAt
	persisted, repoErr := s.campaigns.UpdateCampaign(ctx, existing)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	campaign = persisted
	return
}

// DeleteCampaign removes a campaign. Unlike ticket tiers there is no
// retention guard; sent campaigns may be deleted.
func (s *CampaignService) DeleteCampaign(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("CampaignService is nil")
	}
	if s.campaigns == nil {
		return fmt.Errorf("campaign repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteCampaign",
		"principal_id", principal.UserID,
		"campaign_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete campaign", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "campaign deleted")
	}()

	existing, getErr := s.campaigns.GetCampaign(ctx, id)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if err = s.authorizeEvent(ctx, principal, existing.EventID); err != nil {
		return
	}

	if delErr := s.campaigns.DeleteCampaign(ctx, id); delErr != nil {
		err = mapRepoError(delErr)
		return
	}
	return nil
}

func normalizeCampaignInput(input CampaignInput) CampaignInput {
	out := input
	out.Name = strings.TrimSpace(input.Name)
	out.Subject = strings.TrimSpace(input.Subject)
	out.Audience = strings.TrimSpace(input.Audience)
	return out
}

func validateCampaignInput(input CampaignInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if !input.Channel.Valid() {
		vErr.add("channel", fmt.Sprintf("unknown channel %q", input.Channel))
	}
	return vErr
}

func applyCampaignPatch(existing Campaign, patch CampaignPatch) (Campaign, *ValidationError) {
	vErr := &ValidationError{}
	merged := existing

	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
		if merged.Name == "" {
			vErr.add("name", "name cannot be empty")
		}
	}
	if patch.Channel != nil {
		if !patch.Channel.Valid() {
			vErr.add("channel", fmt.Sprintf("unknown channel %q", *patch.Channel))
		} else {
			merged.Channel = *patch.Channel
		}
	}
	if patch.Subject != nil {
		merged.Subject = strings.TrimSpace(*patch.Subject)
	}
	if patch.Content != nil {
		merged.Content = *patch.Content
	}
	if patch.Audience != nil {
		merged.Audience = strings.TrimSpace(*patch.Audience)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			vErr.add("status", fmt.Sprintf("unknown status %q", *patch.Status))
		} else {
			merged.Status = *patch.Status
		}
	}

	return merged, vErr
}
