package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/event-portal/internal/persistence"
)

// TicketTypeRepository captures the persistence operations needed by the
// ticket service.
type TicketTypeRepository interface {
	CreateTicketType(ctx context.Context, tt TicketType) (TicketType, error)
	GetTicketType(ctx context.Context, id string) (TicketType, error)
	UpdateTicketType(ctx context.Context, tt TicketType) (TicketType, error)
	ClaimTicket(ctx context.Context, id string, now time.Time) (TicketType, error)
	DeleteTicketType(ctx context.Context, id string) error
	ListTicketTypes(ctx context.Context, eventID string) ([]TicketType, error)
}

// EventDirectory is the narrow event lookup needed by dependent services.
type EventDirectory interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// TicketService orchestrates validation, authorization, and persistence for
// ticket tiers.
type TicketService struct {
	tickets     TicketTypeRepository
	events      EventDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTicketService constructs a ticket service with the provided dependencies.
func NewTicketService(tickets TicketTypeRepository, events EventDirectory, idGenerator func() string, now func() time.Time) *TicketService {
	return NewTicketServiceWithLogger(tickets, events, idGenerator, now, nil)
}

// NewTicketServiceWithLogger constructs a ticket service with a specified logger.
func NewTicketServiceWithLogger(tickets TicketTypeRepository, events EventDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TicketService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     tickets,
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TicketService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TicketService", operation, attrs...)
}

// authorizeEvent loads the parent event and checks the principal may manage
// its ticket tiers.
func (s *TicketService) authorizeEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s.events == nil {
		return Event{}, fmt.Errorf("event directory not configured")
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	if !principal.IsAdmin && principal.UserID != event.OrganizerID {
		return Event{}, ErrUnauthorized
	}
	return event, nil
}

// CreateTicketType validates input and persists a new ticket tier for the
// event's organizer or an administrator.
func (s *TicketService) CreateTicketType(ctx context.Context, params CreateTicketTypeParams) (tt TicketType, err error) {
	if s == nil {
		err = fmt.Errorf("TicketService is nil")
		return
	}
	if s.tickets == nil {
		err = fmt.Errorf("ticket repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateTicketType",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create ticket type", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("ticket_type_id", tt.ID).InfoContext(ctx, "ticket type created")
	}()

	if _, err = s.authorizeEvent(ctx, params.Principal, params.EventID); err != nil {
		return
	}

	normalized := normalizeTicketTypeInput(params.Input)
	vErr := validateTicketTypeInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	tt = TicketType{
		ID:           s.idGenerator(),
		EventID:      params.EventID,
		Name:         normalized.Name,
		Description:  normalized.Description,
		Price:        normalized.Price,
		Currency:     normalized.Currency,
		Quantity:     normalized.Quantity,
		Sold:         0,
		SaleStart:    normalized.SaleStart,
		SaleEnd:      normalized.SaleEnd,
		Active:       normalized.Active,
		Benefits:     normalized.Benefits,
		Restrictions: normalized.Restrictions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	persisted, repoErr := s.tickets.CreateTicketType(ctx, tt)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	tt = persisted
	return
}

// GetTicketType retrieves one ticket tier by ID.
func (s *TicketService) GetTicketType(ctx context.Context, id string) (TicketType, error) {
	if s == nil {
		return TicketType{}, fmt.Errorf("TicketService is nil")
	}
	if s.tickets == nil {
		return TicketType{}, fmt.Errorf("ticket repository not configured")
	}

	tt, err := s.tickets.GetTicketType(ctx, id)
	if err != nil {
		return TicketType{}, mapRepoError(err)
	}
	return tt, nil
}

// ListTicketTypes returns the tiers belonging to one event.
func (s *TicketService) ListTicketTypes(ctx context.Context, eventID string) ([]TicketType, error) {
	if s == nil {
		return nil, fmt.Errorf("TicketService is nil")
	}
	if s.tickets == nil {
		return nil, nil
	}

	tiers, err := s.tickets.ListTicketTypes(ctx, eventID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return tiers, nil
}

// UpdateTicketType validates a typed patch and merges it atomically into the
// existing tier. The sold counter is never writable through a patch.
func (s *TicketService) UpdateTicketType(ctx context.Context, params UpdateTicketTypeParams) (tt TicketType, err error) {
	if s == nil {
		err = fmt.Errorf("TicketService is nil")
		return
	}
	if s.tickets == nil {
		err = fmt.Errorf("ticket repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTicketType",
		"principal_id", params.Principal.UserID,
		"ticket_type_id", params.TicketTypeID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update ticket type", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "ticket type updated")
	}()

	existing, getErr := s.tickets.GetTicketType(ctx, params.TicketTypeID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if _, err = s.authorizeEvent(ctx, params.Principal, existing.EventID); err != nil {
		return
	}

	merged, vErr := applyTicketTypePatch(existing, params.Patch)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	merged.UpdatedAt = s.now()
	persisted, repoErr := s.tickets.UpdateTicketType(ctx, merged)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	tt = persisted
	return
}

// DeleteTicketType removes a tier. A tier with recorded sales is retained
// for revenue audit; the attempt reports a conflict the caller can surface
// distinctly from generic failure.
func (s *TicketService) DeleteTicketType(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("TicketService is nil")
	}
	if s.tickets == nil {
		return fmt.Errorf("ticket repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTicketType",
		"principal_id", principal.UserID,
		"ticket_type_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete ticket type", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "ticket type deleted")
	}()

	existing, getErr := s.tickets.GetTicketType(ctx, id)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if _, err = s.authorizeEvent(ctx, principal, existing.EventID); err != nil {
		return
	}
	if existing.Sold > 0 {
		err = &ConflictError{Reason: fmt.Sprintf("ticket type has %d sold tickets and must be retained", existing.Sold)}
		return
	}

	if delErr := s.tickets.DeleteTicketType(ctx, id); delErr != nil {
		if errors.Is(delErr, persistence.ErrConflict) {
			err = &ConflictError{Reason: "ticket type has sold tickets and must be retained"}
			return
		}
		err = mapRepoError(delErr)
		return
	}
	return nil
}

func normalizeTicketTypeInput(input TicketTypeInput) TicketTypeInput {
	out := input
	out.Name = strings.TrimSpace(input.Name)
	out.Description = strings.TrimSpace(input.Description)
	out.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	out.Benefits = trimAll(input.Benefits)
	out.Restrictions = trimAll(input.Restrictions)
	return out
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validateTicketTypeInput(input TicketTypeInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Price.IsNegative() {
		vErr.add("price", "price cannot be negative")
	}
	if input.Currency == "" {
		vErr.add("currency", "currency is required")
	}
	if input.Quantity <= 0 {
		vErr.add("quantity", "quantity must be positive")
	}
	if input.SaleStart.IsZero() || input.SaleEnd.IsZero() {
		vErr.add("sale_window", "sale start and end are required")
	} else if !input.SaleStart.Before(input.SaleEnd) {
		vErr.add("sale_window", "sale start must be before sale end")
	}

	return vErr
}

func applyTicketTypePatch(existing TicketType, patch TicketTypePatch) (TicketType, *ValidationError) {
	vErr := &ValidationError{}
	merged := existing

	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
		if merged.Name == "" {
			vErr.add("name", "name cannot be empty")
		}
	}
	if patch.Description != nil {
		merged.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			vErr.add("price", "price cannot be negative")
		} else {
			merged.Price = *patch.Price
		}
	}
	if patch.Currency != nil {
		merged.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
		if merged.Currency == "" {
			vErr.add("currency", "currency cannot be empty")
		}
	}
	if patch.Quantity != nil {
		if *patch.Quantity < merged.Sold {
			vErr.add("quantity", "quantity cannot fall below tickets already sold")
		} else if *patch.Quantity <= 0 {
			vErr.add("quantity", "quantity must be positive")
		} else {
			merged.Quantity = *patch.Quantity
		}
	}
	if patch.SaleStart != nil {
		merged.SaleStart = *patch.SaleStart
	}
	if patch.SaleEnd != nil {
		merged.SaleEnd = *patch.SaleEnd
	}
	if !merged.SaleStart.Before(merged.SaleEnd) {
		vErr.add("sale_window", "sale start must be before sale end")
	}
	if patch.Active != nil {
		merged.Active = *patch.Active
	}
	if patch.Benefits != nil {
		merged.Benefits = trimAll(*patch.Benefits)
	}
	if patch.Restrictions != nil {
		merged.Restrictions = trimAll(*patch.Restrictions)
	}

	return merged, vErr
}
