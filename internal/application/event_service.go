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

// EventRepository captures the persistence operations needed by the event
// service. DeleteEvent is expected to cascade to dependent rows.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error)
}

// EventRepositoryFilter narrows repository event listings.
type EventRepositoryFilter struct {
	Status      EventStatus
	Category    string
	OrganizerID string
	Offset      int
	Limit       int
}

// PlanPolicy gates operations behind the organizer's plan tier. A blocked
// operation yields ErrUpgradeRequired.
type PlanPolicy interface {
	AllowPublish(ctx context.Context, organizerID string) error
}

// SnapshotInvalidator drops cached analytics for an event. The event
// service consults it after a delete so a stale snapshot cannot be served
// for an event that no longer exists.
type SnapshotInvalidator interface {
	ForgetSnapshot(eventID string)
}

// EventService orchestrates validation, authorization, and persistence for
// event records.
type EventService struct {
	events      EventRepository
	plan        PlanPolicy
	snapshots   SnapshotInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRepository, plan PlanPolicy, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, plan, nil, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with an optional
// snapshot cache invalidator and a specified logger.
func NewEventServiceWithLogger(events EventRepository, plan PlanPolicy, snapshots SnapshotInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		plan:        plan,
		snapshots:   snapshots,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates input and persists a new event record. Missing
// status and visibility default to draft and public; creating directly in
// published state consults the plan policy.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	status := params.Status
	if status == "" {
		status = EventStatusDraft
	}
	if status != EventStatusDraft && status != EventStatusPublished {
		vErr := &ValidationError{}
		vErr.add("status", "new events must be draft or published")
		err = vErr
		return
	}

	normalized := normalizeEventInput(params.Input)
	vErr := validateEventInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if status == EventStatusPublished && s.plan != nil {
		if err = s.plan.AllowPublish(ctx, params.Principal.UserID); err != nil {
			return
		}
	}

	now := s.now()
	event = Event{
		ID:          s.idGenerator(),
		OrganizerID: params.Principal.UserID,
		Title:       normalized.Title,
		Description: normalized.Description,
		Category:    normalized.Category,
		StartsAt:    normalized.StartsAt,
		Venue:       normalized.Venue,
		CoverImage:  normalized.CoverImage,
		Status:      status,
		Visibility:  normalized.Visibility,
		Price:       normalized.Price,
		Currency:    normalized.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.events == nil {
		return
	}

	persisted, repoErr := s.events.CreateEvent(ctx, event)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	event = persisted
	return
}

// GetEvent retrieves one event record by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapRepoError(err)
	}
	return event, nil
}

// ListEvents returns events matching the given filters. Reads are
// side-effect free.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, nil
	}

	events, err := s.events.ListEvents(ctx, EventRepositoryFilter{
		Status:      params.Status,
		Category:    params.Category,
		OrganizerID: params.OrganizerID,
		Offset:      params.Offset,
		Limit:       params.Limit,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return events, nil
}

// UpdateEvent validates a typed patch and merges it atomically into the
// existing record. Status changes must follow the forward-only lifecycle;
// moving into published consults the plan policy.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	existing, getErr := s.events.GetEvent(ctx, params.EventID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if !params.Principal.IsAdmin && params.Principal.UserID != existing.OrganizerID {
		err = ErrUnauthorized
		return
	}

	merged, vErr := applyEventPatch(existing, params.Patch)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if params.Patch.Status != nil && *params.Patch.Status == EventStatusPublished &&
		existing.Status != EventStatusPublished && s.plan != nil {
		if err = s.plan.AllowPublish(ctx, existing.OrganizerID); err != nil {
			return
		}
	}

	merged.UpdatedAt = s.now()
	persisted, repoErr := s.events.UpdateEvent(ctx, merged)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	event = persisted
	return
}

func (s *EventService) forgetSnapshot(eventID string) {
	if s.snapshots != nil {
		s.snapshots.ForgetSnapshot(eventID)
	}
}

// DeleteEvent removes an event and, through the repository, every dependent
// row. Deleting an absent event succeeds, making retries harmless.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	existing, getErr := s.events.GetEvent(ctx, id)
	if getErr != nil {
		if errors.Is(getErr, persistence.ErrNotFound) || errors.Is(getErr, ErrNotFound) {
			return nil
		}
		err = mapRepoError(getErr)
		return
	}
	if !principal.IsAdmin && principal.UserID != existing.OrganizerID {
		err = ErrUnauthorized
		return
	}

	if delErr := s.events.DeleteEvent(ctx, id); delErr != nil {
		if errors.Is(delErr, persistence.ErrNotFound) || errors.Is(delErr, ErrNotFound) {
			s.forgetSnapshot(id)
			return nil
		}
		err = mapRepoError(delErr)
		return
	}
	s.forgetSnapshot(id)
	return nil
}

func normalizeEventInput(input EventInput) EventInput {
	out := input
	out.Title = strings.TrimSpace(input.Title)
	out.Description = strings.TrimSpace(input.Description)
	out.Category = strings.ToLower(strings.TrimSpace(input.Category))
	if out.Category == "" {
		out.Category = "other"
	}
	out.CoverImage = strings.TrimSpace(input.CoverImage)
	out.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	out.Venue.Name = strings.TrimSpace(input.Venue.Name)
	out.Venue.Address = strings.TrimSpace(input.Venue.Address)
	if out.Visibility == "" {
		out.Visibility = VisibilityPublic
	}
	return out
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if !eventCategories[input.Category] {
		vErr.add("category", "unknown category")
	}
	if input.StartsAt.IsZero() {
		vErr.add("starts_at", "start date is required")
	}
	if input.Venue.Capacity < 0 {
		vErr.add("venue.capacity", "capacity cannot be negative")
	}
	if !input.Visibility.Valid() {
		vErr.add("visibility", "unknown visibility")
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			vErr.add("price", "price cannot be negative")
		}
		if input.Currency == "" {
			vErr.add("currency", "currency is required when a price is set")
		}
	}

	return vErr
}

func applyEventPatch(existing Event, patch EventPatch) (Event, *ValidationError) {
	vErr := &ValidationError{}
	merged := existing

	if patch.Title != nil {
		merged.Title = strings.TrimSpace(*patch.Title)
		if merged.Title == "" {
			vErr.add("title", "title cannot be empty")
		}
	}
	if patch.Description != nil {
		merged.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		merged.Category = strings.ToLower(strings.TrimSpace(*patch.Category))
		if !eventCategories[merged.Category] {
			vErr.add("category", "unknown category")
		}
	}
	if patch.StartsAt != nil {
		if patch.StartsAt.IsZero() {
			vErr.add("starts_at", "start date cannot be empty")
		} else {
			merged.StartsAt = *patch.StartsAt
		}
	}
	if patch.Venue != nil {
		venue := *patch.Venue
		venue.Name = strings.TrimSpace(venue.Name)
		venue.Address = strings.TrimSpace(venue.Address)
		if venue.Capacity < 0 {
			vErr.add("venue.capacity", "capacity cannot be negative")
		}
		merged.Venue = venue
	}
	if patch.CoverImage != nil {
		merged.CoverImage = strings.TrimSpace(*patch.CoverImage)
	}
	if patch.Status != nil {
		if !existing.Status.CanTransitionTo(*patch.Status) {
			vErr.add("status", fmt.Sprintf("cannot transition from %s to %s", existing.Status, *patch.Status))
		} else {
			merged.Status = *patch.Status
		}
	}
	if patch.Visibility != nil {
		if !patch.Visibility.Valid() {
			vErr.add("visibility", "unknown visibility")
		} else {
			merged.Visibility = *patch.Visibility
		}
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			vErr.add("price", "price cannot be negative")
		} else {
			price := *patch.Price
			merged.Price = &price
		}
	}
	if patch.Currency != nil {
		merged.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
	}
	if merged.Price != nil && merged.Currency == "" {
		vErr.add("currency", "currency is required when a price is set")
	}

	return merged, vErr
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return ErrAlreadyExists
	}
	return err
}
