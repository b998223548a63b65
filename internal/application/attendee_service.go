package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/event-portal/internal/persistence"
	"github.com/shopspring/decimal"
)

// AttendeeRepository captures the persistence operations needed by the
// attendee service.
type AttendeeRepository interface {
	CreateAttendee(ctx context.Context, a Attendee) (Attendee, error)
	GetAttendee(ctx context.Context, id string) (Attendee, error)
	UpdateAttendee(ctx context.Context, a Attendee) (Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]Attendee, error)
}

// AnalyticsRecorder is the counter-bumping slice of the analytics store used
// by registration and payment flows. Failures here are logged, never
// propagated: losing a counter must not fail a registration.
type AnalyticsRecorder interface {
	RecordRegistration(ctx context.Context, eventID, referrer string) error
	RecordRevenue(ctx context.Context, eventID string, amount decimal.Decimal) error
}

// AttendeeService orchestrates registrations, check-ins, and payment state.
type AttendeeService struct {
	attendees   AttendeeRepository
	tickets     TicketTypeRepository
	events      EventDirectory
	analytics   AnalyticsRecorder
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendeeService constructs an attendee service with the provided
// dependencies.
func NewAttendeeService(attendees AttendeeRepository, tickets TicketTypeRepository, events EventDirectory, analytics AnalyticsRecorder, idGenerator func() string, now func() time.Time) *AttendeeService {
	return NewAttendeeServiceWithLogger(attendees, tickets, events, analytics, idGenerator, now, nil)
}

// NewAttendeeServiceWithLogger constructs an attendee service with a
// specified logger.
func NewAttendeeServiceWithLogger(attendees AttendeeRepository, tickets TicketTypeRepository, events EventDirectory, analytics AnalyticsRecorder, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendeeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendeeService{
		attendees:   attendees,
		tickets:     tickets,
		events:      events,
		analytics:   analytics,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendeeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendeeService", operation, attrs...)
}

// RegisterAttendee registers a user for an event. When a ticket tier is
// named, its sold counter is incremented; the registration counter on the
// event's analytics snapshot is bumped best-effort.
func (s *AttendeeService) RegisterAttendee(ctx context.Context, params RegisterAttendeeParams) (attendee Attendee, err error) {
	if s == nil {
		err = fmt.Errorf("AttendeeService is nil")
		return
	}
	if s.attendees == nil {
		err = fmt.Errorf("attendee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RegisterAttendee",
		"event_id", params.EventID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register attendee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("attendee_id", attendee.ID).InfoContext(ctx, "attendee registered")
	}()

	vErr := &ValidationError{}
	if params.EventID == "" {
		vErr.add("event_id", "event is required")
	}
	if params.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event, getErr := s.events.GetEvent(ctx, params.EventID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if event.Status != EventStatusPublished && event.Status != EventStatusOngoing {
		err = &ConflictError{Reason: fmt.Sprintf("event is %s and not open for registration", event.Status)}
		return
	}

	if params.TicketTypeID != nil {
		if err = s.claimTicket(ctx, *params.TicketTypeID, params.EventID); err != nil {
			return
		}
	}

	now := s.now()
	attendee = Attendee{
		ID:            s.idGenerator(),
		EventID:       params.EventID,
		TicketTypeID:  params.TicketTypeID,
		UserID:        params.UserID,
		RegisteredAt:  now,
		CheckInStatus: CheckInPending,
		PaymentStatus: PaymentPending,
		UpdatedAt:     now,
	}
	persisted, repoErr := s.attendees.CreateAttendee(ctx, attendee)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	attendee = persisted

	if s.analytics != nil {
		if recErr := s.analytics.RecordRegistration(ctx, params.EventID, params.Referrer); recErr != nil {
			logger.WarnContext(ctx, "failed to record registration metric", "error", recErr)
		}
	}
	return
}

// claimTicket takes one seat from a tier after checking ownership and the
// sale window. The capacity check itself is left to the store's atomic
// ClaimTicket: deciding sold-out from the read here would let two
// overlapping registrations both pass and oversell the tier.
func (s *AttendeeService) claimTicket(ctx context.Context, ticketTypeID, eventID string) error {
	if s.tickets == nil {
		return fmt.Errorf("ticket repository not configured")
	}
	tt, err := s.tickets.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return mapRepoError(err)
	}
	if tt.EventID != eventID {
		vErr := &ValidationError{}
		vErr.add("ticket_type_id", "ticket type does not belong to this event")
		return vErr
	}
	if !tt.Active {
		return &ConflictError{Reason: "ticket type is not on sale"}
	}
	now := s.now()
	if now.Before(tt.SaleStart) || now.After(tt.SaleEnd) {
		return &ConflictError{Reason: "ticket type is outside its sale window"}
	}

	if _, err := s.tickets.ClaimTicket(ctx, ticketTypeID, now); err != nil {
		if errors.Is(err, persistence.ErrSoldOut) {
			return &ConflictError{Reason: "ticket type is sold out"}
		}
		return mapRepoError(err)
	}
	return nil
}

// GetAttendee retrieves one registration by ID.
func (s *AttendeeService) GetAttendee(ctx context.Context, id string) (Attendee, error) {
	if s == nil {
		return Attendee{}, fmt.Errorf("AttendeeService is nil")
	}
	if s.attendees == nil {
		return Attendee{}, fmt.Errorf("attendee repository not configured")
	}
	a, err := s.attendees.GetAttendee(ctx, id)
	if err != nil {
		return Attendee{}, mapRepoError(err)
	}
	return a, nil
}

// ListAttendees returns the registrations for one event. Only the organizer
// or an administrator may see the list.
func (s *AttendeeService) ListAttendees(ctx context.Context, principal Principal, eventID string) ([]Attendee, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendeeService is nil")
	}
	if s.attendees == nil {
		return nil, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !principal.IsAdmin && principal.UserID != event.OrganizerID {
		return nil, ErrUnauthorized
	}

	attendees, err := s.attendees.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return attendees, nil
}

// SetCheckInStatus records a check-in state change for a registration.
func (s *AttendeeService) SetCheckInStatus(ctx context.Context, principal Principal, attendeeID string, status CheckInStatus) (attendee Attendee, err error) {
	if s == nil {
		err = fmt.Errorf("AttendeeService is nil")
		return
	}
	if s.attendees == nil {
		err = fmt.Errorf("attendee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetCheckInStatus",
		"attendee_id", attendeeID,
		"status", string(status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update check-in status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "check-in status updated")
	}()

	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("check_in_status", fmt.Sprintf("unknown check-in status %q", status))
		err = vErr
		return
	}

	existing, getErr := s.attendees.GetAttendee(ctx, attendeeID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if err = s.authorizeOrganizer(ctx, principal, existing.EventID); err != nil {
		return
	}

	existing.CheckInStatus = status
	existing.UpdatedAt = s.now()
	persisted, repoErr := s.attendees.UpdateAttendee(ctx, existing)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	attendee = persisted
	return
}

// SetPaymentStatus records a payment state change. A transition to completed
// adds the tier price to the event's revenue counter best-effort.
func (s *AttendeeService) SetPaymentStatus(ctx context.Context, principal Principal, attendeeID string, status PaymentStatus) (attendee Attendee, err error) {
	if s == nil {
		err = fmt.Errorf("AttendeeService is nil")
		return
	}
	if s.attendees == nil {
		err = fmt.Errorf("attendee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetPaymentStatus",
		"attendee_id", attendeeID,
		"status", string(status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update payment status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "payment status updated")
	}()

	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("payment_status", fmt.Sprintf("unknown payment status %q", status))
		err = vErr
		return
	}

	existing, getErr := s.attendees.GetAttendee(ctx, attendeeID)
	if getErr != nil {
		err = mapRepoError(getErr)
		return
	}
	if err = s.authorizeOrganizer(ctx, principal, existing.EventID); err != nil {
		return
	}

	completedNow := status == PaymentCompleted && existing.PaymentStatus != PaymentCompleted

	existing.PaymentStatus = status
	existing.UpdatedAt = s.now()
	persisted, repoErr := s.attendees.UpdateAttendee(ctx, existing)
	if repoErr != nil {
		err = mapRepoError(repoErr)
		return
	}
	attendee = persisted

	if completedNow && s.analytics != nil && attendee.TicketTypeID != nil && s.tickets != nil {
		tt, ttErr := s.tickets.GetTicketType(ctx, *attendee.TicketTypeID)
		if ttErr != nil {
			logger.WarnContext(ctx, "failed to load ticket type for revenue", "error", ttErr)
			return
		}
		if recErr := s.analytics.RecordRevenue(ctx, attendee.EventID, tt.Price); recErr != nil {
			logger.WarnContext(ctx, "failed to record revenue metric", "error", recErr)
		}
	}
	return
}

func (s *AttendeeService) authorizeOrganizer(ctx context.Context, principal Principal, eventID string) error {
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
