// Package wizard drives the linear five-phase event authoring flow. A
// Controller accumulates one draft across phases and submits it to the
// event service as either a draft or a published event.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/event-portal/internal/application"
	"github.com/example/event-portal/internal/monitoring"
)

// Phase is one step of the authoring flow.
type Phase string

const (
	PhaseRequirements   Phase = "requirements"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
	PhaseVerification   Phase = "verification"
	PhaseMaintenance    Phase = "maintenance"
)

var phaseOrder = []Phase{
	PhaseRequirements,
	PhaseDesign,
	PhaseImplementation,
	PhaseVerification,
	PhaseMaintenance,
}

var phaseIndex = func() map[Phase]int {
	idx := make(map[Phase]int, len(phaseOrder))
	for i, p := range phaseOrder {
		idx[p] = i
	}
	return idx
}()

// ErrSubmitInFlight is returned when an exit action is invoked while a
// previous submission has not yet completed.
var ErrSubmitInFlight = errors.New("a submission is already in flight")

// Summary carries the top-level fields every phase may contribute to.
type Summary struct {
	Title    string
	StartsAt time.Time
}

// Requirements captures the first phase of the draft.
type Requirements struct {
	Description        string
	Category           string
	ExpectedAttendance int
}

// Design captures venue and presentation choices.
type Design struct {
	Venue      application.Venue
	CoverImage string
	Visibility application.Visibility
}

// TicketPlan is one intended ticket tier sketched during authoring. Tiers
// are created against the store only after the event itself exists.
type TicketPlan struct {
	Name     string
	Price    decimal.Decimal
	Currency string
	Quantity int
}

// Implementation captures ticketing decisions.
type Implementation struct {
	TicketPlans []TicketPlan
	BasePrice   *decimal.Decimal
	Currency    string
}

// Verification captures the pre-publish review phase.
type Verification struct {
	ReviewedBy string
	Notes      string
	Approved   bool
}

// Maintenance captures post-event follow-up plans.
type Maintenance struct {
	FollowUpPlan    string
	ArchiveAfter    *time.Time
	ContactEmail    string
	FeedbackSurveys bool
}

// Draft is the transient aggregate accumulated across phases. It lives only
// in the controller's memory until an exit action succeeds.
type Draft struct {
	Summary        Summary
	Requirements   Requirements
	Design         Design
	Implementation Implementation
	Verification   Verification
	Maintenance    Maintenance
}

// Outcome reports how a submission ended.
type Outcome string

const (
	// OutcomeCreated means the event was persisted and the wizard closed.
	OutcomeCreated Outcome = "created"
	// OutcomeUpgradeRequired means a plan gate blocked the submission; the
	// caller should surface an upgrade prompt, not an error banner.
	OutcomeUpgradeRequired Outcome = "upgrade_required"
	// OutcomeFailed means the submission failed; the draft is retained so
	// the same exit action can be retried.
	OutcomeFailed Outcome = "failed"
)

// Result is the typed outcome of an exit action.
type Result struct {
	Outcome Outcome
	Event   application.Event
	Err     error
}

// EventCreator is the slice of the event service the wizard needs.
type EventCreator interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
}

// Controller owns one draft and the current phase. It is safe for use from
// a single authoring session; the submit guard additionally protects the
// exit actions against overlapping invocations.
type Controller struct {
	events     EventCreator
	principal  application.Principal
	onComplete func(application.Event)
	logger     *slog.Logger

	mu         sync.Mutex
	phase      Phase
	draft      Draft
	submitting bool
}

// NewController constructs a wizard controller positioned at the
// requirements phase. onComplete may be nil; when set it is invoked after a
// successful submission, once the wizard has discarded its draft.
func NewController(events EventCreator, principal application.Principal, onComplete func(application.Event)) *Controller {
	return NewControllerWithLogger(events, principal, onComplete, nil)
}

// NewControllerWithLogger constructs a wizard controller with a specified logger.
func NewControllerWithLogger(events EventCreator, principal application.Principal, onComplete func(application.Event), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		events:     events,
		principal:  principal,
		onComplete: onComplete,
		logger:     logger,
		phase:      PhaseRequirements,
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Draft returns a copy of the accumulated draft.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Next advances exactly one phase forward, clamping at maintenance.
func (c *Controller) Next() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := phaseIndex[c.phase]; i < len(phaseOrder)-1 {
		c.phase = phaseOrder[i+1]
	}
	return c.phase
}

// Back retreats exactly one phase backward, clamping at requirements.
func (c *Controller) Back() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := phaseIndex[c.phase]; i > 0 {
		c.phase = phaseOrder[i-1]
	}
	return c.phase
}

// SetSummary writes the top-level summary fields. Any phase may call it.
func (c *Controller) SetSummary(summary Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Summary = summary
}

// SetRequirements writes the requirements sub-object.
func (c *Controller) SetRequirements(r Requirements) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Requirements = r
}

// SetDesign writes the design sub-object.
func (c *Controller) SetDesign(d Design) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Design = d
}

// SetImplementation writes the implementation sub-object.
func (c *Controller) SetImplementation(impl Implementation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Implementation = impl
}

// SetVerification writes the verification sub-object.
func (c *Controller) SetVerification(v Verification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Verification = v
}

// SetMaintenance writes the maintenance sub-object.
func (c *Controller) SetMaintenance(m Maintenance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Maintenance = m
}

// SaveDraft submits the accumulated draft with status draft.
func (c *Controller) SaveDraft(ctx context.Context) (Result, error) {
	return c.submit(ctx, "save_draft", application.EventStatusDraft)
}

// Publish submits the accumulated draft with status published.
func (c *Controller) Publish(ctx context.Context) (Result, error) {
	return c.submit(ctx, "publish", application.EventStatusPublished)
}

// submit runs one exit action. A second call while one is in flight is
// rejected outright with ErrSubmitInFlight. On failure the draft and phase
// are left untouched so the user may retry without re-entering data.
func (c *Controller) submit(ctx context.Context, action string, status application.EventStatus) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("wizard controller is nil")
	}
	if c.events == nil {
		return Result{}, fmt.Errorf("event creator not configured")
	}

	c.mu.Lock()
	if c.phase != PhaseMaintenance {
		phase := c.phase
		c.mu.Unlock()
		return Result{}, fmt.Errorf("exit actions are only available from the maintenance phase (current: %s)", phase)
	}
	if c.submitting {
		c.mu.Unlock()
		monitoring.RecordWizardSubmission(action, "rejected_in_flight")
		return Result{}, ErrSubmitInFlight
	}
	c.submitting = true
	draft := c.draft
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	logger := c.logger.With("component", "wizard", "action", action)

	event, err := c.events.CreateEvent(ctx, application.CreateEventParams{
		Principal: c.principal,
		Input:     draft.toEventInput(),
		Status:    status,
	})
	if err != nil {
		if errors.Is(err, application.ErrUpgradeRequired) {
			logger.InfoContext(ctx, "submission blocked by plan gate")
			monitoring.RecordWizardSubmission(action, string(OutcomeUpgradeRequired))
			return Result{Outcome: OutcomeUpgradeRequired, Err: err}, nil
		}
		logger.ErrorContext(ctx, "submission failed", "error", err)
		monitoring.RecordWizardSubmission(action, string(OutcomeFailed))
		return Result{Outcome: OutcomeFailed, Err: err}, nil
	}

	// Ownership of the record has transferred to the store; drop our copy
	// and reset for a fresh authoring session.
	c.mu.Lock()
	c.draft = Draft{}
	c.phase = PhaseRequirements
	c.mu.Unlock()

	logger.With("event_id", event.ID).InfoContext(ctx, "submission succeeded")
	monitoring.RecordWizardSubmission(action, string(OutcomeCreated))
	if c.onComplete != nil {
		c.onComplete(event)
	}
	return Result{Outcome: OutcomeCreated, Event: event}, nil
}

// toEventInput flattens the phase sub-objects into the record shape the
// event service accepts.
func (d Draft) toEventInput() application.EventInput {
	visibility := d.Design.Visibility
	if visibility == "" {
		visibility = application.VisibilityPublic
	}
	currency := strings.TrimSpace(d.Implementation.Currency)
	return application.EventInput{
		Title:       d.Summary.Title,
		Description: d.Requirements.Description,
		Category:    d.Requirements.Category,
		StartsAt:    d.Summary.StartsAt,
		Venue:       d.Design.Venue,
		CoverImage:  d.Design.CoverImage,
		Visibility:  visibility,
		Price:       d.Implementation.BasePrice,
		Currency:    currency,
	}
}
