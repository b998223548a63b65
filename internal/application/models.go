package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// EventStatus is the lifecycle state of an event record.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

var eventStatusOrder = map[EventStatus]int{
	EventStatusDraft:     0,
	EventStatusPublished: 1,
	EventStatusOngoing:   2,
	EventStatusCompleted: 3,
}

// Valid reports whether the status is a known lifecycle state.
func (s EventStatus) Valid() bool {
	if s == EventStatusCancelled {
		return true
	}
	_, ok := eventStatusOrder[s]
	return ok
}

// Terminal reports whether no further transitions may leave this status.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is permitted:
// forward through draft, published, ongoing, completed, with cancellation
// reachable from any non-terminal state.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == s {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == EventStatusCancelled {
		return true
	}
	return eventStatusOrder[next] > eventStatusOrder[s]
}

// Visibility controls who can discover an event.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

// Valid reports whether the visibility is a known value.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return true
	}
	return false
}

// Event categories accepted by the portal.
var eventCategories = map[string]bool{
	"conference": true,
	"meetup":     true,
	"workshop":   true,
	"concert":    true,
	"webinar":    true,
	"other":      true,
}

// CheckInStatus is the attendance state of a registration.
type CheckInStatus string

const (
	CheckInPending   CheckInStatus = "pending"
	CheckInCheckedIn CheckInStatus = "checked-in"
	CheckInNoShow    CheckInStatus = "no-show"
)

// Valid reports whether the status is a known value.
func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInPending, CheckInCheckedIn, CheckInNoShow:
		return true
	}
	return false
}

// PaymentStatus is the payment state of a registration.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether the status is a known value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentRefunded:
		return true
	}
	return false
}

// CampaignChannel is the delivery channel of a marketing campaign.
type CampaignChannel string

const (
	ChannelEmail  CampaignChannel = "email"
	ChannelSocial CampaignChannel = "social"
	ChannelSMS    CampaignChannel = "sms"
	ChannelPush   CampaignChannel = "push"
)

// Valid reports whether the channel is a known value.
func (c CampaignChannel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSocial, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// CampaignStatus is the lifecycle state of a marketing campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSent      CampaignStatus = "sent"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignSent, CampaignCancelled:
		return true
	}
	return false
}

// Venue describes where an event takes place.
type Venue struct {
	Name     string
	Address  string
	Capacity int
}

// Event represents a persisted event record.
type Event struct {
	ID          string
	OrganizerID string
	Title       string
	Description string
	Category    string
	StartsAt    time.Time
	Venue       Venue
	CoverImage  string
	Status      EventStatus
	Visibility  Visibility
	Price       *decimal.Decimal
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Description string
	Category    string
	StartsAt    time.Time
	Venue       Venue
	CoverImage  string
	Visibility  Visibility
	Price       *decimal.Decimal
	Currency    string
}

// EventPatch is a typed partial update: nil fields are left unchanged and
// the whole patch is validated before being merged atomically.
type EventPatch struct {
	Title       *string
	Description *string
	Category    *string
	StartsAt    *time.Time
	Venue       *Venue
	CoverImage  *string
	Status      *EventStatus
	Visibility  *Visibility
	Price       *decimal.Decimal
	Currency    *string
}

// CreateEventParams wraps the data required to create an event. Status must
// be draft or published; the zero value defaults to draft.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
	Status    EventStatus
}

// UpdateEventParams wraps the data required to patch an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Patch     EventPatch
}

// ListEventsParams narrows event listings. Zero-valued fields are ignored.
type ListEventsParams struct {
	Principal   Principal
	Status      EventStatus
	Category    string
	OrganizerID string
	Offset      int
	Limit       int
}

// TicketType represents a purchasable ticket tier.
type TicketType struct {
	ID           string
	EventID      string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Quantity     int
	Sold         int
	SaleStart    time.Time
	SaleEnd      time.Time
	Active       bool
	Benefits     []string
	Restrictions []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TicketTypeInput captures caller provided ticket tier fields.
type TicketTypeInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Quantity     int
	SaleStart    time.Time
	SaleEnd      time.Time
	Active       bool
	Benefits     []string
	Restrictions []string
}

// TicketTypePatch is a typed partial update for a ticket tier.
type TicketTypePatch struct {
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	Currency     *string
	Quantity     *int
	SaleStart    *time.Time
	SaleEnd      *time.Time
	Active       *bool
	Benefits     *[]string
	Restrictions *[]string
}

// CreateTicketTypeParams wraps the data required to create a ticket tier.
type CreateTicketTypeParams struct {
	Principal Principal
	EventID   string
	Input     TicketTypeInput
}

// UpdateTicketTypeParams wraps the data required to patch a ticket tier.
type UpdateTicketTypeParams struct {
	Principal    Principal
	TicketTypeID string
	Patch        TicketTypePatch
}

// Attendee represents one registration for an event.
type Attendee struct {
	ID            string
	EventID       string
	TicketTypeID  *string
	UserID        string
	RegisteredAt  time.Time
	CheckInStatus CheckInStatus
	PaymentStatus PaymentStatus
	UpdatedAt     time.Time
}

// RegisterAttendeeParams wraps the data required to register an attendee.
type RegisterAttendeeParams struct {
	Principal    Principal
	EventID      string
	TicketTypeID *string
	UserID       string
	Referrer     string
}

// ReferrerCount counts registrations attributed to one referrer source.
type ReferrerCount struct {
	Source string
	Count  int64
}

// AnalyticsSnapshot aggregates per-event counters.
type AnalyticsSnapshot struct {
	EventID       string
	Views         int64
	Registrations int64
	Revenue       decimal.Decimal
	Referrers     []ReferrerCount
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SnapshotDelta is a counter adjustment the analytics store applies
// atomically, keeping concurrent bumps from losing increments.
type SnapshotDelta struct {
	Views         int64
	Registrations int64
	Referrer      string
	Revenue       decimal.Decimal
	OccurredAt    time.Time
}

// ConversionRate derives registrations over views, zero when there are no
// views.
func (s AnalyticsSnapshot) ConversionRate() float64 {
	if s.Views == 0 {
		return 0
	}
	return float64(s.Registrations) / float64(s.Views)
}

// Campaign represents a marketing campaign attached to one event.
type Campaign struct {
	ID        string
	EventID   string
	Name      string
	Channel   CampaignChannel
	Subject   string
	Content   string
	Audience  string
	Status    CampaignStatus
	SentAt    *time.Time
	OpenRate  float64
	ClickRate float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CampaignInput captures caller provided campaign fields.
type CampaignInput struct {
	Name     string
	Channel  CampaignChannel
	Subject  string
	Content  string
	Audience string
}

// CampaignPatch is a typed partial update for a campaign.
type CampaignPatch struct {
	Name     *string
	Channel  *CampaignChannel
	Subject  *string
	Content  *string
	Audience *string
	Status   *CampaignStatus
}

// CreateCampaignParams wraps the data required to create a campaign.
type CreateCampaignParams struct {
	Principal Principal
	EventID   string
	Input     CampaignInput
}

// UpdateCampaignParams wraps the data required to patch a campaign.
type UpdateCampaignParams struct {
	Principal  Principal
	CampaignID string
	Patch      CampaignPatch
}

// User represents a portal account as seen by the application layer.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials bundles the stored credential material for sign-in.
type UserCredentials struct {
	User         User
	PasswordHash string
	Disabled     bool
}

// Session represents an authentication session.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SignInParams wraps the data required to authenticate.
type SignInParams struct {
	Email    string
	Password string
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	User    User
	Session Session
}

// SecurityLogEntry records a security-relevant action for audit purposes.
type SecurityLogEntry struct {
	ID         string
	Actor      string
	Action     string
	Detail     string
	OccurredAt time.Time
}
