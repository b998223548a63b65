package persistence

import (
	"context"
	"time"
)

// EventFilter narrows event listings. Zero-valued fields are ignored.
type EventFilter struct {
	Status      string
	Category    string
	OrganizerID string
	Offset      int
	Limit       int
}

// EventRepository stores event records. CreateEvent also seeds the event's
// zero-valued analytics snapshot so that the two rows appear together.
// DeleteEvent cascades to ticket types, attendees, the snapshot, and
// campaigns referencing the event.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// TicketTypeRepository stores ticket tiers. DeleteTicketType returns
// ErrConflict when the tier has recorded sales; the row is left unchanged.
// ClaimTicket increments the sold counter atomically with its capacity
// check, so two overlapping claims cannot both take the last seat; a full
// tier reports ErrSoldOut.
type TicketTypeRepository interface {
	CreateTicketType(ctx context.Context, tt TicketType) error
	UpdateTicketType(ctx context.Context, tt TicketType) error
	GetTicketType(ctx context.Context, id string) (TicketType, error)
	ListTicketTypes(ctx context.Context, eventID string) ([]TicketType, error)
	ClaimTicket(ctx context.Context, id string, now time.Time) (TicketType, error)
	DeleteTicketType(ctx context.Context, id string) error
}

// AttendeeRepository stores event registrations.
type AttendeeRepository interface {
	CreateAttendee(ctx context.Context, attendee Attendee) error
	UpdateAttendee(ctx context.Context, attendee Attendee) error
	GetAttendee(ctx context.Context, id string) (Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]Attendee, error)
}

// AnalyticsRepository stores per-event analytics snapshots keyed by event
// ID. ApplySnapshotDelta merges counter bumps inside the store's serialized
// write path and returns the updated snapshot; callers must use it instead
// of a get-then-update cycle, which would drop increments under concurrency.
type AnalyticsRepository interface {
	CreateSnapshot(ctx context.Context, snapshot AnalyticsSnapshot) error
	UpdateSnapshot(ctx context.Context, snapshot AnalyticsSnapshot) error
	GetSnapshot(ctx context.Context, eventID string) (AnalyticsSnapshot, error)
	ApplySnapshotDelta(ctx context.Context, eventID string, delta SnapshotDelta) (AnalyticsSnapshot, error)
}

// CampaignRepository stores marketing campaigns.
type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign Campaign) error
	UpdateCampaign(ctx context.Context, campaign Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, eventID string) ([]Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for portal accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// SecurityLogRepository appends to and reads the append-only security log.
type SecurityLogRepository interface {
	AppendSecurityLog(ctx context.Context, entry SecurityLogEntry) error
	ListSecurityLog(ctx context.Context, limit int) ([]SecurityLogEntry, error)
}
