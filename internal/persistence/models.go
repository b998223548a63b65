package persistence

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Venue describes where an event takes place.
type Venue struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

// Event represents the canonical persisted record for an organized event.
type Event struct {
	ID          string           `json:"id"`
	OrganizerID string           `json:"organizer_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	StartsAt    time.Time        `json:"starts_at"`
	Venue       Venue            `json:"venue"`
	CoverImage  string           `json:"cover_image,omitempty"`
	Status      string           `json:"status"`
	Visibility  string           `json:"visibility"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TicketType represents a purchasable ticket tier belonging to one event.
type TicketType struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Quantity     int             `json:"quantity"`
	Sold         int             `json:"sold"`
	SaleStart    time.Time       `json:"sale_start"`
	SaleEnd      time.Time       `json:"sale_end"`
	Active       bool            `json:"active"`
	Benefits     []string        `json:"benefits,omitempty"`
	Restrictions []string        `json:"restrictions,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Attendee represents one registration for an event.
type Attendee struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	TicketTypeID  *string   `json:"ticket_type_id,omitempty"`
	UserID        string    `json:"user_id"`
	RegisteredAt  time.Time `json:"registered_at"`
	CheckInStatus string    `json:"check_in_status"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReferrerCount counts registrations attributed to a single referrer source.
type ReferrerCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// AnalyticsSnapshot aggregates per-event counters. Exactly one snapshot
// exists per event; the event ID doubles as the snapshot key.
type AnalyticsSnapshot struct {
	EventID       string          `json:"event_id"`
	Views         int64           `json:"views"`
	Registrations int64           `json:"registrations"`
	Revenue       decimal.Decimal `json:"revenue"`
	Referrers     []ReferrerCount `json:"referrers,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SnapshotDelta is a counter adjustment applied to one snapshot inside the
// store's serialized write path, so overlapping bumps never lose an
// increment to a read-modify-write race.
type SnapshotDelta struct {
	Views         int64
	Registrations int64
	Referrer      string
	Revenue       decimal.Decimal
	OccurredAt    time.Time
}

// ApplyTo merges the delta into the snapshot: counters are added, revenue
// accumulated, the named referrer bumped (or appended), and referrers kept
// ordered by count descending with ties broken by source.
func (d SnapshotDelta) ApplyTo(snapshot *AnalyticsSnapshot) {
	snapshot.Views += d.Views
	snapshot.Registrations += d.Registrations
	if !d.Revenue.IsZero() {
		snapshot.Revenue = snapshot.Revenue.Add(d.Revenue)
	}
	if d.Referrer != "" {
		found := false
		for i := range snapshot.Referrers {
			if snapshot.Referrers[i].Source == d.Referrer {
				snapshot.Referrers[i].Count++
				found = true
				break
			}
		}
		if !found {
			snapshot.Referrers = append(snapshot.Referrers, ReferrerCount{Source: d.Referrer, Count: 1})
		}
		sort.SliceStable(snapshot.Referrers, func(i, j int) bool {
			if snapshot.Referrers[i].Count != snapshot.Referrers[j].Count {
				return snapshot.Referrers[i].Count > snapshot.Referrers[j].Count
			}
			return snapshot.Referrers[i].Source < snapshot.Referrers[j].Source
		})
	}
	snapshot.UpdatedAt = d.OccurredAt
}

// Campaign represents a marketing campaign attached to one event.
type Campaign struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Name      string     `json:"name"`
	Channel   string     `json:"channel"`
	Subject   string     `json:"subject"`
	Content   string     `json:"content"`
	Audience  string     `json:"audience"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	OpenRate  float64    `json:"open_rate"`
	ClickRate float64    `json:"click_rate"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// User represents a portal account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// SecurityLogEntry records a security-relevant action for audit purposes.
type SecurityLogEntry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
