package localstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/event-portal/internal/persistence"
)

// Fixture identities are stable so that the ticket type and snapshot seeds
// line up with their parent events across independent first-use seeds.
const (
	fixtureOrganizerID = "org-demo"
	fixtureEventSummit = "evt-aurora-summit"
	fixtureEventMeetup = "evt-harbor-meetup"
)

var fixtureBase = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func seedEvents() []persistence.Event {
	summitPrice := decimal.NewFromInt(149)
	return []persistence.Event{
		{
			ID:          fixtureEventSummit,
			OrganizerID: fixtureOrganizerID,
			Title:       "Aurora Tech Summit",
			Description: "Two days of talks and workshops on cloud infrastructure.",
			Category:    "conference",
			StartsAt:    fixtureBase.AddDate(0, 3, 0),
			Venue: persistence.Venue{
				Name:     "Harborview Convention Center",
				Address:  "1 Pier Road",
				Capacity: 1200,
			},
			Status:     "published",
			Visibility: "public",
			Price:      &summitPrice,
			Currency:   "USD",
			CreatedAt:  fixtureBase,
			UpdatedAt:  fixtureBase,
		},
		{
			ID:          fixtureEventMeetup,
			OrganizerID: fixtureOrganizerID,
			Title:       "Harbor Developer Meetup",
			Description: "Monthly community meetup with lightning talks.",
			Category:    "meetup",
			StartsAt:    fixtureBase.AddDate(0, 1, 0),
			Venue: persistence.Venue{
				Name:     "Dockside Hall",
				Address:  "42 Quay Street",
				Capacity: 150,
			},
			Status:     "draft",
			Visibility: "unlisted",
			CreatedAt:  fixtureBase.Add(time.Hour),
			UpdatedAt:  fixtureBase.Add(time.Hour),
		},
	}
}

func seedTicketTypes() []persistence.TicketType {
	return []persistence.TicketType{
		{
			ID:          "tt-summit-early",
			EventID:     fixtureEventSummit,
			Name:        "Early Bird",
			Description: "Full access at the early-bird rate.",
			Price:       decimal.NewFromInt(99),
			Currency:    "USD",
			Quantity:    200,
			Sold:        37,
			SaleStart:   fixtureBase,
			SaleEnd:     fixtureBase.AddDate(0, 1, 0),
			Active:      true,
			Benefits:    []string{"All sessions", "Workshop access", "Lunch included"},
			CreatedAt:   fixtureBase,
			UpdatedAt:   fixtureBase,
		},
		{
			ID:           "tt-summit-standard",
			EventID:      fixtureEventSummit,
			Name:         "Standard",
			Description:  "Full access at the regular rate.",
			Price:        decimal.NewFromInt(149),
			Currency:     "USD",
			Quantity:     800,
			Sold:         0,
			SaleStart:    fixtureBase.AddDate(0, 1, 0),
			SaleEnd:      fixtureBase.AddDate(0, 3, 0),
			Active:       true,
			Restrictions: []string{"Non-refundable after sale close"},
			CreatedAt:    fixtureBase.Add(time.Minute),
			UpdatedAt:    fixtureBase.Add(time.Minute),
		},
	}
}

func seedSnapshots() []persistence.AnalyticsSnapshot {
	return []persistence.AnalyticsSnapshot{
		{
			EventID:       fixtureEventSummit,
			Views:         2480,
			Registrations: 37,
			Revenue:       decimal.NewFromInt(3663),
			Referrers: []persistence.ReferrerCount{
				{Source: "newsletter", Count: 19},
				{Source: "social", Count: 11},
				{Source: "direct", Count: 7},
			},
			CreatedAt: fixtureBase,
			UpdatedAt: fixtureBase,
		},
		{
			EventID:   fixtureEventMeetup,
			CreatedAt: fixtureBase.Add(time.Hour),
			UpdatedAt: fixtureBase.Add(time.Hour),
		},
	}
}
