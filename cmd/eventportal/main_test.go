package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/event-portal/internal/application"
	"github.com/example/event-portal/internal/config"
	"github.com/example/event-portal/internal/persistence"
	"github.com/example/event-portal/internal/persistence/localstore"
)

func newMemoryStorage(t *testing.T) storage {
	t.Helper()
	return localstore.New(localstore.NewMemoryKV(), localstore.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestPublicRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/sessions", true},
		{http.MethodGet, "/sessions/current", false},
		{http.MethodGet, "/metrics", true},
		{http.MethodGet, "/events", true},
		{http.MethodGet, "/events/evt-1", true},
		{http.MethodGet, "/events/evt-1/attendees", false},
		{http.MethodGet, "/events/evt-1/campaigns", false},
		{http.MethodPost, "/events", false},
		{http.MethodPost, "/events/evt-1/analytics/views", true},
		{http.MethodPost, "/events/evt-1/attendees", false},
		{http.MethodDelete, "/events/evt-1", false},
		{http.MethodGet, "/ticket-types/tt-1", false},
	}

	for _, tc := range tests {
		req, err := http.NewRequest(tc.method, "http://portal.test"+tc.path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		if got := publicRoute(req); got != tc.want {
			t.Errorf("publicRoute(%s %s) = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestBootstrapAdmin(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC) }

	t.Run("creates the admin account on first start", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStorage(t)
		cfg := config.Config{AdminEmail: "admin@example.com", AdminPassword: "s3cret-pass"}

		ids := 0
		idGen := func() string { ids++; return "usr-admin" }

		if err := bootstrapAdmin(context.Background(), store, cfg, idGen, now, logger); err != nil {
			t.Fatalf("bootstrapAdmin: %v", err)
		}

		stored, err := store.GetUserByEmail(context.Background(), "admin@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail: %v", err)
		}
		if !stored.IsAdmin {
			t.Fatal("bootstrapped account should be an admin")
		}
		if err := application.DefaultPasswordHasher().Verify(stored.PasswordHash, "s3cret-pass"); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}

		// A second start must not create a duplicate.
		if err := bootstrapAdmin(context.Background(), store, cfg, idGen, now, logger); err != nil {
			t.Fatalf("second bootstrapAdmin: %v", err)
		}
		if ids != 1 {
			t.Fatalf("id generator invoked %d times, want 1", ids)
		}
	})

	t.Run("does nothing without configured credentials", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStorage(t)
		if err := bootstrapAdmin(context.Background(), store, config.Config{}, func() string { return "usr-x" }, now, logger); err != nil {
			t.Fatalf("bootstrapAdmin: %v", err)
		}
		if _, err := store.GetUserByEmail(context.Background(), ""); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected no account, got err %v", err)
		}
	})
}

func TestEventRepositoryAdapterRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemoryStorage(t)
	adapter := newEventRepositoryAdapter(store)

	price := decimal.RequireFromString("25.00")
	created, err := adapter.CreateEvent(context.Background(), application.Event{
		ID:          "evt-adapter",
		OrganizerID: "usr-1",
		Title:       "Adapter Demo",
		Category:    "workshop",
		Status:      application.EventStatusDraft,
		Visibility:  application.VisibilityPublic,
		Venue:       application.Venue{Name: "Loft", Capacity: 40},
		Price:       &price,
		Currency:    "EUR",
		StartsAt:    time.Date(2026, time.July, 1, 18, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.Status != application.EventStatusDraft || created.Venue.Name != "Loft" {
		t.Fatalf("created event round-trip mismatch: %+v", created)
	}
	if created.Price == nil || !created.Price.Equal(price) {
		t.Fatalf("price round-trip mismatch: %v", created.Price)
	}

	// Creating an event must also seed its analytics snapshot.
	snapshot, err := store.GetSnapshot(context.Background(), "evt-adapter")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snapshot.Views != 0 || snapshot.Registrations != 0 {
		t.Fatalf("expected zeroed snapshot, got %+v", snapshot)
	}

	listed, err := adapter.ListEvents(context.Background(), application.EventRepositoryFilter{Status: application.EventStatusDraft})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "evt-adapter" {
		t.Fatalf("listed = %+v", listed)
	}
}
