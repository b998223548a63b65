package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/event-portal/internal/persistence"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(NewMemoryKV(), opts)
}

func testEvent(id string) persistence.Event {
	now := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	return persistence.Event{
		ID:          id,
		OrganizerID: "org-1",
		Title:       "Demo",
		Category:    "conference",
		StartsAt:    now.AddDate(0, 1, 0),
		Status:      "draft",
		Visibility:  "public",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore_EventRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	got, err := store.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Title != "Demo" {
		t.Fatalf("expected title Demo, got %q", got.Title)
	}
	if got.CreatedAt.IsZero() || !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("expected CreatedAt == UpdatedAt, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}

	if _, err := store.GetEvent(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CreateEventSeedsSnapshot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	snapshot, err := store.GetSnapshot(ctx, "evt-1")
	if err != nil {
		t.Fatalf("expected a zero-valued snapshot, got %v", err)
	}
	if snapshot.Views != 0 || snapshot.Registrations != 0 {
		t.Fatalf("expected zero counters, got %#v", snapshot)
	}
}

func TestStore_ConcurrentCreatesLoseNoWrite(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{Latency: 2 * time.Millisecond})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.CreateEvent(ctx, testEvent(fmt.Sprintf("evt-%d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	events, err := store.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != n {
		t.Fatalf("expected %d events, got %d", n, len(events))
	}
	seen := make(map[string]bool, n)
	for _, event := range events {
		if seen[event.ID] {
			t.Fatalf("duplicate identity %s", event.ID)
		}
		seen[event.ID] = true
	}
}

func TestStore_DeleteEventCascades(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		tt := persistence.TicketType{ID: fmt.Sprintf("tt-%d", i), EventID: "evt-1", Name: "GA", Quantity: 10}
		if err := store.CreateTicketType(ctx, tt); err != nil {
			t.Fatalf("CreateTicketType failed: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		a := persistence.Attendee{ID: fmt.Sprintf("att-%d", i), EventID: "evt-1", UserID: "user-1"}
		if err := store.CreateAttendee(ctx, a); err != nil {
			t.Fatalf("CreateAttendee failed: %v", err)
		}
	}
	if err := store.CreateCampaign(ctx, persistence.Campaign{ID: "cmp-1", EventID: "evt-1", Name: "Launch", Channel: "email", Status: "draft"}); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	if err := store.DeleteEvent(ctx, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if tiers, err := store.ListTicketTypes(ctx, "evt-1"); err != nil || len(tiers) != 0 {
		t.Fatalf("expected no remaining tiers, got %d (%v)", len(tiers), err)
	}
	if attendees, err := store.ListAttendees(ctx, "evt-1"); err != nil || len(attendees) != 0 {
		t.Fatalf("expected no remaining attendees, got %d (%v)", len(attendees), err)
	}
	if campaigns, err := store.ListCampaigns(ctx, "evt-1"); err != nil || len(campaigns) != 0 {
		t.Fatalf("expected no remaining campaigns, got %d (%v)", len(campaigns), err)
	}
	if _, err := store.GetSnapshot(ctx, "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected snapshot to be removed, got %v", err)
	}
}

func TestStore_DeleteTicketTypeSoldGuard(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := store.CreateTicketType(ctx, persistence.TicketType{ID: "tt-sold", EventID: "evt-1", Quantity: 10, Sold: 1}); err != nil {
		t.Fatalf("CreateTicketType failed: %v", err)
	}
	if err := store.CreateTicketType(ctx, persistence.TicketType{ID: "tt-unsold", EventID: "evt-1", Quantity: 10}); err != nil {
		t.Fatalf("CreateTicketType failed: %v", err)
	}

	if err := store.DeleteTicketType(ctx, "tt-sold"); !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if tt, err := store.GetTicketType(ctx, "tt-sold"); err != nil || tt.Sold != 1 {
		t.Fatalf("expected tier unchanged after blocked delete, got %#v (%v)", tt, err)
	}

	if err := store.DeleteTicketType(ctx, "tt-unsold"); err != nil {
		t.Fatalf("expected unsold tier to be deletable, got %v", err)
	}
	if _, err := store.GetTicketType(ctx, "tt-unsold"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected tier to be gone, got %v", err)
	}
}

func TestStore_ConcurrentClaimsNeverOversell(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{Latency: 2 * time.Millisecond})
	ctx := context.Background()
	now := time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := store.CreateTicketType(ctx, persistence.TicketType{ID: "tt-1", EventID: "evt-1", Quantity: 5}); err != nil {
		t.Fatalf("CreateTicketType failed: %v", err)
	}

	const claimers = 8
	var wg sync.WaitGroup
	errs := make([]error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.ClaimTicket(ctx, "tt-1", now)
		}(i)
	}
	wg.Wait()

	var claimed, soldOut int
	for i, err := range errs {
		switch {
		case err == nil:
			claimed++
		case errors.Is(err, persistence.ErrSoldOut):
			soldOut++
		default:
			t.Fatalf("claim %d failed: %v", i, err)
		}
	}
	if claimed != 5 || soldOut != claimers-5 {
		t.Fatalf("expected 5 claims and %d sold-out rejections, got %d and %d", claimers-5, claimed, soldOut)
	}

	tt, err := store.GetTicketType(ctx, "tt-1")
	if err != nil {
		t.Fatalf("GetTicketType failed: %v", err)
	}
	if tt.Sold != 5 {
		t.Fatalf("expected sold counter 5, got %d", tt.Sold)
	}
}

func TestStore_ConcurrentSnapshotDeltasLoseNoIncrement(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{Latency: 2 * time.Millisecond})
	ctx := context.Background()
	now := time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)

	if err := store.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	const bumps = 20
	var wg sync.WaitGroup
	errs := make([]error, bumps)
	for i := 0; i < bumps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.ApplySnapshotDelta(ctx, "evt-1", persistence.SnapshotDelta{
				Views:         1,
				Registrations: 1,
				Referrer:      "social",
				OccurredAt:    now,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("delta %d failed: %v", i, err)
		}
	}

	snapshot, err := store.GetSnapshot(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snapshot.Views != bumps || snapshot.Registrations != bumps {
		t.Fatalf("expected %d views and registrations, got %d and %d", bumps, snapshot.Views, snapshot.Registrations)
	}
	if len(snapshot.Referrers) != 1 || snapshot.Referrers[0].Count != bumps {
		t.Fatalf("expected referrer count %d, got %#v", bumps, snapshot.Referrers)
	}

	if _, err := store.ApplySnapshotDelta(ctx, "missing", persistence.SnapshotDelta{Views: 1}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing snapshot, got %v", err)
	}
}

func TestStore_SelfHealing(t *testing.T) {
	t.Parallel()

	t.Run("corrupt blob re-seeds fixtures", func(t *testing.T) {
		t.Parallel()

		kv := NewMemoryKV()
		if err := kv.Set("events", []byte("{not json")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store := New(kv, Options{Seed: true, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

		events, err := store.ListEvents(context.Background(), persistence.EventFilter{})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) == 0 {
			t.Fatalf("expected fixture events after self-heal")
		}
		if events[0].ID != "evt-aurora-summit" {
			t.Fatalf("expected fixture seed, got %q", events[0].ID)
		}
	})

	t.Run("corrupt blob heals to empty without seeding", func(t *testing.T) {
		t.Parallel()

		kv := NewMemoryKV()
		if err := kv.Set("events", []byte("[[[")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		store := New(kv, Options{Seed: false, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

		events, err := store.ListEvents(context.Background(), persistence.EventFilter{})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected empty collection, got %d", len(events))
		}
	})

	t.Run("first use seeds aligned fixtures", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, Options{Seed: true})
		ctx := context.Background()

		tiers, err := store.ListTicketTypes(ctx, "evt-aurora-summit")
		if err != nil {
			t.Fatalf("ListTicketTypes failed: %v", err)
		}
		if len(tiers) != 2 {
			t.Fatalf("expected 2 fixture tiers, got %d", len(tiers))
		}
		snapshot, err := store.GetSnapshot(ctx, "evt-aurora-summit")
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if snapshot.Registrations == 0 {
			t.Fatalf("expected seeded registrations, got %#v", snapshot)
		}
	})
}

func TestStore_LatencyHonorsCancellation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{Latency: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := store.CreateEvent(ctx, testEvent("evt-1"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected immediate return, took %v", elapsed)
	}

	// The aborted create must leave no partial write behind.
	events, err := store.ListEvents(context.Background(), persistence.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events after cancelled create, got %d", len(events))
	}
}

func TestStore_UpdateEventReplacesWholeRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	event := testEvent("evt-1")
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.Title = "Renamed"
	event.UpdatedAt = event.UpdatedAt.Add(time.Hour)
	if err := store.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	got, err := store.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Title != "Renamed" || !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("unexpected stored record: %#v", got)
	}

	if err := store.UpdateEvent(ctx, testEvent("missing")); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListEventsFilterAndPagination(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := testEvent(fmt.Sprintf("evt-%d", i))
		event.CreatedAt = event.CreatedAt.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			event.Status = "published"
		}
		if err := store.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	published, err := store.ListEvents(ctx, persistence.EventFilter{Status: "published"})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(published) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(published))
	}

	page, err := store.ListEvents(ctx, persistence.EventFilter{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "evt-1" {
		t.Fatalf("unexpected page: %#v", page)
	}
}

func TestStore_SessionLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()
	now := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	session := persistence.Session{ID: "sid-1", UserID: "user-1", Token: "token", ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
	if _, err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "token")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected session: %#v", got)
	}

	revoked, err := store.RevokeSession(ctx, "token", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil {
		t.Fatalf("expected RevokedAt to be set")
	}

	expired := persistence.Session{ID: "sid-2", UserID: "user-1", Token: "old", ExpiresAt: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now}
	if _, err := store.CreateSession(ctx, expired); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.DeleteExpiredSessions(ctx, now); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "old"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be purged, got %v", err)
	}
}

func TestStore_SecurityLogCap(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, Options{})
	ctx := context.Background()
	base := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < securityLogCap+5; i++ {
		entry := persistence.SecurityLogEntry{
			ID:         fmt.Sprintf("log-%d", i),
			Actor:      "user-1",
			Action:     "sign_in",
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendSecurityLog(ctx, entry); err != nil {
			t.Fatalf("AppendSecurityLog failed: %v", err)
		}
	}

	entries, err := store.ListSecurityLog(ctx, 0)
	if err != nil {
		t.Fatalf("ListSecurityLog failed: %v", err)
	}
	if len(entries) != securityLogCap {
		t.Fatalf("expected log capped at %d, got %d", securityLogCap, len(entries))
	}
	for _, entry := range entries {
		if entry.ID == "log-0" {
			t.Fatalf("expected oldest entries to be dropped")
		}
	}
}

func TestFileKV_RoundTrip(t *testing.T) {
	t.Parallel()

	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}

	if _, ok, err := kv.Get("events"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set("events", []byte(`[{"id":"evt-1"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, ok, err := kv.Get("events")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"id":"evt-1"}]` {
		t.Fatalf("unexpected data: %s", data)
	}
	if err := kv.Delete("events"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get("events"); ok {
		t.Fatalf("expected key to be deleted")
	}
}
