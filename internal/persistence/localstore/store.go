// Package localstore implements the portal's record store on a durable
// key-value primitive. Each collection is one JSON-serialized blob under a
// fixed key; every mutation is a read-modify-write of the whole collection,
// so the store serializes mutations per collection. Missing or corrupt blobs
// are never fatal: they are treated as empty and re-seeded.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/event-portal/internal/monitoring"
	"github.com/example/event-portal/internal/persistence"
)

// Collection keys inside the underlying KV.
const (
	keyEvents      = "events"
	keyTicketTypes = "ticket_types"
	keyAttendees   = "attendees"
	keySnapshots   = "analytics_snapshots"
	keyCampaigns   = "campaigns"
	keyUsers       = "users"
	keySessions    = "sessions"
	keySecurityLog = "security_log"
)

// securityLogCap bounds the append-only log; the oldest entries are dropped
// once the cap is exceeded.
const securityLogCap = 1000

// Options configures a Store.
type Options struct {
	// Latency is injected before every operation to mimic a remote backend.
	// Zero disables the delay.
	Latency time.Duration
	// Seed controls whether first-use (or corrupt) collections are
	// bootstrapped with fixture data instead of starting empty.
	Seed   bool
	Logger *slog.Logger
}

// Store is the local record store. It implements every repository contract
// in the persistence package.
type Store struct {
	kv      KV
	latency time.Duration
	seed    bool
	logger  *slog.Logger
	locks   map[string]*sync.RWMutex
}

// New wraps the given KV in a record store.
func New(kv KV, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locks := make(map[string]*sync.RWMutex)
	for _, key := range []string{
		keyEvents, keyTicketTypes, keyAttendees, keySnapshots,
		keyCampaigns, keyUsers, keySessions, keySecurityLog,
	} {
		locks[key] = &sync.RWMutex{}
	}
	return &Store{
		kv:      kv,
		latency: opts.Latency,
		seed:    opts.Seed,
		logger:  logger,
		locks:   locks,
	}
}

func (s *Store) lock(key string) *sync.RWMutex {
	return s.locks[key]
}

// simulateLatency waits for the configured delay, honoring cancellation.
func (s *Store) simulateLatency(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadCollection reads and decodes one collection. A missing key or an
// unreadable/corrupt blob self-heals: the collection is replaced with seed
// data (or an empty slice) and the healed value is written back best effort.
func loadCollection[T any](s *Store, key string, seed func() []T) ([]T, error) {
	data, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("collection unreadable, re-seeding", "collection", key, "error", err)
		return healCollection(s, key, seed), nil
	}
	if !ok {
		return healCollection(s, key, seed), nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("collection corrupt, re-seeding", "collection", key, "error", err)
		return healCollection(s, key, seed), nil
	}
	monitoring.RecordStoreOperation(key, "read", nil)
	return items, nil
}

func healCollection[T any](s *Store, key string, seed func() []T) []T {
	items := []T{}
	if s.seed && seed != nil {
		items = seed()
	}
	if err := saveCollection(s, key, items); err != nil {
		s.logger.Warn("failed to persist re-seeded collection", "collection", key, "error", err)
	}
	return items
}

func saveCollection[T any](s *Store, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		monitoring.RecordStoreOperation(key, "write", err)
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	err = s.kv.Set(key, data)
	monitoring.RecordStoreOperation(key, "write", err)
	return err
}

func (s *Store) loadEvents() ([]persistence.Event, error) {
	return loadCollection(s, keyEvents, seedEvents)
}

func (s *Store) loadTicketTypes() ([]persistence.TicketType, error) {
	return loadCollection(s, keyTicketTypes, seedTicketTypes)
}

func (s *Store) loadSnapshots() ([]persistence.AnalyticsSnapshot, error) {
	return loadCollection(s, keySnapshots, seedSnapshots)
}

func (s *Store) loadAttendees() ([]persistence.Attendee, error) {
	return loadCollection[persistence.Attendee](s, keyAttendees, nil)
}

func (s *Store) loadCampaigns() ([]persistence.Campaign, error) {
	return loadCollection[persistence.Campaign](s, keyCampaigns, nil)
}

func (s *Store) loadUsers() ([]persistence.User, error) {
	return loadCollection[persistence.User](s, keyUsers, nil)
}

func (s *Store) loadSessions() ([]persistence.Session, error) {
	return loadCollection[persistence.Session](s, keySessions, nil)
}

func (s *Store) loadSecurityLog() ([]persistence.SecurityLogEntry, error) {
	return loadCollection[persistence.SecurityLogEntry](s, keySecurityLog, nil)
}

// --- EventRepository implementation ---

// CreateEvent appends a new event and seeds its zero-valued analytics
// snapshot. Lock order is always events before snapshots.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyEvents).Lock()
	defer s.lock(keyEvents).Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return err
	}
	for _, existing := range events {
		if existing.ID == event.ID {
			return fmt.Errorf("localstore: event %s: %w", event.ID, persistence.ErrConflict)
		}
	}
	events = append(events, event)
	if err := saveCollection(s, keyEvents, events); err != nil {
		return err
	}

	s.lock(keySnapshots).Lock()
	defer s.lock(keySnapshots).Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return err
	}
	for _, snap := range snapshots {
		if snap.EventID == event.ID {
			return nil
		}
	}
	snapshots = append(snapshots, persistence.AnalyticsSnapshot{
		EventID:   event.ID,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.CreatedAt,
	})
	return saveCollection(s, keySnapshots, snapshots)
}

// UpdateEvent replaces the stored record carrying the same ID.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyEvents).Lock()
	defer s.lock(keyEvents).Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return err
	}
	for i, existing := range events {
		if existing.ID == event.ID {
			events[i] = event
			return saveCollection(s, keyEvents, events)
		}
	}
	return persistence.ErrNotFound
}

// GetEvent retrieves one event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Event{}, err
	}

	s.lock(keyEvents).RLock()
	defer s.lock(keyEvents).RUnlock()

	events, err := s.loadEvents()
	if err != nil {
		return persistence.Event{}, err
	}
	for _, event := range events {
		if event.ID == id {
			return event, nil
		}
	}
	return persistence.Event{}, persistence.ErrNotFound
}

// ListEvents returns events matching the filter, ordered by creation time.
func (s *Store) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keyEvents).RLock()
	events, err := s.loadEvents()
	s.lock(keyEvents).RUnlock()
	if err != nil {
		return nil, err
	}

	filtered := make([]persistence.Event, 0, len(events))
	for _, event := range events {
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		if filter.Category != "" && event.Category != filter.Category {
			continue
		}
		if filter.OrganizerID != "" && event.OrganizerID != filter.OrganizerID {
			continue
		}
		filtered = append(filtered, event)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	return paginate(filtered, filter.Offset, filter.Limit), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// DeleteEvent removes the event and cascades removal of every dependent row.
// Dependent cleanup is best effort: once the event row is gone the delete is
// reported successful and cleanup failures are only logged.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyEvents).Lock()
	events, err := s.loadEvents()
	if err != nil {
		s.lock(keyEvents).Unlock()
		return err
	}
	found := false
	remaining := make([]persistence.Event, 0, len(events))
	for _, event := range events {
		if event.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, event)
	}
	if !found {
		s.lock(keyEvents).Unlock()
		return persistence.ErrNotFound
	}
	err = saveCollection(s, keyEvents, remaining)
	s.lock(keyEvents).Unlock()
	if err != nil {
		return err
	}

	s.cascadeDelete(id)
	return nil
}

func (s *Store) cascadeDelete(eventID string) {
	if err := removeWhere(s, keyTicketTypes, s.loadTicketTypes, func(tt persistence.TicketType) bool {
		return tt.EventID == eventID
	}); err != nil {
		s.logger.Error("cascade delete failed", "collection", keyTicketTypes, "event_id", eventID, "error", err)
	}
	if err := removeWhere(s, keyAttendees, s.loadAttendees, func(a persistence.Attendee) bool {
		return a.EventID == eventID
	}); err != nil {
		s.logger.Error("cascade delete failed", "collection", keyAttendees, "event_id", eventID, "error", err)
	}
	if err := removeWhere(s, keySnapshots, s.loadSnapshots, func(snap persistence.AnalyticsSnapshot) bool {
		return snap.EventID == eventID
	}); err != nil {
		s.logger.Error("cascade delete failed", "collection", keySnapshots, "event_id", eventID, "error", err)
	}
	if err := removeWhere(s, keyCampaigns, s.loadCampaigns, func(c persistence.Campaign) bool {
		return c.EventID == eventID
	}); err != nil {
		s.logger.Error("cascade delete failed", "collection", keyCampaigns, "event_id", eventID, "error", err)
	}
}

func removeWhere[T any](s *Store, key string, load func() ([]T, error), match func(T) bool) error {
	s.lock(key).Lock()
	defer s.lock(key).Unlock()

	items, err := load()
	if err != nil {
		return err
	}
	remaining := make([]T, 0, len(items))
	for _, item := range items {
		if match(item) {
			continue
		}
		remaining = append(remaining, item)
	}
	if len(remaining) == len(items) {
		return nil
	}
	return saveCollection(s, key, remaining)
}

// --- TicketTypeRepository implementation ---

// CreateTicketType appends a ticket tier after verifying its parent event.
func (s *Store) CreateTicketType(ctx context.Context, tt persistence.TicketType) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}
	if err := s.eventExists(tt.EventID); err != nil {
		return err
	}

	s.lock(keyTicketTypes).Lock()
	defer s.lock(keyTicketTypes).Unlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return err
	}
	for _, existing := range tiers {
		if existing.ID == tt.ID {
			return fmt.Errorf("localstore: ticket type %s: %w", tt.ID, persistence.ErrConflict)
		}
	}
	tiers = append(tiers, tt)
	return saveCollection(s, keyTicketTypes, tiers)
}

func (s *Store) eventExists(id string) error {
	s.lock(keyEvents).RLock()
	defer s.lock(keyEvents).RUnlock()

	events, err := s.loadEvents()
	if err != nil {
		return err
	}
	for _, event := range events {
		if event.ID == id {
			return nil
		}
	}
	return persistence.ErrNotFound
}

// UpdateTicketType replaces the stored tier carrying the same ID.
func (s *Store) UpdateTicketType(ctx context.Context, tt persistence.TicketType) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyTicketTypes).Lock()
	defer s.lock(keyTicketTypes).Unlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return err
	}
	for i, existing := range tiers {
		if existing.ID == tt.ID {
			tiers[i] = tt
			return saveCollection(s, keyTicketTypes, tiers)
		}
	}
	return persistence.ErrNotFound
}

// GetTicketType retrieves one ticket tier by ID.
func (s *Store) GetTicketType(ctx context.Context, id string) (persistence.TicketType, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.TicketType{}, err
	}

	s.lock(keyTicketTypes).RLock()
	defer s.lock(keyTicketTypes).RUnlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return persistence.TicketType{}, err
	}
	for _, tt := range tiers {
		if tt.ID == id {
			return tt, nil
		}
	}
	return persistence.TicketType{}, persistence.ErrNotFound
}

// ListTicketTypes returns the tiers belonging to one event.
func (s *Store) ListTicketTypes(ctx context.Context, eventID string) ([]persistence.TicketType, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keyTicketTypes).RLock()
	defer s.lock(keyTicketTypes).RUnlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return nil, err
	}
	out := make([]persistence.TicketType, 0, len(tiers))
	for _, tt := range tiers {
		if tt.EventID == eventID {
			out = append(out, tt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ClaimTicket takes one seat from a tier. The capacity check and the sold
// increment run under the collection's write lock, so overlapping claims
// are applied one at a time and a full tier reports ErrSoldOut instead of
// overselling.
func (s *Store) ClaimTicket(ctx context.Context, id string, now time.Time) (persistence.TicketType, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.TicketType{}, err
	}

	s.lock(keyTicketTypes).Lock()
	defer s.lock(keyTicketTypes).Unlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return persistence.TicketType{}, err
	}
	for i, tt := range tiers {
		if tt.ID != id {
			continue
		}
		if tt.Sold >= tt.Quantity {
			return persistence.TicketType{}, fmt.Errorf("localstore: ticket type %s has %d of %d sold: %w", id, tt.Sold, tt.Quantity, persistence.ErrSoldOut)
		}
		tiers[i].Sold++
		tiers[i].UpdatedAt = now
		if err := saveCollection(s, keyTicketTypes, tiers); err != nil {
			return persistence.TicketType{}, err
		}
		return tiers[i], nil
	}
	return persistence.TicketType{}, persistence.ErrNotFound
}

// DeleteTicketType removes a tier. Tiers with recorded sales are retained
// for revenue audit and the call reports a conflict.
func (s *Store) DeleteTicketType(ctx context.Context, id string) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyTicketTypes).Lock()
	defer s.lock(keyTicketTypes).Unlock()

	tiers, err := s.loadTicketTypes()
	if err != nil {
		return err
	}
	for i, tt := range tiers {
		if tt.ID != id {
			continue
		}
		if tt.Sold > 0 {
			return fmt.Errorf("localstore: ticket type %s has %d sold tickets: %w", id, tt.Sold, persistence.ErrConflict)
		}
		tiers = append(tiers[:i], tiers[i+1:]...)
		return saveCollection(s, keyTicketTypes, tiers)
	}
	return persistence.ErrNotFound
}

// --- AttendeeRepository implementation ---

// CreateAttendee appends a registration after verifying its parent event.
func (s *Store) CreateAttendee(ctx context.Context, attendee persistence.Attendee) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}
	if err := s.eventExists(attendee.EventID); err != nil {
		return err
	}

	s.lock(keyAttendees).Lock()
	defer s.lock(keyAttendees).Unlock()

	attendees, err := s.loadAttendees()
	if err != nil {
		return err
	}
	for _, existing := range attendees {
		if existing.ID == attendee.ID {
			return fmt.Errorf("localstore: attendee %s: %w", attendee.ID, persistence.ErrConflict)
		}
	}
	attendees = append(attendees, attendee)
	return saveCollection(s, keyAttendees, attendees)
}

// UpdateAttendee replaces the stored registration carrying the same ID.
func (s *Store) UpdateAttendee(ctx context.Context, attendee persistence.Attendee) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyAttendees).Lock()
	defer s.lock(keyAttendees).Unlock()

	attendees, err := s.loadAttendees()
	if err != nil {
		return err
	}
	for i, existing := range attendees {
		if existing.ID == attendee.ID {
			attendees[i] = attendee
			return saveCollection(s, keyAttendees, attendees)
		}
	}
	return persistence.ErrNotFound
}

// GetAttendee retrieves one registration by ID.
func (s *Store) GetAttendee(ctx context.Context, id string) (persistence.Attendee, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Attendee{}, err
	}

	s.lock(keyAttendees).RLock()
	defer s.lock(keyAttendees).RUnlock()

	attendees, err := s.loadAttendees()
	if err != nil {
		return persistence.Attendee{}, err
	}
	for _, attendee := range attendees {
		if attendee.ID == id {
			return attendee, nil
		}
	}
	return persistence.Attendee{}, persistence.ErrNotFound
}

// ListAttendees returns the registrations for one event ordered by
// registration time.
func (s *Store) ListAttendees(ctx context.Context, eventID string) ([]persistence.Attendee, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keyAttendees).RLock()
	defer s.lock(keyAttendees).RUnlock()

	attendees, err := s.loadAttendees()
	if err != nil {
		return nil, err
	}
	out := make([]persistence.Attendee, 0, len(attendees))
	for _, attendee := range attendees {
		if attendee.EventID == eventID {
			out = append(out, attendee)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

// --- AnalyticsRepository implementation ---

// CreateSnapshot stores a snapshot for an event that does not have one yet.
func (s *Store) CreateSnapshot(ctx context.Context, snapshot persistence.AnalyticsSnapshot) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keySnapshots).Lock()
	defer s.lock(keySnapshots).Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return err
	}
	for _, existing := range snapshots {
		if existing.EventID == snapshot.EventID {
			return fmt.Errorf("localstore: snapshot for event %s: %w", snapshot.EventID, persistence.ErrConflict)
		}
	}
	snapshots = append(snapshots, snapshot)
	return saveCollection(s, keySnapshots, snapshots)
}

// UpdateSnapshot replaces the snapshot for the event.
func (s *Store) UpdateSnapshot(ctx context.Context, snapshot persistence.AnalyticsSnapshot) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keySnapshots).Lock()
	defer s.lock(keySnapshots).Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return err
	}
	for i, existing := range snapshots {
		if existing.EventID == snapshot.EventID {
			snapshots[i] = snapshot
			return saveCollection(s, keySnapshots, snapshots)
		}
	}
	return persistence.ErrNotFound
}

// ApplySnapshotDelta merges counter bumps into the stored snapshot while
// holding the collection's write lock, so concurrent bumps from overlapping
// requests never lose an increment.
func (s *Store) ApplySnapshotDelta(ctx context.Context, eventID string, delta persistence.SnapshotDelta) (persistence.AnalyticsSnapshot, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}

	s.lock(keySnapshots).Lock()
	defer s.lock(keySnapshots).Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	for i := range snapshots {
		if snapshots[i].EventID != eventID {
			continue
		}
		delta.ApplyTo(&snapshots[i])
		if err := saveCollection(s, keySnapshots, snapshots); err != nil {
			return persistence.AnalyticsSnapshot{}, err
		}
		return snapshots[i], nil
	}
	return persistence.AnalyticsSnapshot{}, persistence.ErrNotFound
}

// GetSnapshot retrieves the snapshot keyed by event ID.
func (s *Store) GetSnapshot(ctx context.Context, eventID string) (persistence.AnalyticsSnapshot, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}

	s.lock(keySnapshots).RLock()
	defer s.lock(keySnapshots).RUnlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return persistence.AnalyticsSnapshot{}, err
	}
	for _, snapshot := range snapshots {
		if snapshot.EventID == eventID {
			return snapshot, nil
		}
	}
	return persistence.AnalyticsSnapshot{}, persistence.ErrNotFound
}

// --- CampaignRepository implementation ---

// CreateCampaign appends a campaign after verifying its parent event.
func (s *Store) CreateCampaign(ctx context.Context, campaign persistence.Campaign) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}
	if err := s.eventExists(campaign.EventID); err != nil {
		return err
	}

	s.lock(keyCampaigns).Lock()
	defer s.lock(keyCampaigns).Unlock()

	campaigns, err := s.loadCampaigns()
	if err != nil {
		return err
	}
	for _, existing := range campaigns {
		if existing.ID == campaign.ID {
			return fmt.Errorf("localstore: campaign %s: %w", campaign.ID, persistence.ErrConflict)
		}
	}
	campaigns = append(campaigns, campaign)
	return saveCollection(s, keyCampaigns, campaigns)
}

// UpdateCampaign replaces the stored campaign carrying the same ID.
func (s *Store) UpdateCampaign(ctx context.Context, campaign persistence.Campaign) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyCampaigns).Lock()
	defer s.lock(keyCampaigns).Unlock()

	campaigns, err := s.loadCampaigns()
	if err != nil {
		return err
	}
	for i, existing := range campaigns {
		if existing.ID == campaign.ID {
			campaigns[i] = campaign
			return saveCollection(s, keyCampaigns, campaigns)
		}
	}
	return persistence.ErrNotFound
}

// GetCampaign retrieves one campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id string) (persistence.Campaign, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Campaign{}, err
	}

	s.lock(keyCampaigns).RLock()
	defer s.lock(keyCampaigns).RUnlock()

	campaigns, err := s.loadCampaigns()
	if err != nil {
		return persistence.Campaign{}, err
	}
	for _, campaign := range campaigns {
		if campaign.ID == id {
			return campaign, nil
		}
	}
	return persistence.Campaign{}, persistence.ErrNotFound
}

// ListCampaigns returns the campaigns attached to one event.
func (s *Store) ListCampaigns(ctx context.Context, eventID string) ([]persistence.Campaign, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keyCampaigns).RLock()
	defer s.lock(keyCampaigns).RUnlock()

	campaigns, err := s.loadCampaigns()
	if err != nil {
		return nil, err
	}
	out := make([]persistence.Campaign, 0, len(campaigns))
	for _, campaign := range campaigns {
		if campaign.EventID == eventID {
			out = append(out, campaign)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteCampaign removes one campaign by ID.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyCampaigns).Lock()
	defer s.lock(keyCampaigns).Unlock()

	campaigns, err := s.loadCampaigns()
	if err != nil {
		return err
	}
	for i, campaign := range campaigns {
		if campaign.ID == id {
			campaigns = append(campaigns[:i], campaigns[i+1:]...)
			return saveCollection(s, keyCampaigns, campaigns)
		}
	}
	return persistence.ErrNotFound
}

// --- UserRepository implementation ---

// CreateUser appends a user, enforcing email uniqueness.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyUsers).Lock()
	defer s.lock(keyUsers).Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.ID == user.ID || strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("localstore: user %s: %w", user.ID, persistence.ErrConflict)
		}
	}
	users = append(users, user)
	return saveCollection(s, keyUsers, users)
}

// UpdateUser replaces the stored user carrying the same ID.
func (s *Store) UpdateUser(ctx context.Context, user persistence.User) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyUsers).Lock()
	defer s.lock(keyUsers).Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.ID != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("localstore: email %s: %w", user.Email, persistence.ErrConflict)
		}
	}
	for i, existing := range users {
		if existing.ID == user.ID {
			users[i] = user
			return saveCollection(s, keyUsers, users)
		}
	}
	return persistence.ErrNotFound
}

// GetUser retrieves one user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.User{}, err
	}

	s.lock(keyUsers).RLock()
	defer s.lock(keyUsers).RUnlock()

	users, err := s.loadUsers()
	if err != nil {
		return persistence.User{}, err
	}
	for _, user := range users {
		if user.ID == id {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// GetUserByEmail retrieves one user by email, case insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.User{}, err
	}

	s.lock(keyUsers).RLock()
	defer s.lock(keyUsers).RUnlock()

	users, err := s.loadUsers()
	if err != nil {
		return persistence.User{}, err
	}
	for _, user := range users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keyUsers).RLock()
	defer s.lock(keyUsers).RUnlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	out := make([]persistence.User, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteUser removes one user by ID.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keyUsers).Lock()
	defer s.lock(keyUsers).Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	for i, user := range users {
		if user.ID == id {
			users = append(users[:i], users[i+1:]...)
			return saveCollection(s, keyUsers, users)
		}
	}
	return persistence.ErrNotFound
}

// --- SessionRepository implementation ---

// CreateSession stores a new session and returns the persisted value.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Session{}, err
	}

	s.lock(keySessions).Lock()
	defer s.lock(keySessions).Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return persistence.Session{}, err
	}
	for _, existing := range sessions {
		if existing.Token == session.Token {
			return persistence.Session{}, fmt.Errorf("localstore: session token: %w", persistence.ErrConflict)
		}
	}
	sessions = append(sessions, session)
	if err := saveCollection(s, keySessions, sessions); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// GetSession retrieves a session by its token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Session{}, err
	}

	s.lock(keySessions).RLock()
	defer s.lock(keySessions).RUnlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return persistence.Session{}, err
	}
	for _, session := range sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks the session revoked and returns the updated value.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return persistence.Session{}, err
	}

	s.lock(keySessions).Lock()
	defer s.lock(keySessions).Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return persistence.Session{}, err
	}
	for i, session := range sessions {
		if session.Token == token {
			revoked := revokedAt
			sessions[i].RevokedAt = &revoked
			sessions[i].UpdatedAt = revokedAt
			if err := saveCollection(s, keySessions, sessions); err != nil {
				return persistence.Session{}, err
			}
			return sessions[i], nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// DeleteExpiredSessions drops sessions whose expiry is at or before the
// reference time.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keySessions).Lock()
	defer s.lock(keySessions).Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return err
	}
	remaining := make([]persistence.Session, 0, len(sessions))
	for _, session := range sessions {
		if !session.ExpiresAt.After(reference) {
			continue
		}
		remaining = append(remaining, session)
	}
	if len(remaining) == len(sessions) {
		return nil
	}
	return saveCollection(s, keySessions, remaining)
}

// --- SecurityLogRepository implementation ---

// AppendSecurityLog appends an audit entry, trimming the oldest entries once
// the log exceeds its cap.
func (s *Store) AppendSecurityLog(ctx context.Context, entry persistence.SecurityLogEntry) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.lock(keySecurityLog).Lock()
	defer s.lock(keySecurityLog).Unlock()

	entries, err := s.loadSecurityLog()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > securityLogCap {
		entries = entries[len(entries)-securityLogCap:]
	}
	return saveCollection(s, keySecurityLog, entries)
}

// ListSecurityLog returns up to limit entries, newest first.
func (s *Store) ListSecurityLog(ctx context.Context, limit int) ([]persistence.SecurityLogEntry, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.lock(keySecurityLog).RLock()
	defer s.lock(keySecurityLog).RUnlock()

	entries, err := s.loadSecurityLog()
	if err != nil {
		return nil, err
	}
	out := make([]persistence.SecurityLogEntry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
