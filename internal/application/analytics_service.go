package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/example/event-portal/internal/persistence"
	"github.com/shopspring/decimal"
)

// AnalyticsRepository captures the persistence operations needed by the
// analytics service. ApplySnapshotDelta merges counter bumps under the
// store's write serialization and returns the updated snapshot; the service
// never issues a get-then-update cycle for counters, which would drop
// increments when requests overlap.
type AnalyticsRepository interface {
	CreateSnapshot(ctx context.Context, snapshot AnalyticsSnapshot) error
	GetSnapshot(ctx context.Context, eventID string) (AnalyticsSnapshot, error)
	ApplySnapshotDelta(ctx context.Context, eventID string, delta SnapshotDelta) (AnalyticsSnapshot, error)
}

// AnalyticsService reads and maintains per-event analytics snapshots.
// Callers never observe a missing snapshot for an existing event: a lookup
// that finds none synthesizes one with plausible demo metrics and persists
// it.
type AnalyticsService struct {
	analytics AnalyticsRepository
	events    EventDirectory
	cache     *snapshotCache
	randIntN  func(n int) int
	now       func() time.Time
	logger    *slog.Logger
}

// NewAnalyticsService constructs an analytics service with the provided
// dependencies.
func NewAnalyticsService(analytics AnalyticsRepository, events EventDirectory, now func() time.Time) *AnalyticsService {
	return NewAnalyticsServiceWithLogger(analytics, events, nil, now, nil)
}

// NewAnalyticsServiceWithLogger constructs an analytics service with a
// specified random source and logger.
func NewAnalyticsServiceWithLogger(analytics AnalyticsRepository, events EventDirectory, randIntN func(n int) int, now func() time.Time, logger *slog.Logger) *AnalyticsService {
	if randIntN == nil {
		randIntN = rand.IntN
	}
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{
		analytics: analytics,
		events:    events,
		cache:     newSnapshotCache(0, 0, now),
		randIntN:  randIntN,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *AnalyticsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AnalyticsService", operation, attrs...)
}

// GetSnapshot returns the analytics snapshot for an event, creating one with
// synthesized metrics when the event exists but carries no snapshot yet.
func (s *AnalyticsService) GetSnapshot(ctx context.Context, eventID string) (snapshot AnalyticsSnapshot, err error) {
	if s == nil {
		err = fmt.Errorf("AnalyticsService is nil")
		return
	}
	if s.analytics == nil {
		err = fmt.Errorf("analytics repository not configured")
		return
	}

	if cached, ok := s.cache.Get(eventID); ok {
		return cached, nil
	}

	snapshot, err = s.analytics.GetSnapshot(ctx, eventID)
	if err == nil {
		s.cache.Store(eventID, snapshot)
		return snapshot, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		err = mapRepoError(err)
		return
	}

	if s.events != nil {
		if _, getErr := s.events.GetEvent(ctx, eventID); getErr != nil {
			err = mapRepoError(getErr)
			return
		}
	}

	snapshot = s.synthesizeSnapshot(eventID)
	if createErr := s.analytics.CreateSnapshot(ctx, snapshot); createErr != nil {
		if errors.Is(createErr, persistence.ErrConflict) {
			// Another caller created it between our read and write.
			existing, getErr := s.analytics.GetSnapshot(ctx, eventID)
			if getErr != nil {
				err = mapRepoError(getErr)
				return
			}
			snapshot = existing
		} else {
			err = mapRepoError(createErr)
			return
		}
	}
	s.loggerWith(ctx, "GetSnapshot", "event_id", eventID).InfoContext(ctx, "analytics snapshot synthesized")
	s.cache.Store(eventID, snapshot)
	return snapshot, nil
}

var referrerSources = []string{"direct", "search", "social", "email"}

// synthesizeSnapshot fabricates demo-plausible metrics for events seeded
// before analytics tracking existed.
func (s *AnalyticsService) synthesizeSnapshot(eventID string) AnalyticsSnapshot {
	views := int64(200 + s.randIntN(1800))
	registrations := views * int64(5+s.randIntN(20)) / 100
	revenue := decimal.NewFromInt(registrations).Mul(decimal.NewFromInt(int64(15 + s.randIntN(60))))

	referrers := make([]ReferrerCount, 0, len(referrerSources))
	remaining := registrations
	for i, source := range referrerSources {
		count := remaining
		if i < len(referrerSources)-1 && remaining > 0 {
			count = int64(s.randIntN(int(remaining) + 1))
		}
		referrers = append(referrers, ReferrerCount{Source: source, Count: count})
		remaining -= count
	}
	rankReferrers(referrers)

	now := s.now()
	return AnalyticsSnapshot{
		EventID:       eventID,
		Views:         views,
		Registrations: registrations,
		Revenue:       revenue,
		Referrers:     referrers,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RecordView increments the view counter for an event.
func (s *AnalyticsService) RecordView(ctx context.Context, eventID string) error {
	return s.applyDelta(ctx, "RecordView", eventID, SnapshotDelta{Views: 1})
}

// RecordRegistration increments the registration counter and attributes the
// registration to a referrer source when one is given.
func (s *AnalyticsService) RecordRegistration(ctx context.Context, eventID, referrer string) error {
	return s.applyDelta(ctx, "RecordRegistration", eventID, SnapshotDelta{Registrations: 1, Referrer: referrer})
}

// RecordRevenue adds a completed payment to the cumulative revenue counter.
func (s *AnalyticsService) RecordRevenue(ctx context.Context, eventID string, amount decimal.Decimal) error {
	return s.applyDelta(ctx, "RecordRevenue", eventID, SnapshotDelta{Revenue: amount})
}

// ForgetSnapshot drops any cached copy of an event's snapshot. Event
// deletion calls it so dashboards cannot read a deleted event out of cache.
func (s *AnalyticsService) ForgetSnapshot(eventID string) {
	if s == nil {
		return
	}
	s.cache.Invalidate(eventID)
}

// applyDelta hands the counter bump to the store as one atomic merge. The
// preceding GetSnapshot only guarantees the row exists (synthesizing it for
// events seeded before tracking); the increment itself is never computed
// from that read.
func (s *AnalyticsService) applyDelta(ctx context.Context, operation, eventID string, delta SnapshotDelta) (err error) {
	if s == nil {
		return fmt.Errorf("AnalyticsService is nil")
	}
	if s.analytics == nil {
		return fmt.Errorf("analytics repository not configured")
	}

	logger := s.loggerWith(ctx, operation, "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update analytics snapshot", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if _, getErr := s.GetSnapshot(ctx, eventID); getErr != nil {
		err = getErr
		return
	}

	delta.OccurredAt = s.now()
	updated, deltaErr := s.analytics.ApplySnapshotDelta(ctx, eventID, delta)
	if deltaErr != nil {
		err = mapRepoError(deltaErr)
		return
	}
	s.cache.Store(eventID, updated)
	return nil
}

// rankReferrers keeps referrer sources ordered by count descending, ties
// broken alphabetically for stable output.
func rankReferrers(referrers []ReferrerCount) {
	sort.SliceStable(referrers, func(i, j int) bool {
		if referrers[i].Count != referrers[j].Count {
			return referrers[i].Count > referrers[j].Count
		}
		return referrers[i].Source < referrers[j].Source
	})
}
