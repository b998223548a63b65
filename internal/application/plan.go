package application

import (
	"context"
	"fmt"
)

// FreeTierPlanPolicy allows a bounded number of concurrently published
// events per organizer and reports ErrUpgradeRequired beyond the bound.
type FreeTierPlanPolicy struct {
	events       EventRepository
	maxPublished int
}

// NewFreeTierPlanPolicy constructs the bundled free-tier policy. A
// non-positive maxPublished disables the gate.
func NewFreeTierPlanPolicy(events EventRepository, maxPublished int) *FreeTierPlanPolicy {
	return &FreeTierPlanPolicy{events: events, maxPublished: maxPublished}
}

// AllowPublish reports whether the organizer may publish one more event.
func (p *FreeTierPlanPolicy) AllowPublish(ctx context.Context, organizerID string) error {
	if p == nil || p.events == nil || p.maxPublished <= 0 {
		return nil
	}

	published, err := p.events.ListEvents(ctx, EventRepositoryFilter{
		Status:      EventStatusPublished,
		OrganizerID: organizerID,
	})
	if err != nil {
		return mapRepoError(err)
	}
	if len(published) >= p.maxPublished {
		return fmt.Errorf("free tier allows %d published events: %w", p.maxPublished, ErrUpgradeRequired)
	}
	return nil
}
