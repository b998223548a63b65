package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/event-portal/internal/application"
)

func advanceToMaintenance(c *Controller) {
	for i := 0; i < len(phaseOrder); i++ {
		c.Next()
	}
}

func TestController_Linearity(t *testing.T) {
	t.Parallel()

	t.Run("back is a no-op at requirements", func(t *testing.T) {
		t.Parallel()

		c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
		if got := c.Back(); got != PhaseRequirements {
			t.Fatalf("expected requirements, got %s", got)
		}
	})

	t.Run("next is a no-op at maintenance", func(t *testing.T) {
		t.Parallel()

		c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
		advanceToMaintenance(c)
		if got := c.Phase(); got != PhaseMaintenance {
			t.Fatalf("expected maintenance, got %s", got)
		}
		if got := c.Next(); got != PhaseMaintenance {
			t.Fatalf("expected maintenance after extra next, got %s", got)
		}
	})

	t.Run("five nexts from requirements reach exactly maintenance", func(t *testing.T) {
		t.Parallel()

		c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
		var last Phase
		for i := 0; i < 5; i++ {
			last = c.Next()
		}
		if last != PhaseMaintenance {
			t.Fatalf("expected maintenance, got %s", last)
		}
	})

	t.Run("next and back walk adjacent phases only", func(t *testing.T) {
		t.Parallel()

		c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
		if got := c.Next(); got != PhaseDesign {
			t.Fatalf("expected design, got %s", got)
		}
		if got := c.Next(); got != PhaseImplementation {
			t.Fatalf("expected implementation, got %s", got)
		}
		if got := c.Back(); got != PhaseDesign {
			t.Fatalf("expected design after back, got %s", got)
		}
	})
}

func TestController_PhaseSetters(t *testing.T) {
	t.Parallel()

	c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
	c.SetSummary(Summary{Title: "Demo", StartsAt: time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)})
	c.SetRequirements(Requirements{Description: "A demo event", Category: "meetup"})
	c.SetDesign(Design{Venue: application.Venue{Name: "Hall A"}, Visibility: application.VisibilityUnlisted})

	draft := c.Draft()
	if draft.Summary.Title != "Demo" {
		t.Fatalf("expected summary title, got %q", draft.Summary.Title)
	}
	if draft.Requirements.Category != "meetup" {
		t.Fatalf("expected requirements category, got %q", draft.Requirements.Category)
	}
	if draft.Design.Venue.Name != "Hall A" {
		t.Fatalf("expected design venue, got %q", draft.Design.Venue.Name)
	}

	input := draft.toEventInput()
	if input.Title != "Demo" || input.Category != "meetup" || input.Visibility != application.VisibilityUnlisted {
		t.Fatalf("unexpected flattened input: %#v", input)
	}
}

func TestController_ExitActions(t *testing.T) {
	t.Parallel()

	t.Run("save draft submits with draft status and resets", func(t *testing.T) {
		t.Parallel()

		creator := &eventCreatorStub{}
		var completed []application.Event
		c := NewController(creator, application.Principal{UserID: "org-1"}, func(e application.Event) {
			completed = append(completed, e)
		})
		c.SetSummary(Summary{Title: "Demo", StartsAt: time.Now().Add(time.Hour)})
		advanceToMaintenance(c)

		result, err := c.SaveDraft(context.Background())
		if err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
		if result.Outcome != OutcomeCreated {
			t.Fatalf("expected created outcome, got %s", result.Outcome)
		}
		if len(creator.calls) != 1 || creator.calls[0].Status != application.EventStatusDraft {
			t.Fatalf("expected one draft submission, got %#v", creator.calls)
		}
		if len(completed) != 1 {
			t.Fatalf("expected completion callback, got %d calls", len(completed))
		}
		if c.Phase() != PhaseRequirements || c.Draft().Summary.Title != "" {
			t.Fatalf("expected wizard reset after success")
		}
	})

	t.Run("publish submits with published status", func(t *testing.T) {
		t.Parallel()

		creator := &eventCreatorStub{}
		c := NewController(creator, application.Principal{UserID: "org-1"}, nil)
		c.SetSummary(Summary{Title: "Demo", StartsAt: time.Now().Add(time.Hour)})
		advanceToMaintenance(c)

		if _, err := c.Publish(context.Background()); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if len(creator.calls) != 1 || creator.calls[0].Status != application.EventStatusPublished {
			t.Fatalf("expected one published submission, got %#v", creator.calls)
		}
	})

	t.Run("exit actions are unavailable before maintenance", func(t *testing.T) {
		t.Parallel()

		c := NewController(&eventCreatorStub{}, application.Principal{UserID: "org-1"}, nil)
		if _, err := c.SaveDraft(context.Background()); err == nil {
			t.Fatalf("expected error before maintenance")
		}
	})

	t.Run("upgrade gate surfaces a distinct outcome", func(t *testing.T) {
		t.Parallel()

		creator := &eventCreatorStub{
			err: fmt.Errorf("plan limit reached: %w", application.ErrUpgradeRequired),
		}
		c := NewController(creator, application.Principal{UserID: "org-1"}, nil)
		c.SetSummary(Summary{Title: "Demo", StartsAt: time.Now().Add(time.Hour)})
		advanceToMaintenance(c)

		result, err := c.Publish(context.Background())
		if err != nil {
			t.Fatalf("Publish returned transport error: %v", err)
		}
		if result.Outcome != OutcomeUpgradeRequired {
			t.Fatalf("expected upgrade outcome, got %s", result.Outcome)
		}
		if !errors.Is(result.Err, application.ErrUpgradeRequired) {
			t.Fatalf("expected wrapped ErrUpgradeRequired, got %v", result.Err)
		}
	})

	t.Run("draft is retained after a failed submission", func(t *testing.T) {
		t.Parallel()

		creator := &eventCreatorStub{err: errors.New("store unavailable")}
		c := NewController(creator, application.Principal{UserID: "org-1"}, nil)
		c.SetSummary(Summary{Title: "Demo", StartsAt: time.Now().Add(time.Hour)})
		advanceToMaintenance(c)

		result, err := c.SaveDraft(context.Background())
		if err != nil {
			t.Fatalf("SaveDraft returned transport error: %v", err)
		}
		if result.Outcome != OutcomeFailed {
			t.Fatalf("expected failed outcome, got %s", result.Outcome)
		}
		if c.Draft().Summary.Title != "Demo" || c.Phase() != PhaseMaintenance {
			t.Fatalf("expected draft and phase retained for retry")
		}

		// Retry after the store recovers.
		creator.err = nil
		result, err = c.SaveDraft(context.Background())
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if result.Outcome != OutcomeCreated {
			t.Fatalf("expected created outcome on retry, got %s", result.Outcome)
		}
	})

	t.Run("a second submit while one is in flight is rejected", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		started := make(chan struct{})
		creator := &eventCreatorStub{block: release, started: started}
		c := NewController(creator, application.Principal{UserID: "org-1"}, nil)
		c.SetSummary(Summary{Title: "Demo", StartsAt: time.Now().Add(time.Hour)})
		advanceToMaintenance(c)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.SaveDraft(context.Background()); err != nil {
				t.Errorf("first submit failed: %v", err)
			}
		}()

		<-started
		if _, err := c.SaveDraft(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
			t.Fatalf("expected ErrSubmitInFlight, got %v", err)
		}
		close(release)
		wg.Wait()
	})
}

// eventCreatorStub records submissions and optionally blocks or fails.
type eventCreatorStub struct {
	mu      sync.Mutex
	calls   []application.CreateEventParams
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *eventCreatorStub) CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error) {
	if s.started != nil {
		close(s.started)
		s.started = nil
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return application.Event{}, s.err
	}
	s.calls = append(s.calls, params)
	return application.Event{
		ID:          fmt.Sprintf("evt-%d", len(s.calls)),
		OrganizerID: params.Principal.UserID,
		Title:       params.Input.Title,
		Status:      params.Status,
	}, nil
}
