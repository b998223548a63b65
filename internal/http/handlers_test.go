package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/event-portal/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testTime = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

type fakeAuthService struct {
	signInParams application.SignInParams
	signInResult application.SignInResult
	signInErr    error
	signedOut    []string
	session      application.Session
	sessionErr   error
}

func (f *fakeAuthService) SignIn(ctx context.Context, params application.SignInParams) (application.SignInResult, error) {
	f.signInParams = params
	return f.signInResult, f.signInErr
}

func (f *fakeAuthService) SignOut(ctx context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeAuthService) GetCurrentSession(ctx context.Context, token string) (application.Session, error) {
	return f.session, f.sessionErr
}

type fakeEventService struct {
	createParams application.CreateEventParams
	listParams   application.ListEventsParams
	updateParams application.UpdateEventParams
	event        application.Event
	events       []application.Event
	err          error
	deleted      []string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error) {
	f.createParams = params
	return f.event, f.err
}

func (f *fakeEventService) GetEvent(ctx context.Context, id string) (application.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error) {
	f.listParams = params
	return f.events, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error) {
	f.updateParams = params
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, principal application.Principal, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeTicketService struct {
	createParams application.CreateTicketTypeParams
	ticketType   application.TicketType
	ticketTypes  []application.TicketType
	err          error
	deleteErr    error
}

func (f *fakeTicketService) CreateTicketType(ctx context.Context, params application.CreateTicketTypeParams) (application.TicketType, error) {
	f.createParams = params
	return f.ticketType, f.err
}

func (f *fakeTicketService) GetTicketType(ctx context.Context, id string) (application.TicketType, error) {
	return f.ticketType, f.err
}

func (f *fakeTicketService) ListTicketTypes(ctx context.Context, eventID string) ([]application.TicketType, error) {
	return f.ticketTypes, f.err
}

func (f *fakeTicketService) UpdateTicketType(ctx context.Context, params application.UpdateTicketTypeParams) (application.TicketType, error) {
	return f.ticketType, f.err
}

func (f *fakeTicketService) DeleteTicketType(ctx context.Context, principal application.Principal, id string) error {
	return f.deleteErr
}

type fakeAttendeeService struct {
	registerParams application.RegisterAttendeeParams
	checkInStatus  application.CheckInStatus
	paymentStatus  application.PaymentStatus
	attendee       application.Attendee
	attendees      []application.Attendee
	err            error
}

func (f *fakeAttendeeService) RegisterAttendee(ctx context.Context, params application.RegisterAttendeeParams) (application.Attendee, error) {
	f.registerParams = params
	return f.attendee, f.err
}

func (f *fakeAttendeeService) GetAttendee(ctx context.Context, id string) (application.Attendee, error) {
	return f.attendee, f.err
}

func (f *fakeAttendeeService) ListAttendees(ctx context.Context, principal application.Principal, eventID string) ([]application.Attendee, error) {
	return f.attendees, f.err
}

func (f *fakeAttendeeService) SetCheckInStatus(ctx context.Context, principal application.Principal, attendeeID string, status application.CheckInStatus) (application.Attendee, error) {
	f.checkInStatus = status
	return f.attendee, f.err
}

func (f *fakeAttendeeService) SetPaymentStatus(ctx context.Context, principal application.Principal, attendeeID string, status application.PaymentStatus) (application.Attendee, error) {
	f.paymentStatus = status
	return f.attendee, f.err
}

type fakeAnalyticsService struct {
	snapshot      application.AnalyticsSnapshot
	err           error
	viewedEventID string
}

func (f *fakeAnalyticsService) GetSnapshot(ctx context.Context, eventID string) (application.AnalyticsSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeAnalyticsService) RecordView(ctx context.Context, eventID string) error {
	f.viewedEventID = eventID
	return f.err
}

type fakeCampaignService struct {
	createParams application.CreateCampaignParams
	campaign     application.Campaign
	campaigns    []application.Campaign
	err          error
	sentID       string
}

func (f *fakeCampaignService) CreateCampaign(ctx context.Context, params application.CreateCampaignParams) (application.Campaign, error) {
	f.createParams = params
	return f.campaign, f.err
}

func (f *fakeCampaignService) GetCampaign(ctx context.Context, id string) (application.Campaign, error) {
	return f.campaign, f.err
}

func (f *fakeCampaignService) ListCampaigns(ctx context.Context, principal application.Principal, eventID string) ([]application.Campaign, error) {
	return f.campaigns, f.err
}

func (f *fakeCampaignService) UpdateCampaign(ctx context.Context, params application.UpdateCampaignParams) (application.Campaign, error) {
	return f.campaign, f.err
}

func (f *fakeCampaignService) SendCampaign(ctx context.Context, principal application.Principal, id string) (application.Campaign, error) {
	f.sentID = id
	return f.campaign, f.err
}

func (f *fakeCampaignService) DeleteCampaign(ctx context.Context, principal application.Principal, id string) error {
	return f.err
}

// withPrincipal injects a fixed principal for routes normally guarded by the
// session middleware.
func withPrincipal(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func decodeBody(t *testing.T, body io.Reader, out any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("sign in issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAuthService{
			signInResult: application.SignInResult{
				User: application.User{ID: "usr-1", Email: "organizer@example.com", DisplayName: "Organizer"},
				Session: application.Session{
					Token:     "tok-123",
					ExpiresAt: testTime.Add(24 * time.Hour),
				},
			},
		}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, discardLogger())})

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"  Organizer@Example.COM ","password":"hunter2"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d (body %s)", recorder.Code, http.StatusCreated, recorder.Body.String())
		}
		if svc.signInParams.Email != "organizer@example.com" {
			t.Fatalf("email passed to service = %q, want normalized lowercase", svc.signInParams.Email)
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "tok-123" {
			t.Fatalf("X-Session-Token = %q, want tok-123", got)
		}

		var cookie *http.Cookie
		for _, c := range recorder.Result().Cookies() {
			if c.Name == "session_token" {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != "tok-123" {
			t.Fatalf("session_token cookie = %+v, want value tok-123", cookie)
		}
		if !cookie.HttpOnly {
			t.Fatal("session cookie should be HttpOnly")
		}

		var body struct {
			Token string `json:"token"`
			User  struct {
				Email string `json:"email"`
			} `json:"user"`
		}
		decodeBody(t, recorder.Body, &body)
		if body.Token != "tok-123" || body.User.Email != "organizer@example.com" {
			t.Fatalf("unexpected body token=%q user=%q", body.Token, body.User.Email)
		}
	})

	t.Run("sign in with bad credentials returns 401", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAuthService{signInErr: application.ErrInvalidCredentials}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, discardLogger())})

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"a@b.c","password":"nope"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("error_code = %q, want AUTH_INVALID_CREDENTIALS", body.ErrorCode)
		}
	})

	t.Run("sign out revokes the token and clears the cookie", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAuthService{}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, discardLogger())})

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer tok-456")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", recorder.Code)
		}
		if len(svc.signedOut) != 1 || svc.signedOut[0] != "tok-456" {
			t.Fatalf("signed out tokens = %v, want [tok-456]", svc.signedOut)
		}

		var cleared bool
		for _, c := range recorder.Result().Cookies() {
			if c.Name == "session_token" && c.Value == "" {
				cleared = true
			}
		}
		if !cleared {
			t.Fatal("expected session cookie to be cleared")
		}
	})

	t.Run("current session requires a token", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&fakeAuthService{}, discardLogger())})

		req := httptest.NewRequest(http.MethodGet, "/sessions/current", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
	})
}

func TestEventHandlers(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "usr-organizer"}

	newEventRouter := func(svc *fakeEventService) http.Handler {
		return NewRouter(RouterConfig{
			Events:     NewEventHandler(svc, discardLogger()),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(principal)},
		})
	}

	t.Run("create returns the stored event", func(t *testing.T) {
		t.Parallel()

		price := decimal.RequireFromString("49.90")
		svc := &fakeEventService{event: application.Event{
			ID:          "evt-1",
			OrganizerID: principal.UserID,
			Title:       "Launch Night",
			Category:    "meetup",
			Status:      application.EventStatusDraft,
			Visibility:  application.VisibilityPublic,
			Price:       &price,
			Currency:    "EUR",
			StartsAt:    testTime,
			CreatedAt:   testTime,
			UpdatedAt:   testTime,
		}}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"title":"Launch Night","category":"meetup","status":"draft"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", recorder.Code, recorder.Body.String())
		}
		if svc.createParams.Principal != principal {
			t.Fatalf("principal = %+v, want %+v", svc.createParams.Principal, principal)
		}
		if svc.createParams.Input.Title != "Launch Night" {
			t.Fatalf("title = %q", svc.createParams.Input.Title)
		}

		var body struct {
			Event struct {
				ID    string `json:"id"`
				Price string `json:"price"`
			} `json:"event"`
		}
		decodeBody(t, recorder.Body, &body)
		if body.Event.ID != "evt-1" || body.Event.Price != "49.9" {
			t.Fatalf("unexpected event payload %+v", body.Event)
		}
	})

	t.Run("list maps query parameters onto filters", func(t *testing.T) {
		t.Parallel()

		svc := &fakeEventService{}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/events?status=published&category=conference&organizer_id=usr-2&offset=10&limit=5", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		got := svc.listParams
		if got.Status != "published" || got.Category != "conference" || got.OrganizerID != "usr-2" {
			t.Fatalf("filters = %+v", got)
		}
		if got.Offset != 10 || got.Limit != 5 {
			t.Fatalf("pagination = offset %d limit %d", got.Offset, got.Limit)
		}
	})

	t.Run("validation failures map to 422 with field errors", func(t *testing.T) {
		t.Parallel()

		svc := &fakeEventService{err: &application.ValidationError{FieldErrors: map[string]string{
			"title": "title is required",
		}}}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.Errors["title"] != "title is required" {
			t.Fatalf("errors = %v", body.Errors)
		}
	})

	t.Run("missing events map to 404", func(t *testing.T) {
		t.Parallel()

		svc := &fakeEventService{err: application.ErrNotFound}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/events/evt-missing", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", recorder.Code)
		}
	})

	t.Run("plan limits map to 402", func(t *testing.T) {
		t.Parallel()

		svc := &fakeEventService{err: application.ErrUpgradeRequired}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodPatch, "/events/evt-1", strings.NewReader(`{"status":"published"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want 402", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.ErrorCode != "PLAN_UPGRADE_REQUIRED" {
			t.Fatalf("error_code = %q", body.ErrorCode)
		}
	})

	t.Run("status transition conflicts map to 409", func(t *testing.T) {
		t.Parallel()

		svc := &fakeEventService{err: &application.ConflictError{Reason: "a completed event cannot return to draft"}}
		router := newEventRouter(svc)

		req := httptest.NewRequest(http.MethodPatch, "/events/evt-1", strings.NewReader(`{"status":"draft"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.Message != "a completed event cannot return to draft" {
			t.Fatalf("message = %q", body.Message)
		}
	})

	t.Run("unsupported methods return 405 with Allow header", func(t *testing.T) {
		t.Parallel()

		router := newEventRouter(&fakeEventService{})

		req := httptest.NewRequest(http.MethodPut, "/events", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", recorder.Code)
		}
		if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("Allow = %q, want POST listed", allow)
		}
	})
}

func TestTicketHandlers(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "usr-organizer"}

	newTicketRouter := func(svc *fakeTicketService) http.Handler {
		return NewRouter(RouterConfig{
			Events:     NewEventHandler(&fakeEventService{}, discardLogger()),
			Tickets:    NewTicketHandler(svc, discardLogger()),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(principal)},
		})
	}

	t.Run("create under an event passes the path event id", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTicketService{ticketType: application.TicketType{ID: "tt-1", EventID: "evt-1"}}
		router := newTicketRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/ticket-types", strings.NewReader(`{"name":"Early Bird","price":"19.00","currency":"EUR","quantity":100}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", recorder.Code, recorder.Body.String())
		}
		if svc.createParams.EventID != "evt-1" {
			t.Fatalf("event id = %q, want evt-1", svc.createParams.EventID)
		}
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTicketService{ticketType: application.TicketType{ID: "tt-1", Quantity: 10, Sold: 12}}
		router := newTicketRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/ticket-types/tt-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		var body struct {
			TicketType struct {
				Remaining int `json:"remaining"`
			} `json:"ticket_type"`
		}
		decodeBody(t, recorder.Body, &body)
		if body.TicketType.Remaining != 0 {
			t.Fatalf("remaining = %d, want 0", body.TicketType.Remaining)
		}
	})

	t.Run("deleting a tier with sold tickets conflicts", func(t *testing.T) {
		t.Parallel()

		svc := &fakeTicketService{deleteErr: &application.ConflictError{Reason: "ticket type has sold tickets"}}
		router := newTicketRouter(svc)

		req := httptest.NewRequest(http.MethodDelete, "/ticket-types/tt-1", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", recorder.Code)
		}
	})
}

func TestAttendeeHandlers(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "usr-self"}

	newAttendeeRouter := func(svc *fakeAttendeeService) http.Handler {
		return NewRouter(RouterConfig{
			Events:     NewEventHandler(&fakeEventService{}, discardLogger()),
			Attendees:  NewAttendeeHandler(svc, discardLogger()),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(principal)},
		})
	}

	t.Run("registration defaults to the signed-in user", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAttendeeService{attendee: application.Attendee{ID: "att-1", EventID: "evt-1", UserID: principal.UserID}}
		router := newAttendeeRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/attendees", strings.NewReader(`{"referrer":"newsletter"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", recorder.Code, recorder.Body.String())
		}
		if svc.registerParams.UserID != principal.UserID {
			t.Fatalf("user id = %q, want principal default", svc.registerParams.UserID)
		}
		if svc.registerParams.Referrer != "newsletter" {
			t.Fatalf("referrer = %q", svc.registerParams.Referrer)
		}
	})

	t.Run("check-in updates pass the requested status", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAttendeeService{attendee: application.Attendee{ID: "att-1", CheckInStatus: application.CheckInCheckedIn}}
		router := newAttendeeRouter(svc)

		req := httptest.NewRequest(http.MethodPut, "/attendees/att-1/check-in", strings.NewReader(`{"status":"checked-in"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		if svc.checkInStatus != application.CheckInCheckedIn {
			t.Fatalf("status passed to service = %q", svc.checkInStatus)
		}
	})

	t.Run("payment updates pass the requested status", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAttendeeService{attendee: application.Attendee{ID: "att-1", PaymentStatus: application.PaymentRefunded}}
		router := newAttendeeRouter(svc)

		req := httptest.NewRequest(http.MethodPut, "/attendees/att-1/payment", strings.NewReader(`{"status":"refunded"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		if svc.paymentStatus != application.PaymentRefunded {
			t.Fatalf("status passed to service = %q", svc.paymentStatus)
		}
	})
}

func TestAnalyticsHandlers(t *testing.T) {
	t.Parallel()

	newAnalyticsRouter := func(svc *fakeAnalyticsService) http.Handler {
		return NewRouter(RouterConfig{
			Events:    NewEventHandler(&fakeEventService{}, discardLogger()),
			Analytics: NewAnalyticsHandler(svc, discardLogger()),
		})
	}

	t.Run("snapshot responses include the conversion rate", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAnalyticsService{snapshot: application.AnalyticsSnapshot{
			EventID:       "evt-1",
			Views:         200,
			Registrations: 50,
			Revenue:       decimal.RequireFromString("995.00"),
			Referrers:     []application.ReferrerCount{{Source: "newsletter", Count: 30}},
			UpdatedAt:     testTime,
		}}
		router := newAnalyticsRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/events/evt-1/analytics", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", recorder.Code, recorder.Body.String())
		}
		var body struct {
			Snapshot struct {
				Views          int64   `json:"views"`
				Revenue        string  `json:"revenue"`
				ConversionRate float64 `json:"conversion_rate"`
				Referrers      []struct {
					Source string `json:"source"`
				} `json:"referrers"`
			} `json:"snapshot"`
		}
		decodeBody(t, recorder.Body, &body)
		if body.Snapshot.ConversionRate != 0.25 {
			t.Fatalf("conversion_rate = %v, want 0.25", body.Snapshot.ConversionRate)
		}
		if body.Snapshot.Revenue != "995" {
			t.Fatalf("revenue = %q", body.Snapshot.Revenue)
		}
		if len(body.Snapshot.Referrers) != 1 || body.Snapshot.Referrers[0].Source != "newsletter" {
			t.Fatalf("referrers = %+v", body.Snapshot.Referrers)
		}
	})

	t.Run("recording a view returns 204", func(t *testing.T) {
		t.Parallel()

		svc := &fakeAnalyticsService{}
		router := newAnalyticsRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/analytics/views", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", recorder.Code)
		}
		if svc.viewedEventID != "evt-1" {
			t.Fatalf("viewed event = %q", svc.viewedEventID)
		}
	})
}

func TestCampaignHandlers(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "usr-organizer"}

	newCampaignRouter := func(svc *fakeCampaignService) http.Handler {
		return NewRouter(RouterConfig{
			Events:     NewEventHandler(&fakeEventService{}, discardLogger()),
			Campaigns:  NewCampaignHandler(svc, discardLogger()),
			Middleware: []func(http.Handler) http.Handler{withPrincipal(principal)},
		})
	}

	t.Run("create under an event passes the path event id", func(t *testing.T) {
		t.Parallel()

		svc := &fakeCampaignService{campaign: application.Campaign{ID: "cmp-1", EventID: "evt-1", Status: application.CampaignDraft}}
		router := newCampaignRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/events/evt-1/campaigns", strings.NewReader(`{"name":"Announcement","channel":"email","subject":"We are live"}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", recorder.Code, recorder.Body.String())
		}
		if svc.createParams.EventID != "evt-1" {
			t.Fatalf("event id = %q", svc.createParams.EventID)
		}
		if svc.createParams.Input.Channel != application.ChannelEmail {
			t.Fatalf("channel = %q", svc.createParams.Input.Channel)
		}
	})

	t.Run("send stamps the sent time in the response", func(t *testing.T) {
		t.Parallel()

		sentAt := testTime
		svc := &fakeCampaignService{campaign: application.Campaign{
			ID:     "cmp-1",
			Status: application.CampaignSent,
			SentAt: &sentAt,
		}}
		router := newCampaignRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/campaigns/cmp-1/send", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		if svc.sentID != "cmp-1" {
			t.Fatalf("sent id = %q", svc.sentID)
		}
		var body struct {
			Campaign struct {
				Status string  `json:"status"`
				SentAt *string `json:"sent_at"`
			} `json:"campaign"`
		}
		decodeBody(t, recorder.Body, &body)
		if body.Campaign.Status != "sent" || body.Campaign.SentAt == nil {
			t.Fatalf("campaign = %+v", body.Campaign)
		}
	})
}
