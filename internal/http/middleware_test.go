package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/event-portal/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{}
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not run without authentication")
		}))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.ErrorCode != "AUTH_REQUIRED" {
			t.Fatalf("error_code = %q, want AUTH_REQUIRED", body.ErrorCode)
		}
		if len(validator.tokens) != 0 {
			t.Fatalf("validator should not be consulted, got tokens %v", validator.tokens)
		}
	})

	t.Run("maps expired sessions to 401", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{err: application.ErrSessionExpired}
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not run for an expired session")
		}))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "stale-token"})
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
		var body errorResponse
		decodeBody(t, recorder.Body, &body)
		if body.ErrorCode != "AUTH_SESSION_EXPIRED" {
			t.Fatalf("error_code = %q, want AUTH_SESSION_EXPIRED", body.ErrorCode)
		}
	})

	t.Run("attaches the principal to the request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: "usr-42", IsAdmin: true}
		validator := &fakeSessionValidator{principal: principal}

		var captured application.Principal
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		if captured != principal {
			t.Fatalf("captured principal = %+v, want %+v", captured, principal)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "valid-token" {
			t.Fatalf("validator saw tokens %v, want [valid-token]", validator.tokens)
		}
	})

	t.Run("prefers the bearer header over the cookie", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{principal: application.Principal{UserID: "usr-1"}}
		handler := RequireSession(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if len(validator.tokens) != 1 || validator.tokens[0] != "header-token" {
			t.Fatalf("validator saw tokens %v, want [header-token]", validator.tokens)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("passes requests through and preserves the handler status", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/events/evt-1", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusTeapot {
			t.Fatalf("status = %d, want 418", recorder.Code)
		}
	})
}

func TestMetricsPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "/events", want: "/events"},
		{path: "/events/evt-123", want: "/events/{id}"},
		{path: "/events/evt-123/ticket-types", want: "/events/{id}/ticket-types"},
		{path: "/events/evt-123/analytics/views", want: "/events/{id}/analytics/{id}"},
		{path: "/attendees/att-9/check-in", want: "/attendees/{id}/check-in"},
		{path: "/sessions/current", want: "/sessions/{id}"},
		{path: "/", want: "/"},
	}

	for _, tc := range tests {
		if got := metricsPath(tc.path); got != tc.want {
			t.Errorf("metricsPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
