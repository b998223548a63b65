package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-portal/internal/application"
)

type attendeeService interface {
	RegisterAttendee(ctx context.Context, params application.RegisterAttendeeParams) (application.Attendee, error)
	GetAttendee(ctx context.Context, id string) (application.Attendee, error)
	ListAttendees(ctx context.Context, principal application.Principal, eventID string) ([]application.Attendee, error)
	SetCheckInStatus(ctx context.Context, principal application.Principal, attendeeID string, status application.CheckInStatus) (application.Attendee, error)
	SetPaymentStatus(ctx context.Context, principal application.Principal, attendeeID string, status application.PaymentStatus) (application.Attendee, error)
}

type AttendeeHandler struct {
	service   attendeeService
	responder responder
	logger    *slog.Logger
}

func NewAttendeeHandler(service attendeeService, logger *slog.Logger) *AttendeeHandler {
	base := defaultLogger(logger)
	return &AttendeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendeeHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendeeHandler", operation, attrs...)
}

// Register handles POST /events/{id}/attendees.
func (h *AttendeeHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req registerAttendeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "principal_id", principal.UserID, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	// Registrations default to the signed-in user; organizers may register
	// someone else by naming them.
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = principal.UserID
	}

	logger := h.log(r.Context(), "Register", "principal_id", principal.UserID, "event_id", eventID)

	attendee, err := h.service.RegisterAttendee(r.Context(), application.RegisterAttendeeParams{
		Principal:    principal,
		EventID:      eventID,
		TicketTypeID: req.TicketTypeID,
		UserID:       userID,
		Referrer:     strings.TrimSpace(req.Referrer),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("attendee_id", attendee.ID).InfoContext(r.Context(), "attendee registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, attendeeResponse{Attendee: toAttendeeDTO(attendee)})
}

// List handles GET /events/{id}/attendees.
func (h *AttendeeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "event_id", eventID)

	attendees, err := h.service.ListAttendees(r.Context(), principal, eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendee list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(attendees)).InfoContext(r.Context(), "attendees listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendeesResponse{Attendees: toAttendeeDTOs(attendees)})
}

// Get handles GET /attendees/{id}.
func (h *AttendeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Get", "attendee_id", id)

	attendee, err := h.service.GetAttendee(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendee lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendeeResponse{Attendee: toAttendeeDTO(attendee)})
}

// SetCheckIn handles PUT /attendees/{id}/check-in.
func (h *AttendeeHandler) SetCheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SetCheckIn", "attendee_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetCheckIn", "principal_id", principal.UserID, "attendee_id", id)

	attendee, err := h.service.SetCheckInStatus(r.Context(), principal, id, application.CheckInStatus(req.Status))
	if err != nil {
		logger.ErrorContext(r.Context(), "check-in update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", attendee.CheckInStatus).InfoContext(r.Context(), "check-in status updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendeeResponse{Attendee: toAttendeeDTO(attendee)})
}

// SetPayment handles PUT /attendees/{id}/payment.
func (h *AttendeeHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SetPayment", "attendee_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetPayment", "principal_id", principal.UserID, "attendee_id", id)

	attendee, err := h.service.SetPaymentStatus(r.Context(), principal, id, application.PaymentStatus(req.Status))
	if err != nil {
		logger.ErrorContext(r.Context(), "payment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", attendee.PaymentStatus).InfoContext(r.Context(), "payment status updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendeeResponse{Attendee: toAttendeeDTO(attendee)})
}

type registerAttendeeRequest struct {
	UserID       string  `json:"user_id"`
	TicketTypeID *string `json:"ticket_type_id"`
	Referrer     string  `json:"referrer"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type attendeeResponse struct {
	Attendee attendeeDTO `json:"attendee"`
}

type listAttendeesResponse struct {
	Attendees []attendeeDTO `json:"attendees"`
}

type attendeeDTO struct {
	ID            string  `json:"id"`
	EventID       string  `json:"event_id"`
	TicketTypeID  *string `json:"ticket_type_id,omitempty"`
	UserID        string  `json:"user_id"`
	RegisteredAt  string  `json:"registered_at"`
	CheckInStatus string  `json:"check_in_status"`
	PaymentStatus string  `json:"payment_status"`
	UpdatedAt     string  `json:"updated_at"`
}

func toAttendeeDTO(attendee application.Attendee) attendeeDTO {
	return attendeeDTO{
		ID:            attendee.ID,
		EventID:       attendee.EventID,
		TicketTypeID:  attendee.TicketTypeID,
		UserID:        attendee.UserID,
		RegisteredAt:  attendee.RegisteredAt.UTC().Format(time.RFC3339Nano),
		CheckInStatus: string(attendee.CheckInStatus),
		PaymentStatus: string(attendee.PaymentStatus),
		UpdatedAt:     attendee.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toAttendeeDTOs(attendees []application.Attendee) []attendeeDTO {
	if len(attendees) == 0 {
		return nil
	}
	out := make([]attendeeDTO, 0, len(attendees))
	for _, attendee := range attendees {
		out = append(out, toAttendeeDTO(attendee))
	}
	return out
}
