package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-portal/internal/application"
	"github.com/shopspring/decimal"
)

type ticketService interface {
	CreateTicketType(ctx context.Context, params application.CreateTicketTypeParams) (application.TicketType, error)
	GetTicketType(ctx context.Context, id string) (application.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID string) ([]application.TicketType, error)
	UpdateTicketType(ctx context.Context, params application.UpdateTicketTypeParams) (application.TicketType, error)
	DeleteTicketType(ctx context.Context, principal application.Principal, id string) error
}

type TicketHandler struct {
	service   ticketService
	responder responder
	logger    *slog.Logger
}

func NewTicketHandler(service ticketService, logger *slog.Logger) *TicketHandler {
	base := defaultLogger(logger)
	return &TicketHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TicketHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TicketHandler", operation, attrs...)
}

// Create handles POST /events/{id}/ticket-types.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req ticketTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode ticket type request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "event_id", eventID)

	tt, err := h.service.CreateTicketType(r.Context(), application.CreateTicketTypeParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "ticket type creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("ticket_type_id", tt.ID).InfoContext(r.Context(), "ticket type created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ticketTypeResponse{TicketType: toTicketTypeDTO(tt)})
}

// List handles GET /events/{id}/ticket-types.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	logger := h.log(r.Context(), "List", "event_id", eventID)

	tiers, err := h.service.ListTicketTypes(r.Context(), eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "ticket type list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(tiers)).InfoContext(r.Context(), "ticket types listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTicketTypesResponse{TicketTypes: toTicketTypeDTOs(tiers)})
}

// Get handles GET /ticket-types/{id}.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Get", "ticket_type_id", id)

	tt, err := h.service.GetTicketType(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "ticket type lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, ticketTypeResponse{TicketType: toTicketTypeDTO(tt)})
}

// Update handles PUT /ticket-types/{id}.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req ticketTypePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "ticket_type_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode ticket type patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "ticket_type_id", id)

	tt, err := h.service.UpdateTicketType(r.Context(), application.UpdateTicketTypeParams{
		Principal:    principal,
		TicketTypeID: id,
		Patch:        req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "ticket type update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "ticket type updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ticketTypeResponse{TicketType: toTicketTypeDTO(tt)})
}

// Delete handles DELETE /ticket-types/{id}.
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "ticket_type_id", id)

	if err := h.service.DeleteTicketType(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "ticket type delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "ticket type deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type ticketTypeRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Quantity     int             `json:"quantity"`
	SaleStart    time.Time       `json:"sale_start"`
	SaleEnd      time.Time       `json:"sale_end"`
	Active       bool            `json:"active"`
	Benefits     []string        `json:"benefits"`
	Restrictions []string        `json:"restrictions"`
}

func (r ticketTypeRequest) toInput() application.TicketTypeInput {
	return application.TicketTypeInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		Currency:     r.Currency,
		Quantity:     r.Quantity,
		SaleStart:    r.SaleStart,
		SaleEnd:      r.SaleEnd,
		Active:       r.Active,
		Benefits:     r.Benefits,
		Restrictions: r.Restrictions,
	}
}

type ticketTypePatchRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Currency     *string          `json:"currency"`
	Quantity     *int             `json:"quantity"`
	SaleStart    *time.Time       `json:"sale_start"`
	SaleEnd      *time.Time       `json:"sale_end"`
	Active       *bool            `json:"active"`
	Benefits     *[]string        `json:"benefits"`
	Restrictions *[]string        `json:"restrictions"`
}

func (r ticketTypePatchRequest) toPatch() application.TicketTypePatch {
	return application.TicketTypePatch{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		Currency:     r.Currency,
		Quantity:     r.Quantity,
		SaleStart:    r.SaleStart,
		SaleEnd:      r.SaleEnd,
		Active:       r.Active,
		Benefits:     r.Benefits,
		Restrictions: r.Restrictions,
	}
}

type ticketTypeResponse struct {
	TicketType ticketTypeDTO `json:"ticket_type"`
}

type listTicketTypesResponse struct {
	TicketTypes []ticketTypeDTO `json:"ticket_types"`
}

type ticketTypeDTO struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Quantity     int             `json:"quantity"`
	Sold         int             `json:"sold"`
	Remaining    int             `json:"remaining"`
	SaleStart    string          `json:"sale_start"`
	SaleEnd      string          `json:"sale_end"`
	Active       bool            `json:"active"`
	Benefits     []string        `json:"benefits,omitempty"`
	Restrictions []string        `json:"restrictions,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func toTicketTypeDTO(tt application.TicketType) ticketTypeDTO {
	return ticketTypeDTO{
		ID:           tt.ID,
		EventID:      tt.EventID,
		Name:         tt.Name,
		Description:  tt.Description,
		Price:        tt.Price,
		Currency:     tt.Currency,
		Quantity:     tt.Quantity,
		Sold:         tt.Sold,
		Remaining:    max(tt.Quantity-tt.Sold, 0),
		SaleStart:    tt.SaleStart.UTC().Format(time.RFC3339Nano),
		SaleEnd:      tt.SaleEnd.UTC().Format(time.RFC3339Nano),
		Active:       tt.Active,
		Benefits:     tt.Benefits,
		Restrictions: tt.Restrictions,
		CreatedAt:    tt.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    tt.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTicketTypeDTOs(tiers []application.TicketType) []ticketTypeDTO {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]ticketTypeDTO, 0, len(tiers))
	for _, tt := range tiers {
		out = append(out, toTicketTypeDTO(tt))
	}
	return out
}
