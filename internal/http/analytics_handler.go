package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-portal/internal/application"
)

type analyticsService interface {
	GetSnapshot(ctx context.Context, eventID string) (application.AnalyticsSnapshot, error)
	RecordView(ctx context.Context, eventID string) error
}

type AnalyticsHandler struct {
	service   analyticsService
	responder responder
	logger    *slog.Logger
}

func NewAnalyticsHandler(service analyticsService, logger *slog.Logger) *AnalyticsHandler {
	base := defaultLogger(logger)
	return &AnalyticsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AnalyticsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AnalyticsHandler", operation, attrs...)
}

// GetSnapshot handles GET /events/{id}/analytics.
func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	logger := h.log(r.Context(), "GetSnapshot", "event_id", eventID)

	snapshot, err := h.service.GetSnapshot(r.Context(), eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "snapshot lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshotResponse{Snapshot: toSnapshotDTO(snapshot)})
}

// RecordView handles POST /events/{id}/analytics/views.
func (h *AnalyticsHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	logger := h.log(r.Context(), "RecordView", "event_id", eventID)

	if err := h.service.RecordView(r.Context(), eventID); err != nil {
		logger.ErrorContext(r.Context(), "view recording failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type snapshotResponse struct {
	Snapshot snapshotDTO `json:"snapshot"`
}

type snapshotDTO struct {
	EventID        string             `json:"event_id"`
	Views          int64              `json:"views"`
	Registrations  int64              `json:"registrations"`
	Revenue        string             `json:"revenue"`
	ConversionRate float64            `json:"conversion_rate"`
	Referrers      []referrerCountDTO `json:"referrers,omitempty"`
	UpdatedAt      string             `json:"updated_at"`
}

type referrerCountDTO struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

func toSnapshotDTO(snapshot application.AnalyticsSnapshot) snapshotDTO {
	dto := snapshotDTO{
		EventID:        snapshot.EventID,
		Views:          snapshot.Views,
		Registrations:  snapshot.Registrations,
		Revenue:        snapshot.Revenue.String(),
		ConversionRate: snapshot.ConversionRate(),
		UpdatedAt:      snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, referrer := range snapshot.Referrers {
		dto.Referrers = append(dto.Referrers, referrerCountDTO{Source: referrer.Source, Count: referrer.Count})
	}
	return dto
}
