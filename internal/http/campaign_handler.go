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

type campaignService interface {
	CreateCampaign(ctx context.Context, params application.CreateCampaignParams) (application.Campaign, error)
	GetCampaign(ctx context.Context, id string) (application.Campaign, error)
	ListCampaigns(ctx context.Context, principal application.Principal, eventID string) ([]application.Campaign, error)
	UpdateCampaign(ctx context.Context, params application.UpdateCampaignParams) (application.Campaign, error)
	SendCampaign(ctx context.Context, principal application.Principal, id string) (application.Campaign, error)
	DeleteCampaign(ctx context.Context, principal application.Principal, id string) error
}

type CampaignHandler struct {
	service   campaignService
	responder responder
	logger    *slog.Logger
}

func NewCampaignHandler(service campaignService, logger *slog.Logger) *CampaignHandler {
	base := defaultLogger(logger)
	return &CampaignHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CampaignHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CampaignHandler", operation, attrs...)
}

// Create handles POST /events/{id}/campaigns.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode campaign request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "event_id", eventID)

	campaign, err := h.service.CreateCampaign(r.Context(), application.CreateCampaignParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "campaign creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("campaign_id", campaign.ID).InfoContext(r.Context(), "campaign created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, campaignResponse{Campaign: toCampaignDTO(campaign)})
}

// List handles GET /events/{id}/campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
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

	campaigns, err := h.service.ListCampaigns(r.Context(), principal, eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "campaign list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(campaigns)).InfoContext(r.Context(), "campaigns listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCampaignsResponse{Campaigns: toCampaignDTOs(campaigns)})
}

// Get handles GET /campaigns/{id}.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Get", "campaign_id", id)

	campaign, err := h.service.GetCampaign(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "campaign lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, campaignResponse{Campaign: toCampaignDTO(campaign)})
}

// Update handles PATCH /campaigns/{id}.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req campaignPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "campaign_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode campaign patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "campaign_id", id)

	campaign, err := h.service.UpdateCampaign(r.Context(), application.UpdateCampaignParams{
		Principal:  principal,
		CampaignID: id,
		Patch:      req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "campaign update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "campaign updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, campaignResponse{Campaign: toCampaignDTO(campaign)})
}

// Send handles POST /campaigns/{id}/send.
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Send", "principal_id", principal.UserID, "campaign_id", id)

	campaign, err := h.service.SendCampaign(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "campaign send failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", campaign.Status).InfoContext(r.Context(), "campaign sent")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, campaignResponse{Campaign: toCampaignDTO(campaign)})
}

// Delete handles DELETE /campaigns/{id}.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "campaign_id", id)

	if err := h.service.DeleteCampaign(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "campaign deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "campaign deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type campaignRequest struct {
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	Audience string `json:"audience"`
}

func (r campaignRequest) toInput() application.CampaignInput {
	return application.CampaignInput{
		Name:     r.Name,
		Channel:  application.CampaignChannel(r.Channel),
		Subject:  r.Subject,
		Content:  r.Content,
		Audience: r.Audience,
	}
}

type campaignPatchRequest struct {
	Name     *string `json:"name"`
	Channel  *string `json:"channel"`
	Subject  *string `json:"subject"`
	Content  *string `json:"content"`
	Audience *string `json:"audience"`
	Status   *string `json:"status"`
}

func (r campaignPatchRequest) toPatch() application.CampaignPatch {
	patch := application.CampaignPatch{
		Name:     r.Name,
		Subject:  r.Subject,
		Content:  r.Content,
		Audience: r.Audience,
	}
	if r.Channel != nil {
		channel := application.CampaignChannel(*r.Channel)
		patch.Channel = &channel
	}
	if r.Status != nil {
		status := application.CampaignStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

type campaignResponse struct {
	Campaign campaignDTO `json:"campaign"`
}

type listCampaignsResponse struct {
	Campaigns []campaignDTO `json:"campaigns"`
}

type campaignDTO struct {
	ID        string  `json:"id"`
	EventID   string  `json:"event_id"`
	Name      string  `json:"name"`
	Channel   string  `json:"channel"`
	Subject   string  `json:"subject,omitempty"`
	Content   string  `json:"content,omitempty"`
	Audience  string  `json:"audience,omitempty"`
	Status    string  `json:"status"`
	SentAt    *string `json:"sent_at,omitempty"`
	OpenRate  float64 `json:"open_rate"`
	ClickRate float64 `json:"click_rate"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toCampaignDTO(campaign application.Campaign) campaignDTO {
	dto := campaignDTO{
		ID:        campaign.ID,
		EventID:   campaign.EventID,
		Name:      campaign.Name,
		Channel:   string(campaign.Channel),
		Subject:   campaign.Subject,
		Content:   campaign.Content,
		Audience:  campaign.Audience,
		Status:    string(campaign.Status),
		OpenRate:  campaign.OpenRate,
		ClickRate: campaign.ClickRate,
		CreatedAt: campaign.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: campaign.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if campaign.SentAt != nil {
		sentAt := campaign.SentAt.UTC().Format(time.RFC3339Nano)
		dto.SentAt = &sentAt
	}
	return dto
}

func toCampaignDTOs(campaigns []application.Campaign) []campaignDTO {
	if len(campaigns) == 0 {
		return nil
	}
	out := make([]campaignDTO, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, toCampaignDTO(campaign))
	}
	return out
}
