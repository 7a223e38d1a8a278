package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/dietapronta/checkout-funnel/internal"
	"github.com/dietapronta/checkout-funnel/internal/transport"
)

type ServiceAPI interface {
	CreatePreference(ctx context.Context, req *CreatePreferenceRequest) (*PreferenceResponse, error)
	CreateUpsellPreference(ctx context.Context, req *CreateUpsellRequest) (*PreferenceResponse, error)
	CheckStatus(ctx context.Context, ref string) (*StatusResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// CreatePreference handles POST /api/v1/checkout/preferences
func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req CreatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreatePreference: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("CreatePreference: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.CreatePreference(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreatePreference: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// CreateUpsellPreference handles POST /api/v1/checkout/preferences/upsell
func (h *Handler) CreateUpsellPreference(w http.ResponseWriter, r *http.Request) {
	var req CreateUpsellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateUpsellPreference: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("CreateUpsellPreference: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.CreateUpsellPreference(r.Context(), &req)
	if err != nil {
		h.Logger.Error("CreateUpsellPreference: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// CheckStatus handles GET /api/v1/checkout/status?ref=
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")

	resp, err := h.Service.CheckStatus(r.Context(), ref)
	if err != nil {
		h.Logger.Error("CheckStatus: service error", "error", err, "ref", ref)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
