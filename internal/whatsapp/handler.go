package whatsapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/dietapronta/checkout-funnel/internal"
	"github.com/dietapronta/checkout-funnel/internal/transport"
)

type SenderAPI interface {
	SendText(ctx context.Context, phone, message string) (map[string]any, error)
}

type Handler struct {
	*transport.BaseHandler
	Sender SenderAPI
	Logger *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, sender SenderAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Sender:      sender,
		Logger:      logger,
	}
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SendMessage handles POST /api/v1/whatsapp/send. The gateway response
// is passed through verbatim so the front-end sees delivery details.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("SendMessage: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if req.Phone == "" {
		h.HandleError(w, errors.NewValidationError("phone is required", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.Sender.SendText(r.Context(), req.Phone, req.Message)
	if err != nil {
		h.Logger.Error("SendMessage: gateway error", "error", err)
		h.HandleError(w, errors.NewExternalError("could not send message", errors.ErrCodeMessageSendFailed, err))
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

type inboundMessage struct {
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// HandleInbound acknowledges the gateway's delivery webhook. Inbound
// texts are logged only; there is no automated reply flow.
func (h *Handler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var inbound inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&inbound); err == nil && inbound.Message.Text != "" {
		h.Logger.Info("whatsapp message received", "text", inbound.Message.Text)
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
