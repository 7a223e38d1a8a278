package reconcile

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/notification"
	"github.com/dietapronta/checkout-funnel/internal/transport"
)

// ServiceAPI is the pipeline surface the webhook handler depends on.
type ServiceAPI interface {
	HandleNotification(ctx context.Context, n notification.Notification)
}

// PingAPI probes processor connectivity for the GET liveness path.
type PingAPI interface {
	Ping(ctx context.Context) error
}

type WebhookHandler struct {
	*transport.BaseHandler
	service   ServiceAPI
	processor PingAPI
	logger    *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI, processor PingAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		service:     service,
		processor:   processor,
		logger:      logger,
	}
}

type webhookResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg,omitempty"`
}

// HandleNotification is the webhook entry point. It answers 200 for
// every POST, including internal failures: the notifier's retry
// behavior on non-200 is outside our control and a failure response
// could amplify into unbounded reprocessing. Only method-not-allowed
// breaks that rule.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleLiveness(w, r)
		return
	case http.MethodPost:
	default:
		h.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n := notification.Parse(r)

	h.logger.Info("processor notification received",
		"topic", n.Topic,
		"resource_id", n.ResourceID)

	if n.ResourceID == "" {
		h.WriteJSON(w, http.StatusOK, webhookResponse{OK: true, Msg: "no resource id"})
		return
	}

	// synchronous up to the propagation step; reverification and side
	// channels continue detached
	h.service.HandleNotification(r.Context(), n)

	h.WriteJSON(w, http.StatusOK, webhookResponse{OK: true})
}

func (h *WebhookHandler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := map[string]any{"ok": true, "processor": "ok"}
	if err := h.processor.Ping(ctx); err != nil {
		h.logger.Warn("processor connectivity probe failed", "error", err)
		resp["processor"] = "unreachable"
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
