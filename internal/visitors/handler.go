package visitors

import (
	"log/slog"
	"net/http"

	"github.com/dietapronta/checkout-funnel/internal/transport"
)

type ServiceAPI interface {
	Enter(id string) string
	Exit(id string)
	Status() (online int, daily int64)
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

// HandleCounter handles GET/POST /api/v1/visitors?action=enter|exit|status
func (h *Handler) HandleCounter(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	id := r.URL.Query().Get("id")

	switch action {
	case "enter":
		assigned := h.Service.Enter(id)
		h.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": assigned})
	case "exit":
		h.Service.Exit(id)
		h.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "status":
		online, daily := h.Service.Status()
		h.WriteJSON(w, http.StatusOK, map[string]any{"online": online, "daily": daily})
	default:
		h.WriteError(w, http.StatusBadRequest, "invalid action")
	}
}
