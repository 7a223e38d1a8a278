// Package admin exposes read-only sales views behind basic auth. The
// local view reads the sales table written by the reconciler; the
// processor view lists the last payments straight from the processor
// search API.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/core/datamodel/sale"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/transport"
)

const processorListLimit = 100

type SalesRepositoryAPI interface {
	List(limit int) ([]*sale.Sale, error)
	CountByStatus() (map[string]int64, error)
}

type ProcessorAPI interface {
	SearchPaymentsByReference(ctx context.Context, ref string, limit int) ([]processor.Payment, error)
}

type Config struct {
	User string
	Pass string
}

type Handler struct {
	*transport.BaseHandler
	sales     SalesRepositoryAPI
	processor ProcessorAPI
	cfg       Config
	logger    *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, salesRepo SalesRepositoryAPI, proc ProcessorAPI, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		sales:       salesRepo,
		processor:   proc,
		cfg:         cfg,
		logger:      logger,
	}
}

// BasicAuth guards the admin routes. Credentials come from config;
// unset credentials reject everything.
func (h *Handler) BasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.User == "" || h.cfg.Pass == "" {
			h.WriteError(w, http.StatusInternalServerError, "admin credentials not configured")
			return
		}

		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.cfg.User)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.cfg.Pass)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="Admin area"`)
			h.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type salesResponse struct {
	Sales  []*sale.Sale     `json:"sales"`
	Totals map[string]int64 `json:"totals"`
}

// ListSales handles GET /api/v1/admin/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.List(0)
	if err != nil {
		h.logger.Error("ListSales: repository error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "could not list sales")
		return
	}

	totals, err := h.sales.CountByStatus()
	if err != nil {
		h.logger.Error("ListSales: count error", "error", err)
		totals = map[string]int64{}
	}

	if sales == nil {
		sales = []*sale.Sale{}
	}

	h.WriteJSON(w, http.StatusOK, salesResponse{Sales: sales, Totals: totals})
}

type processorSale struct {
	ID                int64      `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	TransactionAmount float64    `json:"transaction_amount"`
	DateCreated       time.Time  `json:"date_created"`
	DateApproved      *time.Time `json:"date_approved,omitempty"`
	ExternalReference string     `json:"external_reference"`
	PayerEmail        string     `json:"payer_email"`
}

// ListProcessorSales handles GET /api/v1/admin/sales/processor
func (h *Handler) ListProcessorSales(w http.ResponseWriter, r *http.Request) {
	payments, err := h.processor.SearchPaymentsByReference(r.Context(), "", processorListLimit)
	if err != nil {
		h.logger.Error("ListProcessorSales: processor error", "error", err)
		h.WriteError(w, http.StatusBadGateway, "could not query processor")
		return
	}

	out := make([]processorSale, 0, len(payments))
	for _, p := range payments {
		out = append(out, processorSale{
			ID:                p.ID,
			Status:            p.Status,
			StatusDetail:      p.StatusDetail,
			TransactionAmount: p.TransactionAmount,
			DateCreated:       p.DateCreated,
			DateApproved:      p.DateApproved,
			ExternalReference: p.ExternalReference,
			PayerEmail:        p.Payer.Email,
		})
	}

	h.WriteJSON(w, http.StatusOK, out)
}
