package rest

import (
	"log/slog"
	"net/http"

	"github.com/dietapronta/checkout-funnel/internal/admin"
	"github.com/dietapronta/checkout-funnel/internal/checkout"
	"github.com/dietapronta/checkout-funnel/internal/reconcile"
	"github.com/dietapronta/checkout-funnel/internal/transport/middleware"
	"github.com/dietapronta/checkout-funnel/internal/transport/swagger"
	"github.com/dietapronta/checkout-funnel/internal/visitors"
	"github.com/dietapronta/checkout-funnel/internal/whatsapp"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type RouterDeps struct {
	Processor       PingAPI
	WebhookHandler  *reconcile.WebhookHandler
	CheckoutHandler *checkout.Handler
	AdminHandler    *admin.Handler
	VisitorsHandler *visitors.Handler
	WhatsAppHandler *whatsapp.Handler
	MetricsHandler  http.Handler
	MetricsPath     string
	AllowedOrigins  string
	Logger          *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	healthHandler := NewHealthHandler(deps.Processor)

	// Apply global middleware
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.RecoveryMiddleware(deps.Logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, deps.MetricsHandler)
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.WebhookHandler != nil {
			// GET doubles as a connectivity ack for the processor's
			// endpoint verification
			r.Get("/webhook/payments", deps.WebhookHandler.HandleNotification)
			r.Post("/webhook/payments", deps.WebhookHandler.HandleNotification)
			r.Put("/webhook/payments", deps.WebhookHandler.HandleNotification)
			r.Delete("/webhook/payments", deps.WebhookHandler.HandleNotification)
		}

		if deps.CheckoutHandler != nil {
			r.Route("/checkout", func(cr chi.Router) {
				cr.Post("/preferences", deps.CheckoutHandler.CreatePreference)
				cr.Post("/preferences/upsell", deps.CheckoutHandler.CreateUpsellPreference)
				cr.Get("/status", deps.CheckoutHandler.CheckStatus)
			})
		}

		if deps.AdminHandler != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(deps.AdminHandler.BasicAuth)
				ar.Get("/sales", deps.AdminHandler.ListSales)
				ar.Get("/sales/processor", deps.AdminHandler.ListProcessorSales)
			})
		}

		if deps.VisitorsHandler != nil {
			r.Get("/visitors", deps.VisitorsHandler.HandleCounter)
			r.Post("/visitors", deps.VisitorsHandler.HandleCounter)
		}

		if deps.WhatsAppHandler != nil {
			r.Post("/whatsapp/send", deps.WhatsAppHandler.SendMessage)
			// the handler answers 405 itself for non-POST verification pings
			r.Get("/webhook/whatsapp", deps.WhatsAppHandler.HandleInbound)
			r.Post("/webhook/whatsapp", deps.WhatsAppHandler.HandleInbound)
		}
	})
}
