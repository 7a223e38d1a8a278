package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dietapronta/checkout-funnel/internal"
	"github.com/dietapronta/checkout-funnel/internal/admin"
	"github.com/dietapronta/checkout-funnel/internal/analytics"
	"github.com/dietapronta/checkout-funnel/internal/checkout"
	"github.com/dietapronta/checkout-funnel/internal/core/events"
	"github.com/dietapronta/checkout-funnel/internal/leadstore"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reconcile"
	"github.com/dietapronta/checkout-funnel/internal/sales"
	salessqlite "github.com/dietapronta/checkout-funnel/internal/sales/sqlite"
	"github.com/dietapronta/checkout-funnel/internal/transport"
	"github.com/dietapronta/checkout-funnel/internal/transport/rest"
	"github.com/dietapronta/checkout-funnel/internal/visitors"
	"github.com/dietapronta/checkout-funnel/internal/whatsapp"
	"github.com/dietapronta/checkout-funnel/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout, webhook and admin requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config           *internal.Config
	DB               *gorm.DB
	Router           *chi.Mux
	ReconcileService *reconcile.Service
	Logger           *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.ReconcileService.Shutdown()
		if sqlDB, err := deps.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("Database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	salesRepo, err := salessqlite.NewSalesRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sales repository: %w", err)
	}

	processorClient := processor.NewClient(processor.Config{
		BaseURL:     config.Processor.BaseURL,
		AccessToken: config.Processor.AccessToken,
		Timeout:     config.Processor.Timeout,
	}, log)

	leadStoreClient := leadstore.NewClient(leadstore.Config{
		SaveLeadURL:     config.LeadStore.SaveLeadURL,
		UpdateStatusURL: config.LeadStore.UpdateStatusURL,
		Secret:          config.LeadStore.Secret,
		Timeout:         config.LeadStore.Timeout,
	}, log)

	analyticsClient := analytics.NewClient(analytics.Config{
		PixelURL: config.Analytics.PixelURL,
		Enabled:  config.Analytics.Enabled,
	}, log)

	eventBus := events.NewEventBus(log)
	sales.NewEventHandler(salesRepo, log).RegisterEventHandlers(eventBus)
	analytics.NewEventHandler(analyticsClient, log).RegisterEventHandlers(eventBus)

	ledger, err := initLedger(config.Reconcile, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dedup ledger: %w", err)
	}

	var metrics *reconcile.Metrics
	var metricsHandler http.Handler
	if config.Observability.Metrics.Enabled {
		metrics = reconcile.NewMetrics(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	resolver := reconcile.NewResolver(
		processorClient,
		config.Reconcile.OrderRetryAttempts,
		config.Reconcile.OrderRetryBackoff,
		log,
	)
	propagator := reconcile.NewPropagator(leadStoreClient, log)
	reconcileService := reconcile.NewService(
		ledger,
		resolver,
		propagator,
		eventBus,
		metrics,
		config.Reconcile.ReverifyOffsets,
		log,
	)

	baseHandler := transport.NewBaseHandler(log)
	webhookHandler := reconcile.NewWebhookHandler(baseHandler, reconcileService, processorClient, log)

	checkoutService := checkout.NewService(processorClient, leadStoreClient, checkout.Config{
		DefaultTitle:    config.Checkout.DefaultTitle,
		DefaultAmount:   config.Checkout.DefaultAmount,
		CurrencyID:      config.Checkout.CurrencyID,
		SuccessURL:      config.Checkout.SuccessURL,
		FailureURL:      config.Checkout.FailureURL,
		PendingURL:      config.Checkout.PendingURL,
		NotificationURL: config.Checkout.NotificationURL,
	}, log)
	checkoutHandler := checkout.NewHandler(baseHandler, checkoutService, log)

	adminHandler := admin.NewHandler(baseHandler, salesRepo, processorClient, admin.Config{
		User: config.Admin.User,
		Pass: config.Admin.Pass,
	}, log)

	visitorsHandler := visitors.NewHandler(baseHandler, visitors.NewService(), log)

	whatsappClient := whatsapp.NewClient(whatsapp.Config{
		BaseURL:    config.WhatsApp.BaseURL,
		InstanceID: config.WhatsApp.InstanceID,
		Token:      config.WhatsApp.Token,
	}, log)
	whatsappHandler := whatsapp.NewHandler(baseHandler, whatsappClient, log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterDeps{
		Processor:       processorClient,
		WebhookHandler:  webhookHandler,
		CheckoutHandler: checkoutHandler,
		AdminHandler:    adminHandler,
		VisitorsHandler: visitorsHandler,
		WhatsAppHandler: whatsappHandler,
		MetricsHandler:  metricsHandler,
		MetricsPath:     config.Observability.Metrics.Path,
		AllowedOrigins:  config.Server.AllowedOrigins,
		Logger:          log,
	})

	return &Dependencies{
		Config:           config,
		Logger:           log,
		DB:               db,
		Router:           router,
		ReconcileService: reconcileService,
	}, nil
}

// initDB opens the embedded sales database
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}
	return db, nil
}

// initLedger picks the dedup ledger backend. Redis makes dedup survive
// restarts; without it the in-memory bounded ledger applies.
func initLedger(cfg internal.ReconcileConfig, log *slog.Logger) (reconcile.Ledger, error) {
	if cfg.RedisURL == "" {
		return reconcile.NewMemoryLedger(cfg.DedupCapacity), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return reconcile.NewRedisLedger(client, cfg.RedisTTL, log), nil
}
