package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Processor     ProcessorConfig     `mapstructure:"processor" validate:"required"`
	LeadStore     LeadStoreConfig     `mapstructure:"lead_store" validate:"required"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	WhatsApp      WhatsAppConfig      `mapstructure:"whatsapp"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// ProcessorConfig configures the payment processor read/write API.
// Lookup calls must finish inside Timeout so a slow processor cannot
// stall the webhook responder.
type ProcessorConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	AccessToken string        `mapstructure:"access_token" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LeadStoreConfig struct {
	SaveLeadURL     string        `mapstructure:"save_lead_url" validate:"required,url"`
	UpdateStatusURL string        `mapstructure:"update_status_url" validate:"required,url"`
	Secret          string        `mapstructure:"secret" validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type AnalyticsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	PixelURL string `mapstructure:"pixel_url" validate:"required_if=Enabled true,url"`
}

// WhatsAppConfig holds z-api gateway credentials. Leaving them blank
// disables the send proxy; the inbound webhook always acknowledges.
type WhatsAppConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	InstanceID string `mapstructure:"instance_id"`
	Token      string `mapstructure:"token"`
}

type ReconcileConfig struct {
	DedupCapacity      int             `mapstructure:"dedup_capacity"`
	RedisURL           string          `mapstructure:"redis_url"`
	RedisTTL           time.Duration   `mapstructure:"redis_ttl"`
	OrderRetryAttempts int             `mapstructure:"order_retry_attempts"`
	OrderRetryBackoff  time.Duration   `mapstructure:"order_retry_backoff"`
	ReverifyOffsets    []time.Duration `mapstructure:"reverify_offsets"`
}

type CheckoutConfig struct {
	DefaultTitle    string  `mapstructure:"default_title"`
	DefaultAmount   float64 `mapstructure:"default_amount"`
	CurrencyID      string  `mapstructure:"currency_id"`
	SuccessURL      string  `mapstructure:"success_url"`
	FailureURL      string  `mapstructure:"failure_url"`
	PendingURL      string  `mapstructure:"pending_url"`
	NotificationURL string  `mapstructure:"notification_url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AdminConfig struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

const (
	defaultProcessorTimeout   = 8 * time.Second
	defaultLeadStoreTimeout   = 5 * time.Second
	defaultDedupCapacity      = 500
	defaultOrderRetryAttempts = 3
	defaultOrderRetryBackoff  = 5 * time.Second
)

func defaultReverifyOffsets() []time.Duration {
	return []time.Duration{30 * time.Second, 60 * time.Second}
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Processor.Timeout <= 0 {
		c.Processor.Timeout = defaultProcessorTimeout
	}
	if c.LeadStore.Timeout <= 0 {
		c.LeadStore.Timeout = defaultLeadStoreTimeout
	}
	if c.Reconcile.DedupCapacity <= 0 {
		c.Reconcile.DedupCapacity = defaultDedupCapacity
	}
	if c.Reconcile.OrderRetryAttempts <= 0 {
		c.Reconcile.OrderRetryAttempts = defaultOrderRetryAttempts
	}
	if c.Reconcile.OrderRetryBackoff <= 0 {
		c.Reconcile.OrderRetryBackoff = defaultOrderRetryBackoff
	}
	if len(c.Reconcile.ReverifyOffsets) == 0 {
		c.Reconcile.ReverifyOffsets = defaultReverifyOffsets()
	}
	if c.Reconcile.RedisTTL <= 0 {
		c.Reconcile.RedisTTL = 24 * time.Hour
	}
	if c.Checkout.CurrencyID == "" {
		c.Checkout.CurrencyID = "BRL"
	}
	if c.Database.Path == "" {
		c.Database.Path = "checkout-funnel.db"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a config from environment variables, used for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:        getEnv("SERVER_BASE_URL", ""),
			AllowedOrigins: getEnv("SERVER_ALLOWED_ORIGINS", "*"),
		},
		Processor: ProcessorConfig{
			BaseURL:     getEnv("PROCESSOR_BASE_URL", "https://api.mercadopago.com"),
			AccessToken: getEnv("PROCESSOR_ACCESS_TOKEN", ""),
		},
		LeadStore: LeadStoreConfig{
			SaveLeadURL:     getEnv("LEAD_STORE_SAVE_LEAD_URL", ""),
			UpdateStatusURL: getEnv("LEAD_STORE_UPDATE_STATUS_URL", ""),
			Secret:          getEnv("LEAD_STORE_SECRET", ""),
		},
		Analytics: AnalyticsConfig{
			Enabled:  getEnv("ANALYTICS_ENABLED", "false") == "true",
			PixelURL: getEnv("ANALYTICS_PIXEL_URL", ""),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:    getEnv("WHATSAPP_BASE_URL", ""),
			InstanceID: getEnv("WHATSAPP_INSTANCE_ID", ""),
			Token:      getEnv("WHATSAPP_TOKEN", ""),
		},
		Reconcile: ReconcileConfig{
			RedisURL: getEnv("RECONCILE_REDIS_URL", ""),
		},
		Checkout: CheckoutConfig{
			DefaultTitle:    getEnv("CHECKOUT_DEFAULT_TITLE", "Plano de Dieta Completo"),
			SuccessURL:      getEnv("CHECKOUT_SUCCESS_URL", ""),
			FailureURL:      getEnv("CHECKOUT_FAILURE_URL", ""),
			PendingURL:      getEnv("CHECKOUT_PENDING_URL", ""),
			NotificationURL: getEnv("CHECKOUT_NOTIFICATION_URL", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "checkout-funnel.db"),
		},
		Admin: AdminConfig{
			User: getEnv("ADMIN_USER", ""),
			Pass: getEnv("ADMIN_PASS", ""),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Processor.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("processor config: %v", err))
	}

	if err := c.LeadStore.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("lead store config: %v", err))
	}

	if err := c.Reconcile.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("reconcile config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ProcessorConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.AccessToken == "" {
		return errors.New("access_token is required")
	}
	return nil
}

func (c *LeadStoreConfig) Validate() error {
	if c.SaveLeadURL == "" {
		return errors.New("save_lead_url is required")
	}
	if c.UpdateStatusURL == "" {
		return errors.New("update_status_url is required")
	}
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	return nil
}

func (c *ReconcileConfig) Validate() error {
	if c.DedupCapacity < 0 {
		return errors.New("dedup_capacity cannot be negative")
	}
	for _, off := range c.ReverifyOffsets {
		if off <= 0 {
			return errors.New("reverify_offsets must be positive durations")
		}
	}
	return nil
}
