// Package analytics sends conversion-tracking pixels for approved
// payments. The channel is fire-and-forget: failures are logged only
// and never reach the reconciliation result.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type Config struct {
	PixelURL string
	Enabled  bool
}

type Client struct {
	pixelURL   string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		pixelURL:   cfg.PixelURL,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// TrackConversion fires a pixel GET carrying the transaction value.
func (c *Client) TrackConversion(ctx context.Context, leadRef string, amount float64) {
	if !c.enabled || c.pixelURL == "" {
		return
	}

	u, err := url.Parse(c.pixelURL)
	if err != nil {
		c.logger.Error("invalid analytics pixel url", "error", err)
		return
	}

	q := u.Query()
	q.Set("ref", leadRef)
	q.Set("value", fmt.Sprintf("%.2f", amount))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.logger.Error("failed to build conversion request", "error", err)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("conversion tracking failed",
			"error", err,
			"lead_ref", leadRef)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("conversion tracking returned non-success status",
			"status", resp.StatusCode,
			"lead_ref", leadRef)
		return
	}

	c.logger.Info("conversion tracked",
		"lead_ref", leadRef,
		"amount", amount)
}
