// Package whatsapp proxies outbound text messages through the z-api
// gateway and acknowledges its inbound delivery webhook. The gateway's
// own response body is passed through to the caller, success or not.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type Config struct {
	BaseURL    string
	InstanceID string
	Token      string
	Timeout    time.Duration
}

type Client struct {
	sendTextURL string
	configured  bool
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.z-api.io"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		sendTextURL: fmt.Sprintf("%s/instances/%s/token/%s/send-text", baseURL, cfg.InstanceID, cfg.Token),
		configured:  cfg.InstanceID != "" && cfg.Token != "",
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Configured reports whether gateway credentials were supplied.
func (c *Client) Configured() bool {
	return c.configured
}

// SendText posts a text message to the gateway and returns its decoded
// response. Gateway-level rejections come back in the response body
// rather than as an error, matching the gateway's proxy contract.
func (c *Client) SendText(ctx context.Context, phone, message string) (map[string]any, error) {
	if !c.configured {
		return nil, fmt.Errorf("whatsapp gateway is not configured")
	}

	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendTextURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode whatsapp gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("whatsapp gateway returned non-success status",
			"status", resp.StatusCode,
			"phone", phone)
	}

	return result, nil
}
