// Package leadstore talks to the external lead backend. The backend is
// an opaque HTTP collaborator; updates are keyed by the lead reference
// and the receiving side is contractually idempotent per (ref, status).
package leadstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dietapronta/checkout-funnel/internal"
)

type Config struct {
	SaveLeadURL     string
	UpdateStatusURL string
	Secret          string
	Timeout         time.Duration
}

type Client struct {
	saveLeadURL     string
	updateStatusURL string
	secret          string
	httpClient      *http.Client
	timeout         time.Duration
	logger          *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		saveLeadURL:     cfg.SaveLeadURL,
		updateStatusURL: cfg.UpdateStatusURL,
		secret:          cfg.Secret,
		httpClient:      &http.Client{Timeout: timeout},
		timeout:         timeout,
		logger:          logger,
	}
}

// Lead is the record created at checkout time. The ref returned by the
// store is the same value echoed back by the processor on every related
// notification.
type Lead struct {
	Ref       string  `json:"ref,omitempty"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	DietTitle string  `json:"diet_title"`
	BodyType  string  `json:"body_type"`
	IMCValue  string  `json:"imc_value"`
	IMCLabel  string  `json:"imc_label"`
	Amount    float64 `json:"amount,omitempty"`
	Status    string  `json:"status,omitempty"`
}

type saveLeadResponse struct {
	OK  bool   `json:"ok"`
	Ref string `json:"ref"`
}

// SaveLead creates the lead and returns the reference chosen by the store.
func (c *Client) SaveLead(ctx context.Context, lead *Lead) (string, error) {
	payload := map[string]any{
		"ref":        lead.Ref,
		"name":       lead.Name,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"diet_title": lead.DietTitle,
		"body_type":  lead.BodyType,
		"imc_value":  lead.IMCValue,
		"imc_label":  lead.IMCLabel,
		"secret":     c.secret,
	}
	if lead.Amount > 0 {
		payload["amount"] = lead.Amount
	}
	if lead.Status != "" {
		payload["status"] = lead.Status
	}

	var resp saveLeadResponse
	if err := c.postJSON(ctx, c.saveLeadURL, payload, &resp); err != nil {
		return "", err
	}

	if !resp.OK || resp.Ref == "" {
		return "", fmt.Errorf("lead store rejected lead creation")
	}

	return resp.Ref, nil
}

// UpdateStatus pushes a (ref, status) pair to the store. At-least-once:
// the caller decides whether a failure is retried through some other
// path; this client never retries on its own.
func (c *Client) UpdateStatus(ctx context.Context, ref, status string, fields map[string]any) error {
	payload := map[string]any{
		"ref":    ref,
		"status": status,
		"secret": c.secret,
	}
	for k, v := range fields {
		payload[k] = v
	}

	return c.postJSON(ctx, c.updateStatusURL, payload, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal lead store payload: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lead store request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read lead store response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("lead store returned non-success status",
			"status", resp.StatusCode,
			"url", url,
			"response", string(respBody))
		return fmt.Errorf("lead store returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode lead store response: %w", err)
		}
	}

	return nil
}
