package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound reports that the processor has no record for the
// requested id.
var ErrNotFound = errors.New("processor: resource not found")

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client is a bearer-authenticated read/write client for the payment
// processor API. Every call carries a bounded timeout so a slow
// processor cannot stall the webhook responder.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		logger:      logger,
	}
}

// GetPayment fetches a payment by id. The result is never cached.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(id)), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetMerchantOrder fetches an order and its linked payments by id.
func (c *Client) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	var order MerchantOrder
	if err := c.getJSON(ctx, fmt.Sprintf("%s/merchant_orders/%s", c.baseURL, url.PathEscape(id)), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SearchPaymentsByReference returns payments for an external reference,
// most recent first. An empty reference searches the latest payments.
func (c *Client) SearchPaymentsByReference(ctx context.Context, ref string, limit int) ([]Payment, error) {
	u, err := url.Parse(c.baseURL + "/v1/payments/search")
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}

	q := u.Query()
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	if ref != "" {
		q.Set("external_reference", ref)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// CreatePreference creates a hosted checkout session.
func (c *Client) CreatePreference(ctx context.Context, pref *PreferenceRequest) (*Preference, error) {
	payload, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read preference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("processor rejected preference",
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var created Preference
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}

	return &created, nil
}

// Ping probes processor connectivity with a minimal authenticated read.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SearchPaymentsByReference(ctx, "", 1)
	return err
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("processor returned non-success status",
			"status", resp.StatusCode,
			"url", rawURL,
			"response", string(body))
		return fmt.Errorf("processor returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode processor response: %w", err)
	}

	return nil
}
