// Package outbox is the HTTP client for the message outbox service that
// actually talks to WhatsApp. Enqueue is rate limited client-side so a
// large dispatch does not hammer the outbox API.
package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	domoutbox "github.com/zaplinehq/zapline/internal/domain/outbox"
)

// Config holds the outbox service settings.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Client talks to the outbox service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an outbox client.
func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  cfg.Logger,
	}
}

type enqueueRequest struct {
	TenantID       string `json:"tenantId"`
	CampaignID     string `json:"campaignId"`
	ContactID      string `json:"contactId"`
	Identifier     string `json:"identifier"`
	Body           string `json:"body"`
	NotBefore      int64  `json:"notBefore"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Enqueue submits one message. A 409 means the idempotency key was seen
// before, which is success for our purposes: the message exists.
func (c *Client) Enqueue(ctx context.Context, msg domoutbox.Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outbox rate wait: %w", err)
	}

	body, err := json.Marshal(enqueueRequest{
		TenantID:       msg.TenantID,
		CampaignID:     msg.CampaignID,
		ContactID:      msg.ContactID,
		Identifier:     msg.Identifier,
		Body:           msg.Body,
		NotBefore:      msg.NotBefore.UnixMilli(),
		IdempotencyKey: msg.IdempotencyKey,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/messages", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	case http.StatusConflict:
		c.logger.Debug("outbox already has message",
			zap.String("idempotency_key", msg.IdempotencyKey))
		return nil
	default:
		return fmt.Errorf("outbox enqueue: %s", readAPIError(resp))
	}
}

type cancelResponse struct {
	Canceled int `json:"canceled"`
}

// CancelPending drops every not-yet-sent outbox item of the campaign
// and returns how many were removed.
func (c *Client) CancelPending(ctx context.Context, tenantID, campaignID string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("outbox rate wait: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"tenantId":   tenantID,
		"campaignId": campaignID,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal cancel request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/messages/cancel-pending", body)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("outbox cancel-pending: %s", readAPIError(resp))
	}

	var out cancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode cancel response: %w", err)
	}
	return out.Canceled, nil
}

// HealthCheck verifies the outbox service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("outbox health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build outbox request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outbox request: %w", err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// readAPIError extracts a short error description from the response.
func readAPIError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			return fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Message)
		}
		if parsed.Error != "" {
			return fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Error)
		}
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
