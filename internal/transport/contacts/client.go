// Package contacts is the HTTP client for the contacts service that
// resolves campaign target specs into concrete recipients.
package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
	domcontact "github.com/zaplinehq/zapline/internal/domain/contact"
)

// Config holds the contacts service settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the contacts service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a contacts client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type contactJSON struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
}

type listResponse struct {
	Contacts []contactJSON `json:"contacts"`
}

// EligibleContacts resolves the target spec into opted-in contacts. The
// contacts service owns opt-out filtering; whatever comes back is safe
// to message.
func (c *Client) EligibleContacts(ctx context.Context, tenantID string, target domcampaign.TargetSpec) ([]domcontact.Contact, error) {
	q := url.Values{}
	q.Set("tenantId", tenantID)
	if target.ListID != "" {
		q.Set("listId", target.ListID)
	}
	if len(target.Tags) > 0 {
		q.Set("tags", strings.Join(target.Tags, ","))
	}

	resp, err := c.do(ctx, "/v1/contacts/eligible?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("contacts eligible: status %d: %s", resp.StatusCode, raw)
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode contacts response: %w", err)
	}

	contacts := make([]domcontact.Contact, 0, len(out.Contacts))
	for _, ct := range out.Contacts {
		contacts = append(contacts, domcontact.Contact{ID: ct.ID, Identifier: ct.Identifier})
	}
	return contacts, nil
}

// HealthCheck verifies the contacts service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("contacts health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build contacts request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacts request: %w", err)
	}
	return resp, nil
}
