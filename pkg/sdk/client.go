package zapline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is the zapline SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a zapline Client for the given API base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateCampaign creates a draft campaign.
func (c *Client) CreateCampaign(ctx context.Context, tenantID string, in CreateCampaignInput) (Campaign, error) {
	var out struct {
		Campaign Campaign `json:"campaign"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/campaigns", url.PathEscape(tenantID))
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return Campaign{}, err
	}
	return out.Campaign, nil
}

// Campaign fetches a campaign by id.
func (c *Client) Campaign(ctx context.Context, tenantID, id string) (Campaign, error) {
	var out struct {
		Campaign Campaign `json:"campaign"`
	}
	if err := c.do(ctx, http.MethodGet, c.campaignPath(tenantID, id, ""), nil, &out); err != nil {
		return Campaign{}, err
	}
	return out.Campaign, nil
}

// Ledger returns the per-recipient send records of a campaign, sorted
// by contact id.
func (c *Client) Ledger(ctx context.Context, tenantID, id string) ([]LedgerEntry, error) {
	var out struct {
		Entries []LedgerEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, c.campaignPath(tenantID, id, "/ledger"), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Send dispatches a campaign. Contacts already scheduled or delivered
// are skipped; contacts whose last attempt errored are retried.
func (c *Client) Send(ctx context.Context, tenantID, id string) (DispatchResult, error) {
	return c.dispatch(ctx, tenantID, id, "/send")
}

// ResumeSend continues a partially dispatched campaign without
// retrying errored contacts.
func (c *Client) ResumeSend(ctx context.Context, tenantID, id string) (DispatchResult, error) {
	return c.dispatch(ctx, tenantID, id, "/resume-send")
}

// RetryErrors re-dispatches only the contacts whose last attempt errored.
func (c *Client) RetryErrors(ctx context.Context, tenantID, id string) (DispatchResult, error) {
	return c.dispatch(ctx, tenantID, id, "/retry-errors")
}

// Pause pauses a campaign and cancels its not-yet-delivered messages.
func (c *Client) Pause(ctx context.Context, tenantID, id string) (PauseResult, error) {
	var out PauseResult
	if err := c.do(ctx, http.MethodPost, c.campaignPath(tenantID, id, "/pause"), nil, &out); err != nil {
		return PauseResult{}, err
	}
	return out, nil
}

// BudgetStatus returns the current budget decision for a client in the
// given spend context. Empty budgetContext defaults to "inbound".
func (c *Client) BudgetStatus(ctx context.Context, clientID, budgetContext string) (BudgetDecision, error) {
	q := url.Values{}
	q.Set("clientId", clientID)
	if budgetContext != "" {
		q.Set("context", budgetContext)
	}
	var out struct {
		Decision BudgetDecision `json:"decision"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/llm-budget-status?"+q.Encode(), nil, &out); err != nil {
		return BudgetDecision{}, err
	}
	return out.Decision, nil
}

// AddUsage records token usage against a client's monthly budget.
func (c *Client) AddUsage(ctx context.Context, clientID string, in AddUsageInput) (Usage, error) {
	body := map[string]any{
		"context": in.Context,
		"add":     in,
	}
	var out struct {
		Usage Usage `json:"usage"`
	}
	path := "/api/v1/admin/llm-usage/" + url.PathEscape(clientID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return Usage{}, err
	}
	return out.Usage, nil
}

// ResetUsage clears a client's usage counters for the given month.
func (c *Client) ResetUsage(ctx context.Context, clientID, monthKey string) error {
	body := map[string]any{"resetMonth": monthKey}
	path := "/api/v1/admin/llm-usage/" + url.PathEscape(clientID)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// Health checks API availability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) dispatch(ctx context.Context, tenantID, id, action string) (DispatchResult, error) {
	var out DispatchResult
	if err := c.do(ctx, http.MethodPost, c.campaignPath(tenantID, id, action), nil, &out); err != nil {
		return DispatchResult{}, err
	}
	return out, nil
}

func (c *Client) campaignPath(tenantID, id, suffix string) string {
	return fmt.Sprintf("/api/v1/tenants/%s/campaigns/%s%s",
		url.PathEscape(tenantID), url.PathEscape(id), suffix)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zapline: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("zapline: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zapline: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("zapline: decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: CodeInternalError}

	var body struct {
		Code     string          `json:"code"`
		Message  string          `json:"message"`
		Snapshot *BudgetSnapshot `json:"snapshot"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Snapshot = body.Snapshot
	} else {
		apiErr.Message = string(raw)
	}
	return apiErr
}
