package zapline

// CreateCampaignInput describes a new campaign.
type CreateCampaignInput struct {
	Message       string   `json:"message"`
	PacingProfile string   `json:"pacingProfile"`
	ListID        string   `json:"listId,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Target selects the campaign audience.
type Target struct {
	ListID string   `json:"listId"`
	Tags   []string `json:"tags"`
}

// Campaign is a campaign as returned by the API.
type Campaign struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenantId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	PacingProfile string `json:"pacingProfile"`
	Target        Target `json:"target"`
	CreatedAt     int64  `json:"createdAt"` // unix millis
}

// DispatchSummary counts what happened to each resolved target during
// one dispatch run.
type DispatchSummary struct {
	TotalTargets           int `json:"totalTargets"`
	CappedTargets          int `json:"cappedTargets"`
	Eligible               int `json:"eligible"`
	Attempted              int `json:"attempted"`
	Enqueued               int `json:"enqueued"`
	Errors                 int `json:"errors"`
	SkippedAlreadyHandled  int `json:"skippedAlreadyHandled"`
	SkippedDueToDailyLimit int `json:"skippedDueToDailyLimit"`
	LedgerWarnings         int `json:"ledgerWarnings"`
}

// DailyQuota reports the daily send quota state after a dispatch run.
type DailyQuota struct {
	Allowed    int    `json:"allowed"`
	Limit      int    `json:"limit"`
	UsedBefore int    `json:"usedBefore"`
	UsedAfter  int    `json:"usedAfter"`
	Date       string `json:"date"`
	Exhausted  bool   `json:"exhausted"`
}

// DispatchResult is the outcome of a send, resume-send or retry-errors call.
type DispatchResult struct {
	Mode     string          `json:"mode"`
	Summary  DispatchSummary `json:"summary"`
	Daily    DailyQuota      `json:"daily"`
	Campaign Campaign        `json:"campaign"`
}

// PauseResult is the outcome of a pause call.
type PauseResult struct {
	Campaign        Campaign `json:"campaign"`
	CanceledPending int      `json:"canceledPending"`
}

// LedgerEntry is one per-recipient send record.
type LedgerEntry struct {
	ContactID string `json:"contactId"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// BudgetSnapshot is the usage state a budget decision was made against.
type BudgetSnapshot struct {
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	MonthKey  string `json:"monthKey"`
}

// BudgetDecision is the outcome of a budget policy check.
type BudgetDecision struct {
	Action    string         `json:"action"`
	UsagePct  float64        `json:"usagePct"`
	OverLimit bool           `json:"overLimit"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Snapshot  BudgetSnapshot `json:"snapshot"`
}

// Totals is one token counter triple.
type Totals struct {
	TotalTokens      int64 `json:"totalTokens"`
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

// Usage is a tenant's monthly token usage.
type Usage struct {
	TenantID  string            `json:"tenantId"`
	MonthKey  string            `json:"monthKey"`
	Totals    Totals            `json:"totals"`
	ByContext map[string]Totals `json:"byContext"`
}

// AddUsageInput records consumed tokens against a tenant's budget.
type AddUsageInput struct {
	Context          string `json:"-"`
	MonthKey         string `json:"monthKey,omitempty"`
	PromptTokens     int64  `json:"promptTokens,omitempty"`
	CompletionTokens int64  `json:"completionTokens,omitempty"`
	TotalTokens      int64  `json:"totalTokens"`
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
}
