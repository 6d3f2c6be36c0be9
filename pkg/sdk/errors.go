package zapline

import "fmt"

// Error codes returned by the API.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeCampaignNotFound = "campaign_not_found"
	CodeCampaignExists   = "campaign_already_exists"
	CodeCampaignPaused   = "campaign_paused"
	CodeCampaignCanceled = "campaign_canceled"
	CodeBudgetOverLimit  = "budget_over_limit"
	CodeUnknownProfile   = "unknown_pacing_profile"
	CodeInternalError    = "internal_error"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
	// Snapshot is set for budget_over_limit responses.
	Snapshot *BudgetSnapshot
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zapline: %s (status %d): %s", e.Code, e.Status, e.Message)
}

// IsBudgetBlocked reports whether err is a hard budget block (HTTP 402).
func IsBudgetBlocked(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == CodeBudgetOverLimit
}
