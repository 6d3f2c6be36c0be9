package domain

import "errors"

var (
	// ErrCampaignNotFound signals a missing campaign.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCampaignExists signals a duplicate campaign id.
	ErrCampaignExists = errors.New("campaign already exists")
	// ErrCampaignPaused signals a dispatch attempt on a paused campaign.
	ErrCampaignPaused = errors.New("campaign is paused")
	// ErrCampaignCanceled signals any operation on a canceled campaign.
	ErrCampaignCanceled = errors.New("campaign is canceled")
	// ErrTenantRequired signals a missing tenant id.
	ErrTenantRequired = errors.New("tenant id required")
	// ErrBudgetBlocked signals a hard budget block for the current month.
	ErrBudgetBlocked = errors.New("monthly budget over limit")
	// ErrPolicyNotFound signals a tenant without a budget policy override.
	ErrPolicyNotFound = errors.New("budget policy not found")
	// ErrUnknownPacingProfile signals an unconfigured pacing profile name.
	ErrUnknownPacingProfile = errors.New("unknown pacing profile")
	// ErrInvalidStatus signals an unrecognized status value.
	ErrInvalidStatus = errors.New("invalid status")
)
