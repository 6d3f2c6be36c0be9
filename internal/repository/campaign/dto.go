package campaign

import (
	"encoding/json"
	"fmt"

	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
)

type campaignDTO struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenant_id"`
	Status        string   `json:"status"`
	ListID        string   `json:"list_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Message       string   `json:"message"`
	PacingProfile string   `json:"pacing_profile"`
	CreatedAt     int64    `json:"created_at"`
}

func toDTO(c domcampaign.Campaign) campaignDTO {
	return campaignDTO{
		ID:            c.ID(),
		TenantID:      c.TenantID(),
		Status:        string(c.Status()),
		ListID:        c.Target().ListID,
		Tags:          c.Target().Tags,
		Message:       c.Message(),
		PacingProfile: c.PacingProfile(),
		CreatedAt:     c.CreatedAt(),
	}
}

func fromDTO(raw []byte) (domcampaign.Campaign, error) {
	var dto campaignDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domcampaign.Campaign{}, fmt.Errorf("campaign parse: %w", err)
	}
	status, err := domcampaign.ParseStatus(dto.Status)
	if err != nil {
		return domcampaign.Campaign{}, err
	}
	target := domcampaign.TargetSpec{ListID: dto.ListID, Tags: dto.Tags}
	return domcampaign.Reconstruct(dto.ID, dto.TenantID, status, target,
		dto.Message, dto.PacingProfile, dto.CreatedAt), nil
}
