// ABOUTME: Onboarding status MCP tool handler
// ABOUTME: Reports ingested email count, campaign count, and pipeline state
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type OnboardingHandlers struct {
	db *sql.DB
}

func NewOnboardingHandlers(database *sql.DB) *OnboardingHandlers {
	return &OnboardingHandlers{db: database}
}

type OnboardingStatusInput struct {
	UserID string `json:"user_id" jsonschema:"User ID to report onboarding status for (required)"`
}

type OnboardingStatusOutput struct {
	Complete      bool   `json:"complete"`
	EmailCount    int    `json:"email_count"`
	CampaignCount int    `json:"campaign_count"`
	PipelineState string `json:"pipeline_state"`
	PipelineError string `json:"pipeline_error,omitempty"`
}

func (h *OnboardingHandlers) OnboardingStatus(_ context.Context, request *mcp.CallToolRequest, input OnboardingStatusInput) (*mcp.CallToolResult, OnboardingStatusOutput, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("invalid user_id: %w", err)
	}

	user, err := db.GetUser(h.db, userID)
	if err != nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("user not found: %s", input.UserID)
	}

	emailCount, err := db.CountEmails(h.db, userID)
	if err != nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("failed to count emails: %w", err)
	}

	campaignCount, err := db.CountCampaigns(h.db, userID)
	if err != nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("failed to count campaigns: %w", err)
	}

	output := OnboardingStatusOutput{
		Complete:      user.OnboardingComplete,
		EmailCount:    emailCount,
		CampaignCount: campaignCount,
		PipelineState: models.PipelineIdle,
	}

	state, err := db.GetPipelineState(h.db, "onboarding")
	if err != nil {
		return nil, OnboardingStatusOutput{}, fmt.Errorf("failed to get pipeline state: %w", err)
	}
	if state != nil {
		output.PipelineState = state.Status
		if state.ErrorMessage != nil {
			output.PipelineError = *state.ErrorMessage
		}
	}

	return nil, output, nil
}
