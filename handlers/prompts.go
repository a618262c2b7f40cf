// ABOUTME: MCP prompt handlers for reusable outreach workflow templates
// ABOUTME: Provides standardized prompts for campaign review and lead prioritization
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	db *sql.DB
}

func NewPromptHandlers(database *sql.DB) *PromptHandlers {
	return &PromptHandlers{db: database}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "campaign-review":
		return h.getCampaignReviewPrompt(arguments)
	case "lead-prioritization":
		return h.getLeadPrioritizationPrompt(arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getCampaignReviewPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	campaignIDStr, ok := args["campaign_id"]
	if !ok {
		return nil, fmt.Errorf("campaign_id is required")
	}

	campaignID, err := uuid.Parse(campaignIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign_id: %w", err)
	}

	campaign, err := db.GetCampaign(h.db, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign not found: %s", campaignIDStr)
	}

	template, err := db.GetTemplate(h.db, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}

	cadence, err := db.GetCadence(h.db, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cadence: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Please review this outreach campaign: %s\n\n", campaign.Name))
	if campaign.Description != "" {
		promptText.WriteString(fmt.Sprintf("Description: %s\n", campaign.Description))
	}
	if campaign.Query != "" {
		promptText.WriteString(fmt.Sprintf("Target query: %s\n", campaign.Query))
	}
	if campaign.StylePrompt != "" {
		promptText.WriteString(fmt.Sprintf("Writing style: %s\n", campaign.StylePrompt))
	}

	if template != nil {
		promptText.WriteString(fmt.Sprintf("\nEmail template:\nSubject: %s\n%s\n", template.Subject, template.Body))
	}
	if cadence != nil && len(cadence.Steps) > 0 {
		promptText.WriteString(fmt.Sprintf("\nFollow-up cadence (%d steps):\n", len(cadence.Steps)))
		for _, step := range cadence.Steps {
			promptText.WriteString(fmt.Sprintf("  - Day %d: %s\n", step.DayOffset, step.Subject))
		}
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. An assessment of whether the template matches the target audience")
	promptText.WriteString("\n2. Suggestions to improve the subject lines")
	promptText.WriteString("\n3. Whether the cadence timing feels appropriate for this audience")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review of campaign: %s", campaign.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: promptText.String(),
				},
			},
		},
	}, nil
}

func (h *PromptHandlers) getLeadPrioritizationPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	campaignIDStr, ok := args["campaign_id"]
	if !ok {
		return nil, fmt.Errorf("campaign_id is required")
	}

	campaignID, err := uuid.Parse(campaignIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign_id: %w", err)
	}

	campaign, err := db.GetCampaign(h.db, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign not found: %s", campaignIDStr)
	}

	leads, err := db.FindLeads(h.db, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Prioritize the leads for campaign: %s\n\n", campaign.Name))
	promptText.WriteString(fmt.Sprintf("Leads: %d\n", len(leads)))
	for _, lead := range leads {
		promptText.WriteString(fmt.Sprintf("  - %s", lead.Name))
		if lead.Title != "" {
			promptText.WriteString(fmt.Sprintf(", %s", lead.Title))
		}
		if lead.Company != "" {
			promptText.WriteString(fmt.Sprintf(" at %s", lead.Company))
		}
		promptText.WriteString("\n")
	}

	promptText.WriteString("\nPlease:")
	promptText.WriteString("\n1. Rank these leads by likely fit with the campaign's target query")
	promptText.WriteString("\n2. Flag any leads that look like poor fits")
	promptText.WriteString("\n3. Suggest a personalization angle for the top five")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Lead prioritization for %s", campaign.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: promptText.String(),
				},
			},
		},
	}, nil
}
