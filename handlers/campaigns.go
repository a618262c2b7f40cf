// ABOUTME: Campaign MCP tool handlers
// ABOUTME: Implements get_campaigns, get_leads, and get_campaign_assets tools
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

type CampaignHandlers struct {
	db *sql.DB
}

func NewCampaignHandlers(database *sql.DB) *CampaignHandlers {
	return &CampaignHandlers{db: database}
}

type GetCampaignsInput struct {
	UserID string `json:"user_id" jsonschema:"User ID to list campaigns for (required)"`
}

type CampaignOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Query       string `json:"query,omitempty"`
	StylePrompt string `json:"style_prompt,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type GetCampaignsOutput struct {
	Campaigns []CampaignOutput `json:"campaigns"`
}

func (h *CampaignHandlers) GetCampaigns(_ context.Context, request *mcp.CallToolRequest, input GetCampaignsInput) (*mcp.CallToolResult, GetCampaignsOutput, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return nil, GetCampaignsOutput{}, fmt.Errorf("invalid user_id: %w", err)
	}

	campaigns, err := db.FindCampaigns(h.db, userID)
	if err != nil {
		return nil, GetCampaignsOutput{}, fmt.Errorf("failed to find campaigns: %w", err)
	}

	result := make([]CampaignOutput, len(campaigns))
	for i, campaign := range campaigns {
		result[i] = campaignToOutput(&campaign)
	}

	return nil, GetCampaignsOutput{Campaigns: result}, nil
}

type GetLeadsInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"Campaign ID to list leads for (required)"`
}

type LeadOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

type GetLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
}

func (h *CampaignHandlers) GetLeads(_ context.Context, request *mcp.CallToolRequest, input GetLeadsInput) (*mcp.CallToolResult, GetLeadsOutput, error) {
	campaignID, err := uuid.Parse(input.CampaignID)
	if err != nil {
		return nil, GetLeadsOutput{}, fmt.Errorf("invalid campaign_id: %w", err)
	}

	leads, err := db.FindLeads(h.db, campaignID)
	if err != nil {
		return nil, GetLeadsOutput{}, fmt.Errorf("failed to find leads: %w", err)
	}

	result := make([]LeadOutput, len(leads))
	for i, lead := range leads {
		result[i] = LeadOutput{
			ID:      lead.ID.String(),
			Name:    lead.Name,
			Email:   lead.Email,
			Company: lead.Company,
			Title:   lead.Title,
		}
	}

	return nil, GetLeadsOutput{Leads: result}, nil
}

type GetCampaignAssetsInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"Campaign ID to fetch the template and cadence for (required)"`
}

type TemplateOutput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CadenceStepOutput struct {
	DayOffset int    `json:"day_offset"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type GetCampaignAssetsOutput struct {
	Campaign CampaignOutput      `json:"campaign"`
	Template *TemplateOutput     `json:"template,omitempty"`
	Cadence  []CadenceStepOutput `json:"cadence,omitempty"`
}

func (h *CampaignHandlers) GetCampaignAssets(_ context.Context, request *mcp.CallToolRequest, input GetCampaignAssetsInput) (*mcp.CallToolResult, GetCampaignAssetsOutput, error) {
	campaignID, err := uuid.Parse(input.CampaignID)
	if err != nil {
		return nil, GetCampaignAssetsOutput{}, fmt.Errorf("invalid campaign_id: %w", err)
	}

	campaign, err := db.GetCampaign(h.db, campaignID)
	if err != nil {
		return nil, GetCampaignAssetsOutput{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign == nil {
		return nil, GetCampaignAssetsOutput{}, fmt.Errorf("campaign not found: %s", input.CampaignID)
	}

	output := GetCampaignAssetsOutput{Campaign: campaignToOutput(campaign)}

	template, err := db.GetTemplate(h.db, campaignID)
	if err != nil {
		return nil, GetCampaignAssetsOutput{}, fmt.Errorf("failed to get template: %w", err)
	}
	if template != nil {
		output.Template = &TemplateOutput{Subject: template.Subject, Body: template.Body}
	}

	cadence, err := db.GetCadence(h.db, campaignID)
	if err != nil {
		return nil, GetCampaignAssetsOutput{}, fmt.Errorf("failed to get cadence: %w", err)
	}
	if cadence != nil {
		output.Cadence = make([]CadenceStepOutput, len(cadence.Steps))
		for i, step := range cadence.Steps {
			output.Cadence[i] = CadenceStepOutput{
				DayOffset: step.DayOffset,
				Subject:   step.Subject,
				Body:      step.Body,
			}
		}
	}

	return nil, output, nil
}

func campaignToOutput(campaign *models.Campaign) CampaignOutput {
	return CampaignOutput{
		ID:          campaign.ID.String(),
		Name:        campaign.Name,
		Description: campaign.Description,
		Query:       campaign.Query,
		StylePrompt: campaign.StylePrompt,
		CreatedAt:   campaign.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
