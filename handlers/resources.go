// ABOUTME: MCP resource handlers for exposing campaign data
// ABOUTME: Provides read-only access to campaigns, leads, and pipeline state via URI
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	db *sql.DB
}

func NewResourceHandlers(database *sql.DB) *ResourceHandlers {
	return &ResourceHandlers{db: database}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "skiff://") {
		return nil, fmt.Errorf("invalid URI scheme: expected skiff://")
	}

	path := strings.TrimPrefix(uri, "skiff://")
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "users":
		if len(parts) < 3 || parts[2] != "campaigns" {
			return nil, fmt.Errorf("unknown resource: %s", path)
		}
		return h.readUserCampaigns(parts[1])

	case "campaigns":
		if len(parts) == 1 {
			return nil, fmt.Errorf("campaign ID required")
		}
		if len(parts) == 3 && parts[2] == "leads" {
			return h.readCampaignLeads(parts[1])
		}
		return h.readCampaign(parts[1])

	case "pipeline":
		return h.readPipeline()

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readUserCampaigns(idStr string) (*mcp.ReadResourceResult, error) {
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	campaigns, err := db.FindCampaigns(h.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaigns: %w", err)
	}

	data, err := json.MarshalIndent(campaigns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal campaigns: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      fmt.Sprintf("skiff://users/%s/campaigns", idStr),
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readCampaign(idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign ID: %w", err)
	}

	campaign, err := db.GetCampaign(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign not found: %s", idStr)
	}

	template, err := db.GetTemplate(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}

	cadence, err := db.GetCadence(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cadence: %w", err)
	}

	campaignData := struct {
		models.Campaign
		Template *models.Template `json:"template,omitempty"`
		Cadence  *models.Cadence  `json:"cadence,omitempty"`
	}{
		Campaign: *campaign,
		Template: template,
		Cadence:  cadence,
	}

	data, err := json.MarshalIndent(campaignData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal campaign: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      fmt.Sprintf("skiff://campaigns/%s", idStr),
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readCampaignLeads(idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign ID: %w", err)
	}

	leads, err := db.FindLeads(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal leads: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      fmt.Sprintf("skiff://campaigns/%s/leads", idStr),
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readPipeline() (*mcp.ReadResourceResult, error) {
	state, err := db.GetPipelineState(h.db, "onboarding")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pipeline state: %w", err)
	}

	pipeline := struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{Status: models.PipelineIdle}

	if state != nil {
		pipeline.Status = state.Status
		if state.ErrorMessage != nil {
			pipeline.Error = *state.ErrorMessage
		}
	}

	data, err := json.MarshalIndent(pipeline, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pipeline: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      "skiff://pipeline",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
