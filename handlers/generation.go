// ABOUTME: Generation MCP tool handlers
// ABOUTME: Implements start_generation, retry_generation_unit, and generation_status tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/generate"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type GenerationHandlers struct {
	db           *sql.DB
	orchestrator *generate.Orchestrator
}

func NewGenerationHandlers(database *sql.DB, orchestrator *generate.Orchestrator) *GenerationHandlers {
	return &GenerationHandlers{db: database, orchestrator: orchestrator}
}

type StartGenerationInput struct {
	CampaignID   string `json:"campaign_id" jsonschema:"Campaign ID to generate leads, template, and cadence for (required)"`
	CallToAction string `json:"call_to_action,omitempty" jsonschema:"Call to action the email template should drive toward"`
	LeadLimit    int    `json:"lead_limit,omitempty" jsonschema:"Maximum leads to generate (default 25)"`
}

type StartGenerationOutput struct {
	Started bool `json:"started"`
}

func (h *GenerationHandlers) StartGeneration(ctx context.Context, request *mcp.CallToolRequest, input StartGenerationInput) (*mcp.CallToolResult, StartGenerationOutput, error) {
	campaignID, err := uuid.Parse(input.CampaignID)
	if err != nil {
		return nil, StartGenerationOutput{}, fmt.Errorf("invalid campaign_id: %w", err)
	}

	params := generate.Params{
		CallToAction: input.CallToAction,
		LeadLimit:    input.LeadLimit,
	}
	if err := h.orchestrator.Start(ctx, campaignID, params); err != nil {
		return nil, StartGenerationOutput{}, fmt.Errorf("failed to start generation: %w", err)
	}

	return nil, StartGenerationOutput{Started: true}, nil
}

type RetryGenerationUnitInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"Campaign ID of the generation session (required)"`
	Unit       string `json:"unit" jsonschema:"Which unit to retry: leads, template, or cadence (required)"`
}

type RetryGenerationUnitOutput struct {
	Retried bool `json:"retried"`
}

func (h *GenerationHandlers) RetryGenerationUnit(ctx context.Context, request *mcp.CallToolRequest, input RetryGenerationUnitInput) (*mcp.CallToolResult, RetryGenerationUnitOutput, error) {
	campaignID, err := uuid.Parse(input.CampaignID)
	if err != nil {
		return nil, RetryGenerationUnitOutput{}, fmt.Errorf("invalid campaign_id: %w", err)
	}

	if err := h.orchestrator.Retry(ctx, campaignID, generate.Unit(input.Unit)); err != nil {
		return nil, RetryGenerationUnitOutput{}, fmt.Errorf("failed to retry unit: %w", err)
	}

	return nil, RetryGenerationUnitOutput{Retried: true}, nil
}

type GenerationStatusInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"Campaign ID of the generation session (required)"`
}

type UnitStatusOutput struct {
	Unit   string `json:"unit"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type GenerationStatusOutput struct {
	Units       []UnitStatusOutput `json:"units"`
	AllSettled  bool               `json:"all_settled"`
	Proceedable bool               `json:"proceedable"`
}

func (h *GenerationHandlers) GenerationStatus(_ context.Context, request *mcp.CallToolRequest, input GenerationStatusInput) (*mcp.CallToolResult, GenerationStatusOutput, error) {
	campaignID, err := uuid.Parse(input.CampaignID)
	if err != nil {
		return nil, GenerationStatusOutput{}, fmt.Errorf("invalid campaign_id: %w", err)
	}

	snap, ok := h.orchestrator.Snapshot(campaignID)
	if !ok {
		return nil, GenerationStatusOutput{}, fmt.Errorf("no generation session for campaign %s", input.CampaignID)
	}

	output := GenerationStatusOutput{
		AllSettled:  snap.AllSettled(),
		Proceedable: snap.Proceedable(),
	}
	for _, unit := range generate.Units {
		state := snap.Units[unit]
		output.Units = append(output.Units, UnitStatusOutput{
			Unit:   string(unit),
			Status: string(state.Status),
			Error:  state.Err,
		})
	}

	return nil, output, nil
}
