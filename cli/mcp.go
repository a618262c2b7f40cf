// ABOUTME: MCP server command exposing campaigns, onboarding, and generation
// ABOUTME: Runs over stdio for host applications
package cli

import (
	"context"
	"database/sql"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/skiff/backend"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/generate"
	"github.com/harperreed/skiff/handlers"
)

// RunMCPServer starts the MCP server on stdio.
func RunMCPServer(db *sql.DB, cfg *config.Config) error {
	client := backend.NewClient(cfg.BackendURL)
	orchestrator := generate.NewOrchestrator(db, client, nil)

	campaignHandlers := handlers.NewCampaignHandlers(db)
	onboardingHandlers := handlers.NewOnboardingHandlers(db)
	generationHandlers := handlers.NewGenerationHandlers(db, orchestrator)
	resourceHandlers := handlers.NewResourceHandlers(db)
	promptHandlers := handlers.NewPromptHandlers(db)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "skiff",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_campaigns",
		Description: "List a user's outreach campaigns",
	}, campaignHandlers.GetCampaigns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_leads",
		Description: "List the generated leads for a campaign",
	}, campaignHandlers.GetLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_campaign_assets",
		Description: "Fetch a campaign with its email template and send cadence",
	}, campaignHandlers.GetCampaignAssets)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "onboarding_status",
		Description: "Report onboarding completion, import counts, and pipeline state for a user",
	}, onboardingHandlers.OnboardingStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_generation",
		Description: "Start lead, template, and cadence generation for a campaign",
	}, generationHandlers.StartGeneration)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "retry_generation_unit",
		Description: "Retry a single failed generation unit (leads, template, or cadence)",
	}, generationHandlers.RetryGenerationUnit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generation_status",
		Description: "Report per-unit generation status for a campaign",
	}, generationHandlers.GenerationStatus)

	server.AddResource(&mcp.Resource{
		Name:        "pipeline_state",
		Description: "Current onboarding pipeline state",
		MIMEType:    "application/json",
		URI:         "skiff://pipeline",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "user_campaigns",
		Description: "Campaigns belonging to a user. URI format: skiff://users/{user_id}/campaigns",
		MIMEType:    "application/json",
		URITemplate: "skiff://users/{user_id}/campaigns",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "campaign",
		Description: "A single campaign with its assets. URI format: skiff://campaigns/{campaign_id}",
		MIMEType:    "application/json",
		URITemplate: "skiff://campaigns/{campaign_id}",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "campaign_leads",
		Description: "Leads for a campaign. URI format: skiff://campaigns/{campaign_id}/leads",
		MIMEType:    "application/json",
		URITemplate: "skiff://campaigns/{campaign_id}/leads",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "campaign-review",
		Description: "Review a campaign's template and cadence for tone and clarity",
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "lead-prioritization",
		Description: "Rank a campaign's leads by fit",
	}, promptHandlers.GetPrompt)

	ctx := context.Background()
	return server.Run(ctx, &mcp.StdioTransport{})
}
