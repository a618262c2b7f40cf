// ABOUTME: Generation command: runs the three campaign units from the terminal
// ABOUTME: Prints per-unit progress and exits non-zero only when nothing succeeded
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harperreed/skiff/backend"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/generate"
)

// Generate runs lead, template, and cadence generation for one campaign and
// waits for all three to settle.
func Generate(database *sql.DB, cfg *config.Config, campaignIDArg, callToAction string) error {
	campaignID, err := uuid.Parse(campaignIDArg)
	if err != nil {
		return fmt.Errorf("invalid campaign id %q: %w", campaignIDArg, err)
	}

	campaign, err := db.GetCampaign(database, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign == nil {
		return fmt.Errorf("campaign not found: %s", campaignIDArg)
	}

	params := generate.Params{CallToAction: callToAction}
	if params.CallToAction == "" {
		if answers, err := db.GetQuestionnaire(database, campaign.UserID); err == nil && answers != nil {
			params.CallToAction = answers.CallToAction
		}
	}

	fmt.Printf("Generating campaign %q\n", campaign.Name)

	var mu sync.Mutex
	reported := make(map[generate.Unit]generate.Status)
	done := make(chan generate.Snapshot, 1)

	client := backend.NewClient(cfg.BackendURL)
	orchestrator := generate.NewOrchestrator(database, client, func(snap generate.Snapshot) {
		mu.Lock()
		for _, unit := range generate.Units {
			state := snap.Units[unit]
			if reported[unit] == state.Status {
				continue
			}
			reported[unit] = state.Status
			switch state.Status {
			case generate.StatusLoading:
				fmt.Printf("⟳ %s\n", unit)
			case generate.StatusSuccess:
				fmt.Printf("✓ %s\n", unit)
			case generate.StatusFailed:
				fmt.Printf("✗ %s: %s\n", unit, state.Err)
			}
		}
		mu.Unlock()

		if snap.AllSettled() {
			select {
			case done <- snap:
			default:
			}
		}
	})

	ctx := context.Background()
	if err := orchestrator.Start(ctx, campaignID, params); err != nil {
		return fmt.Errorf("failed to start generation: %w", err)
	}

	snap := <-done
	if !snap.Proceedable() {
		return fmt.Errorf("all generation units failed")
	}

	fmt.Printf("\n✓ Generation finished: %d leads\n", len(snap.Leads))
	if snap.Template != nil {
		fmt.Printf("  Template: %s\n", snap.Template.Subject)
	}
	if snap.Cadence != nil {
		fmt.Printf("  Cadence: %d steps\n", len(snap.Cadence.Steps))
	}
	return nil
}
