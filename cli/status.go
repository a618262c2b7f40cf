// ABOUTME: Status command: shows the active session, import counts, and campaigns
// ABOUTME: Read-only; uses silent recovery to identify the user
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
	"github.com/harperreed/skiff/session"
)

// Status prints the current session, pipeline state, and campaign summary.
func Status(database *sql.DB) error {
	cache, err := session.OpenCache(config.CachePath())
	if err != nil {
		cache = nil
	} else {
		defer cache.Close()
	}

	recoverer := session.NewRecoverer(database, cache)
	hint := recoverer.ActiveHint(context.Background())
	if hint == nil {
		fmt.Println("Not signed in. Run 'skiff onboard' to get started.")
		return nil
	}

	fmt.Printf("Signed in as %s\n", hint.UserEmail)

	emailCount, err := db.CountEmails(database, hint.UserID)
	if err != nil {
		return fmt.Errorf("failed to count emails: %w", err)
	}
	fmt.Printf("Imported emails: %d\n", emailCount)

	state, err := db.GetPipelineState(database, "onboarding")
	if err != nil {
		return fmt.Errorf("failed to read pipeline state: %w", err)
	}
	if state != nil && state.Status == models.PipelineError && state.ErrorMessage != nil {
		fmt.Printf("✗ Last import failed: %s\n", *state.ErrorMessage)
	}

	campaigns, err := db.FindCampaigns(database, hint.UserID)
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}
	if len(campaigns) == 0 {
		fmt.Println("No campaigns yet.")
		return nil
	}

	fmt.Printf("\nCampaigns (%d):\n", len(campaigns))
	for _, campaign := range campaigns {
		leads, err := db.FindLeads(database, campaign.ID)
		if err != nil {
			return fmt.Errorf("failed to list leads: %w", err)
		}
		fmt.Printf("  %s  %s (%d leads)\n", campaign.ID, campaign.Name, len(leads))
	}
	return nil
}
