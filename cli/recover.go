// ABOUTME: Session recovery command: silently restore the last signed-in user
// ABOUTME: Never prompts; prints the restored identity or a neutral signed-out message
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/session"
)

// Recover attempts a silent session restore and reports the result. It never
// opens a login prompt and never creates a user.
func Recover(database *sql.DB) error {
	cache, err := session.OpenCache(config.CachePath())
	if err != nil {
		cache = nil
	} else {
		defer cache.Close()
	}

	recoverer := session.NewRecoverer(database, cache)
	hint := recoverer.Recover(context.Background())
	if hint == nil {
		fmt.Println("No active session. Run 'skiff onboard' to sign in.")
		return nil
	}

	fmt.Printf("✓ Signed in as %s\n", hint.UserEmail)
	fmt.Println("Run 'skiff status' to see your campaigns.")
	return nil
}
