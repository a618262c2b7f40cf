// ABOUTME: Sign-out command: revoke the token and clear all local session state
// ABOUTME: Local state is cleared even when the provider revoke fails
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/skiff/auth"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/session"
)

// SignOut revokes the stored token and clears the session cache.
func SignOut() error {
	token, err := auth.LoadToken()
	if err != nil {
		token = nil
	}

	revokeErr := auth.Revoke(context.Background(), token)

	if cache, err := session.OpenCache(config.CachePath()); err == nil {
		_ = cache.Clear()
		_ = cache.Close()
	}

	if revokeErr != nil {
		fmt.Printf("✗ Provider revoke failed (local session cleared): %v\n", revokeErr)
		return nil
	}
	fmt.Println("✓ Signed out")
	return nil
}
