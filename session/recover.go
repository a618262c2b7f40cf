// ABOUTME: Session recovery protocol reconstructing identity from provider state
// ABOUTME: Silent token, profile email, and store lookup rehydrate a lost cache hint
package session

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/harperreed/skiff/auth"
	"github.com/harperreed/skiff/db"
)

// Recoverer rebuilds a lost session hint from provider state and the durable
// store. Every step is allowed to fail; a failed recovery has no side
// effects and never creates a user.
type Recoverer struct {
	database *sql.DB
	cache    *Cache

	// Injectable for tests
	silentToken  func(ctx context.Context) (*oauth2.Token, error)
	fetchProfile func(ctx context.Context, token *oauth2.Token) (*auth.Profile, error)
}

func NewRecoverer(database *sql.DB, cache *Cache) *Recoverer {
	return &Recoverer{
		database:     database,
		cache:        cache,
		silentToken:  auth.SilentToken,
		fetchProfile: auth.FetchProfile,
	}
}

// Recover attempts to rebuild the session hint. It returns nil when recovery
// is unavailable (no cached credential, unknown user, provider failure); the
// caller should fall back to full interactive onboarding.
func (r *Recoverer) Recover(ctx context.Context) *Hint {
	// Silent mode only: never surprise the user with a login prompt
	token, err := r.silentToken(ctx)
	if err != nil {
		return nil
	}

	profile, err := r.fetchProfile(ctx, token)
	if err != nil {
		fmt.Printf("  ✗ Profile lookup failed during recovery: %v\n", err)
		return nil
	}

	user, err := db.FindUserByEmail(r.database, profile.Email)
	if err != nil {
		fmt.Printf("  ✗ Store lookup failed during recovery: %v\n", err)
		return nil
	}
	if user == nil {
		// Recovery only rehydrates; it never creates
		return nil
	}

	// A recoverable session always came from a finished onboarding
	hint := &Hint{
		UserID:             user.ID,
		UserEmail:          user.Email,
		OnboardingComplete: true,
	}
	if r.cache != nil {
		if err := r.cache.Put(hint); err != nil {
			fmt.Printf("  ✗ Failed to rehydrate session cache: %v\n", err)
			return nil
		}
	}

	return hint
}

// ActiveHint returns the cached hint, falling back to recovery when the
// cache is empty.
func (r *Recoverer) ActiveHint(ctx context.Context) *Hint {
	if r.cache != nil {
		hint, err := r.cache.Get()
		if err == nil && hint != nil {
			return hint
		}
	}
	return r.Recover(ctx)
}
