// ABOUTME: User database operations
// ABOUTME: Handles find-or-create by email, lookups, and onboarding flag updates
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/models"
)

// FindOrCreateUser returns the user with the given email, creating one if
// none exists. Email comparison is case-insensitive; emails are stored
// lowercased.
func FindOrCreateUser(db *sql.DB, email, displayName, googleID string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	existing, err := FindUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Refresh profile fields if the provider now reports them
		if (displayName != "" && displayName != existing.DisplayName) ||
			(googleID != "" && googleID != existing.GoogleID) {
			if displayName != "" {
				existing.DisplayName = displayName
			}
			if googleID != "" {
				existing.GoogleID = googleID
			}
			existing.UpdatedAt = time.Now()
			_, err = db.Exec(`
				UPDATE users SET display_name = ?, google_id = ?, updated_at = ?
				WHERE id = ?
			`, existing.DisplayName, existing.GoogleID, existing.UpdatedAt, existing.ID.String())
			if err != nil {
				return nil, fmt.Errorf("failed to update user profile: %w", err)
			}
		}
		return existing, nil
	}

	user := &models.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		GoogleID:    googleID,
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.Exec(`
		INSERT INTO users (id, email, display_name, google_id, onboarding_complete, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, user.ID.String(), user.Email, user.DisplayName, user.GoogleID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		// Lost a race with a concurrent insert; re-read
		if strings.Contains(err.Error(), "UNIQUE") {
			return FindUserByEmail(db, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindUserByEmail returns the user with the given email, or nil if none.
func FindUserByEmail(db *sql.DB, email string) (*models.User, error) {
	user := &models.User{}
	var onboarding int

	err := db.QueryRow(`
		SELECT id, email, display_name, google_id, onboarding_complete, created_at, updated_at
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.GoogleID,
		&onboarding,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.OnboardingComplete = onboarding != 0
	return user, nil
}

// GetUser returns the user with the given id, or nil if none.
func GetUser(db *sql.DB, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var onboarding int

	err := db.QueryRow(`
		SELECT id, email, display_name, google_id, onboarding_complete, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.GoogleID,
		&onboarding,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.OnboardingComplete = onboarding != 0
	return user, nil
}

// SetOnboardingComplete marks onboarding finished for the user.
func SetOnboardingComplete(db *sql.DB, id uuid.UUID) error {
	_, err := db.Exec(`
		UPDATE users SET onboarding_complete = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id.String())
	if err != nil {
		return fmt.Errorf("failed to set onboarding complete: %w", err)
	}
	return nil
}
