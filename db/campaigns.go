// ABOUTME: Campaign, lead, template, and cadence database operations
// ABOUTME: Handles CRUD filtered by user and campaign id
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/models"
)

func CreateCampaign(db *sql.DB, campaign *models.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO campaigns (id, user_id, name, description, query, style_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, campaign.ID.String(), campaign.UserID.String(), campaign.Name, campaign.Description,
		campaign.Query, campaign.StylePrompt, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

func GetCampaign(db *sql.DB, id uuid.UUID) (*models.Campaign, error) {
	campaign := &models.Campaign{}

	err := db.QueryRow(`
		SELECT id, user_id, name, description, query, style_prompt, created_at, updated_at
		FROM campaigns WHERE id = ?
	`, id.String()).Scan(
		&campaign.ID, &campaign.UserID, &campaign.Name, &campaign.Description,
		&campaign.Query, &campaign.StylePrompt, &campaign.CreatedAt, &campaign.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// FindCampaigns returns all campaigns for a user, newest first.
func FindCampaigns(db *sql.DB, userID uuid.UUID) ([]models.Campaign, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, description, query, style_prompt, created_at, updated_at
		FROM campaigns
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description,
			&c.Query, &c.StylePrompt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// CountCampaigns returns the number of campaigns for a user.
func CountCampaigns(db *sql.DB, userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM campaigns WHERE user_id = ?
	`, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return count, nil
}

// UpdateCampaignStyle sets the style prompt used for generation.
func UpdateCampaignStyle(db *sql.DB, id uuid.UUID, stylePrompt string) error {
	_, err := db.Exec(`
		UPDATE campaigns SET style_prompt = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, stylePrompt, id.String())
	if err != nil {
		return fmt.Errorf("failed to update campaign style: %w", err)
	}
	return nil
}

// SaveLeads replaces a campaign's leads with the given set.
func SaveLeads(db *sql.DB, campaignID uuid.UUID, leads []models.Lead) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM leads WHERE campaign_id = ?`, campaignID.String()); err != nil {
		return fmt.Errorf("failed to clear leads: %w", err)
	}

	for i := range leads {
		l := &leads[i]
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CampaignID = campaignID
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now()
		}
		_, err := tx.Exec(`
			INSERT INTO leads (id, campaign_id, name, email, company, title, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, l.ID.String(), l.CampaignID.String(), l.Name, l.Email, l.Company, l.Title, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save lead: %w", err)
		}
	}

	return tx.Commit()
}

// FindLeads returns all leads for a campaign.
func FindLeads(db *sql.DB, campaignID uuid.UUID) ([]models.Lead, error) {
	rows, err := db.Query(`
		SELECT id, campaign_id, name, email, company, title, created_at
		FROM leads
		WHERE campaign_id = ?
		ORDER BY created_at
	`, campaignID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.Name, &l.Email, &l.Company, &l.Title, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}

	return leads, nil
}

// SaveTemplate upserts a campaign's email template (one per campaign).
func SaveTemplate(db *sql.DB, template *models.Template) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM templates WHERE campaign_id = ?`, template.CampaignID.String()); err != nil {
		return fmt.Errorf("failed to clear template: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO templates (id, campaign_id, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, template.ID.String(), template.CampaignID.String(), template.Subject, template.Body, template.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return tx.Commit()
}

// GetTemplate returns the template for a campaign, or nil if none.
func GetTemplate(db *sql.DB, campaignID uuid.UUID) (*models.Template, error) {
	template := &models.Template{}

	err := db.QueryRow(`
		SELECT id, campaign_id, subject, body, created_at
		FROM templates WHERE campaign_id = ?
	`, campaignID.String()).Scan(
		&template.ID, &template.CampaignID, &template.Subject, &template.Body, &template.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return template, nil
}

// SaveCadence upserts a campaign's follow-up cadence (one per campaign).
// Steps are stored as a JSON array.
func SaveCadence(db *sql.DB, cadence *models.Cadence) error {
	if cadence.ID == uuid.Nil {
		cadence.ID = uuid.New()
	}
	if cadence.CreatedAt.IsZero() {
		cadence.CreatedAt = time.Now()
	}

	steps, err := json.Marshal(cadence.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode cadence steps: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM cadences WHERE campaign_id = ?`, cadence.CampaignID.String()); err != nil {
		return fmt.Errorf("failed to clear cadence: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO cadences (id, campaign_id, steps, created_at)
		VALUES (?, ?, ?, ?)
	`, cadence.ID.String(), cadence.CampaignID.String(), string(steps), cadence.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save cadence: %w", err)
	}

	return tx.Commit()
}

// GetCadence returns the cadence for a campaign, or nil if none.
func GetCadence(db *sql.DB, campaignID uuid.UUID) (*models.Cadence, error) {
	cadence := &models.Cadence{}
	var steps string

	err := db.QueryRow(`
		SELECT id, campaign_id, steps, created_at
		FROM cadences WHERE campaign_id = ?
	`, campaignID.String()).Scan(
		&cadence.ID, &cadence.CampaignID, &steps, &cadence.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cadence: %w", err)
	}

	if err := json.Unmarshal([]byte(steps), &cadence.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode cadence steps: %w", err)
	}

	return cadence, nil
}
