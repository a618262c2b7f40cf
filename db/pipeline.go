// ABOUTME: Database operations for the pipeline_state table
// ABOUTME: Tracks onboarding pipeline status for reload recovery
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// PipelineState records the last known status of a named pipeline. The
// durable store is the source of truth after a reload; in-memory
// orchestration state is rebuilt from here.
type PipelineState struct {
	Name         string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetPipelineState retrieves the state row for a pipeline, or nil if none.
func GetPipelineState(db *sql.DB, name string) (*PipelineState, error) {
	var state PipelineState
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT name, status, error_message, created_at, updated_at
		FROM pipeline_state
		WHERE name = ?
	`, name).Scan(
		&state.Name,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline state: %w", err)
	}

	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdatePipelineStatus upserts the status for a pipeline.
func UpdatePipelineStatus(db *sql.DB, name, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO pipeline_state (name, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, name, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update pipeline status: %w", err)
	}

	return nil
}
