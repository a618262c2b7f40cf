// ABOUTME: Questionnaire answer persistence
// ABOUTME: One answers row per user, stored as JSON, whole-object upsert
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/models"
)

func SaveQuestionnaire(db *sql.DB, userID uuid.UUID, answers models.QuestionnaireAnswers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO questionnaire_answers (user_id, answers)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET answers = excluded.answers, updated_at = CURRENT_TIMESTAMP
	`, userID.String(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save questionnaire answers: %w", err)
	}

	return nil
}

// GetQuestionnaire returns a user's answers, or nil if never submitted.
func GetQuestionnaire(db *sql.DB, userID uuid.UUID) (*models.QuestionnaireAnswers, error) {
	var data string
	err := db.QueryRow(`
		SELECT answers FROM questionnaire_answers WHERE user_id = ?
	`, userID.String()).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire answers: %w", err)
	}

	var answers models.QuestionnaireAnswers
	if err := json.Unmarshal([]byte(data), &answers); err != nil {
		return nil, fmt.Errorf("failed to decode questionnaire answers: %w", err)
	}

	return &answers, nil
}
