// ABOUTME: Tests for questionnaire answer persistence
// ABOUTME: Covers round trip, overwrite, and the missing-row case
package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/skiff/models"
)

func TestQuestionnaireRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	userID := uuid.New()

	answers := models.QuestionnaireAnswers{
		Company:      "Acme Inc",
		Role:         "Founder",
		Audience:     "Early-stage founders",
		Goal:         "Book intro calls",
		CallToAction: "Grab 15 minutes",
	}
	require.NoError(t, SaveQuestionnaire(db, userID, answers))

	got, err := GetQuestionnaire(db, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, answers, *got)
}

func TestQuestionnaireOverwrite(t *testing.T) {
	db := setupTestDB(t)
	userID := uuid.New()

	require.NoError(t, SaveQuestionnaire(db, userID, models.QuestionnaireAnswers{Goal: "first"}))
	require.NoError(t, SaveQuestionnaire(db, userID, models.QuestionnaireAnswers{Goal: "second"}))

	got, err := GetQuestionnaire(db, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Goal)
}

func TestQuestionnaireMissing(t *testing.T) {
	db := setupTestDB(t)

	got, err := GetQuestionnaire(db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
