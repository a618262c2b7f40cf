package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/skiff/models"
)

func TestSaveEmailsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "alice@example.com", "", "")
	require.NoError(t, err)

	emails := []models.Email{
		{UserID: user.ID, MessageID: "m1", Subject: "one", SentAt: time.Now()},
		{UserID: user.ID, MessageID: "m2", Subject: "two", SentAt: time.Now()},
		{UserID: user.ID, MessageID: "m3", Subject: "three", SentAt: time.Now()},
	}

	written, err := SaveEmails(db, emails)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	// Re-running the same save is a no-op per duplicate
	written, err = SaveEmails(db, emails)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	count, err := CountEmails(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveEmailsPartialOverlap(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "bob@example.com", "", "")
	require.NoError(t, err)

	first := []models.Email{
		{UserID: user.ID, MessageID: "m1", SentAt: time.Now()},
	}
	_, err = SaveEmails(db, first)
	require.NoError(t, err)

	second := []models.Email{
		{UserID: user.ID, MessageID: "m1", SentAt: time.Now()},
		{UserID: user.ID, MessageID: "m2", SentAt: time.Now()},
	}
	written, err := SaveEmails(db, second)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	count, err := CountEmails(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveEmailsBatching(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "carol@example.com", "", "")
	require.NoError(t, err)

	// More than one insert batch worth of rows
	var emails []models.Email
	for i := 0; i < insertBatchSize*2+7; i++ {
		emails = append(emails, models.Email{
			UserID:    user.ID,
			MessageID: fmt.Sprintf("m%03d", i),
			SentAt:    time.Now(),
		})
	}

	written, err := SaveEmails(db, emails)
	require.NoError(t, err)
	assert.Equal(t, len(emails), written)

	count, err := CountEmails(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, len(emails), count)
}

func TestFindEmails(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "dave@example.com", "", "")
	require.NoError(t, err)

	now := time.Now()
	emails := []models.Email{
		{UserID: user.ID, MessageID: "old", Subject: "old", SentAt: now.Add(-48 * time.Hour)},
		{UserID: user.ID, MessageID: "new", Subject: "new", SentAt: now},
	}
	_, err = SaveEmails(db, emails)
	require.NoError(t, err)

	found, err := FindEmails(db, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "new", found[0].Subject)
	assert.Equal(t, "old", found[1].Subject)
}
