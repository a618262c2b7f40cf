package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/skiff/models"
)

func TestCreateAndFindCampaigns(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "alice@example.com", "", "")
	require.NoError(t, err)

	campaign := &models.Campaign{
		UserID:      user.ID,
		Name:        "Founders outreach",
		Description: "seed stage founders",
		Query:       "fintech founders",
	}
	require.NoError(t, CreateCampaign(db, campaign))

	campaigns, err := FindCampaigns(db, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Founders outreach", campaigns[0].Name)

	count, err := CountCampaigns(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := GetCampaign(db, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, campaign.ID, got.ID)
}

func TestSaveLeadsReplaces(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "bob@example.com", "", "")
	require.NoError(t, err)

	campaign := &models.Campaign{UserID: user.ID, Name: "c"}
	require.NoError(t, CreateCampaign(db, campaign))

	first := []models.Lead{
		{Name: "Lead A", Email: "a@corp.com"},
		{Name: "Lead B", Email: "b@corp.com"},
	}
	require.NoError(t, SaveLeads(db, campaign.ID, first))

	// A second save replaces, not appends
	second := []models.Lead{{Name: "Lead C", Email: "c@corp.com"}}
	require.NoError(t, SaveLeads(db, campaign.ID, second))

	leads, err := FindLeads(db, campaign.ID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Lead C", leads[0].Name)
}

func TestSaveTemplateUpserts(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "carol@example.com", "", "")
	require.NoError(t, err)

	campaign := &models.Campaign{UserID: user.ID, Name: "c"}
	require.NoError(t, CreateCampaign(db, campaign))

	require.NoError(t, SaveTemplate(db, &models.Template{
		CampaignID: campaign.ID,
		Subject:    "first",
		Body:       "hello",
	}))
	require.NoError(t, SaveTemplate(db, &models.Template{
		CampaignID: campaign.ID,
		Subject:    "second",
		Body:       "hi again",
	}))

	template, err := GetTemplate(db, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, template)
	assert.Equal(t, "second", template.Subject)
}

func TestSaveCadenceRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	user, err := FindOrCreateUser(db, "dave@example.com", "", "")
	require.NoError(t, err)

	campaign := &models.Campaign{UserID: user.ID, Name: "c"}
	require.NoError(t, CreateCampaign(db, campaign))

	require.NoError(t, SaveCadence(db, &models.Cadence{
		CampaignID: campaign.ID,
		Steps: []models.CadenceStep{
			{DayOffset: 3, Subject: "bump", Body: "just floating this up"},
			{DayOffset: 7, Subject: "last try", Body: "closing the loop"},
		},
	}))

	cadence, err := GetCadence(db, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, cadence)
	require.Len(t, cadence.Steps, 2)
	assert.Equal(t, 7, cadence.Steps[1].DayOffset)
}

func TestGetCampaignMissing(t *testing.T) {
	db := setupTestDB(t)

	campaign, err := GetCampaign(db, models.Campaign{}.ID)
	require.NoError(t, err)
	assert.Nil(t, campaign)
}

func TestPipelineState(t *testing.T) {
	db := setupTestDB(t)

	state, err := GetPipelineState(db, "onboarding")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, UpdatePipelineStatus(db, "onboarding", models.PipelineRunning, nil))

	state, err = GetPipelineState(db, "onboarding")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.PipelineRunning, state.Status)
	assert.Nil(t, state.ErrorMessage)

	msg := "fetch failed"
	require.NoError(t, UpdatePipelineStatus(db, "onboarding", models.PipelineError, &msg))

	state, err = GetPipelineState(db, "onboarding")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.PipelineError, state.Status)
	require.NotNil(t, state.ErrorMessage)
	assert.Equal(t, "fetch failed", *state.ErrorMessage)
}
