// ABOUTME: Tests for the backend onboarding runner's degradation ladder
// ABOUTME: Uses fakes for the mail pipeline and analysis client over a real SQLite db
package onboarding

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/skiff/backend"
	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/ingest"
	"github.com/harperreed/skiff/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.InitSchema(database))
	return database
}

type fakeIngestor struct {
	count   int
	err     error
	called  int
	persist func(userID uuid.UUID)
}

func (f *fakeIngestor) FetchAndPersist(ctx context.Context, userID uuid.UUID, maxCount int, onProgress ingest.Progress) (int, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	if f.persist != nil {
		f.persist(userID)
	}
	if onProgress != nil {
		onProgress(f.count, f.count)
	}
	return f.count, nil
}

type fakeAnalysis struct {
	clusters   []backend.ClusterResult
	clusterErr error
	analyze    *backend.AnalyzeResult
	analyzeErr error
}

func (f *fakeAnalysis) Cluster(ctx context.Context, userID string) ([]backend.ClusterResult, error) {
	return f.clusters, f.clusterErr
}

func (f *fakeAnalysis) Analyze(ctx context.Context, userID string) (*backend.AnalyzeResult, error) {
	return f.analyze, f.analyzeErr
}

func collectEvents(t *testing.T, d *bus.Dispatcher) func() []bus.ProgressEvent {
	t.Helper()
	events, cancel := d.Subscribe()
	t.Cleanup(cancel)
	return func() []bus.ProgressEvent {
		var seen []bus.ProgressEvent
		for {
			select {
			case event := <-events:
				seen = append(seen, event)
			default:
				return seen
			}
		}
	}
}

func TestRunnerHappyPath(t *testing.T) {
	database := setupTestDB(t)
	userID := uuid.New()
	dispatcher := bus.NewDispatcher()
	drain := collectEvents(t, dispatcher)

	analysis := &fakeAnalysis{
		clusters: []backend.ClusterResult{
			{Name: "Founders", Description: "Early stage founders", Query: "founder"},
			{Name: "Recruiters", Description: "Tech recruiters", Query: "recruiter"},
		},
		analyze: &backend.AnalyzeResult{StylePrompt: "casual and direct"},
	}
	runner := NewRunner(database, analysis, &fakeIngestor{count: 42}, dispatcher)

	result, err := runner.Run(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 42, result.EmailCount)
	require.Len(t, result.Campaigns, 2)
	assert.Equal(t, "casual and direct", result.Campaigns[0].StylePrompt)

	saved, err := db.FindCampaigns(database, userID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	for _, campaign := range saved {
		assert.Equal(t, "casual and direct", campaign.StylePrompt)
	}

	state, err := db.GetPipelineState(database, "onboarding")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.PipelineIdle, state.Status)

	events := drain()
	var steps []string
	for _, event := range events {
		steps = append(steps, event.Step)
	}
	assert.Contains(t, steps, models.StepSetup)
	assert.Contains(t, steps, models.StepFetching)
	assert.Contains(t, steps, models.StepSaving)
	assert.Contains(t, steps, models.StepClustering)
	assert.Contains(t, steps, models.StepBackendComplete)

	final := events[len(events)-1]
	assert.Equal(t, models.StepBackendComplete, final.Step)
	assert.Equal(t, 42, final.EmailCount)
	assert.Equal(t, 2, final.CampaignCount)
	assert.Len(t, final.CampaignIDs, 2)
}

func TestRunnerIngestFailureIsFatal(t *testing.T) {
	database := setupTestDB(t)
	dispatcher := bus.NewDispatcher()
	drain := collectEvents(t, dispatcher)

	analysis := &fakeAnalysis{clusters: []backend.ClusterResult{{Name: "Founders"}}}
	runner := NewRunner(database, analysis, &fakeIngestor{err: errors.New("gmail unavailable")}, dispatcher)

	result, err := runner.Run(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "gmail unavailable")

	state, err := db.GetPipelineState(database, "onboarding")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.PipelineError, state.Status)
	require.NotNil(t, state.ErrorMessage)
	assert.Contains(t, *state.ErrorMessage, "gmail unavailable")

	events := drain()
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, models.StepError, final.Step)
	assert.Contains(t, final.Message, "gmail unavailable")
}

func TestRunnerStatusWriteFailureBroadcastsError(t *testing.T) {
	database := setupTestDB(t)
	dispatcher := bus.NewDispatcher()
	drain := collectEvents(t, dispatcher)

	// Break the pipeline_state table so the initial status write fails
	_, err := database.Exec("DROP TABLE pipeline_state")
	require.NoError(t, err)

	ingestorFake := &fakeIngestor{count: 5}
	runner := NewRunner(database, &fakeAnalysis{}, ingestorFake, dispatcher)

	result, err := runner.Run(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, ingestorFake.called)

	// The foreground must still hear about the failure
	events := drain()
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, models.StepError, final.Step)
	assert.Contains(t, final.Message, "failed to mark pipeline running")
}

func TestRunnerClusterFailureDegradesToZeroCampaigns(t *testing.T) {
	database := setupTestDB(t)
	userID := uuid.New()

	analysis := &fakeAnalysis{clusterErr: errors.New("backend timeout")}
	runner := NewRunner(database, analysis, &fakeIngestor{count: 7}, bus.NewDispatcher())

	result, err := runner.Run(context.Background(), userID)
	require.NoError(t, err, "cluster failure must not fail the track")
	assert.Equal(t, 7, result.EmailCount)
	assert.Empty(t, result.Campaigns)

	state, err := db.GetPipelineState(database, "onboarding")
	require.NoError(t, err)
	assert.Equal(t, models.PipelineIdle, state.Status)
}

func TestRunnerAnalyzeFailureKeepsRawClusters(t *testing.T) {
	database := setupTestDB(t)
	userID := uuid.New()

	analysis := &fakeAnalysis{
		clusters:   []backend.ClusterResult{{Name: "Founders", Query: "founder"}},
		analyzeErr: errors.New("quota exceeded"),
	}
	runner := NewRunner(database, analysis, &fakeIngestor{count: 3}, bus.NewDispatcher())

	result, err := runner.Run(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, result.Campaigns, 1)
	assert.Empty(t, result.Campaigns[0].StylePrompt)

	saved, err := db.FindCampaigns(database, userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Founders", saved[0].Name)
	assert.Empty(t, saved[0].StylePrompt)
}

func TestRunnerExistingCampaignsShortCircuit(t *testing.T) {
	database := setupTestDB(t)
	userID := uuid.New()

	campaign := models.Campaign{UserID: userID, Name: "Founders"}
	require.NoError(t, db.CreateCampaign(database, &campaign))

	ingestorFake := &fakeIngestor{count: 99}
	analysis := &fakeAnalysis{clusterErr: errors.New("must not be called")}
	runner := NewRunner(database, analysis, ingestorFake, bus.NewDispatcher())

	result, err := runner.Run(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, result.Campaigns, 1)
	assert.Equal(t, "Founders", result.Campaigns[0].Name)
	assert.Equal(t, 0, ingestorFake.called, "repeat run must not re-ingest")
}
