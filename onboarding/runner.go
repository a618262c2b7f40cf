// ABOUTME: Backend onboarding track: ingest, cluster, and enrich with graceful degradation
// ABOUTME: Fatal ingest, non-fatal clustering, non-fatal enrichment; progress over the bus
package onboarding

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/harperreed/skiff/backend"
	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/ingest"
	"github.com/harperreed/skiff/models"
)

const (
	pipelineName     = "onboarding"
	defaultMaxEmails = 200
)

// analysisClient is the slice of the backend service the runner needs.
type analysisClient interface {
	Cluster(ctx context.Context, userID string) ([]backend.ClusterResult, error)
	Analyze(ctx context.Context, userID string) (*backend.AnalyzeResult, error)
}

// ingestor is the slice of the mail pipeline the runner needs.
type ingestor interface {
	FetchAndPersist(ctx context.Context, userID uuid.UUID, maxCount int, onProgress ingest.Progress) (int, error)
}

// Result is what the backend track reports into the synchronizer.
type Result struct {
	EmailCount int
	Campaigns  []models.Campaign
}

// Runner executes the backend onboarding track. It runs in the privileged
// background context and pushes progress over the dispatcher's broadcast
// channel; it never depends on the foreground still listening.
type Runner struct {
	database   *sql.DB
	analysis   analysisClient
	pipeline   ingestor
	dispatcher *bus.Dispatcher
	maxEmails  int
}

func NewRunner(database *sql.DB, analysis analysisClient, pipeline ingestor, dispatcher *bus.Dispatcher) *Runner {
	return &Runner{
		database:   database,
		analysis:   analysis,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		maxEmails:  defaultMaxEmails,
	}
}

// Run executes the backend track for a user. Failure ladder: a failed
// ingest aborts the track; failed clustering degrades to zero campaigns;
// failed enrichment keeps the raw clusters. Partial success is reported as
// success with whatever was produced.
func (r *Runner) Run(ctx context.Context, userID uuid.UUID) (*Result, error) {
	r.broadcast(bus.ProgressEvent{Step: models.StepSetup})

	if err := db.UpdatePipelineStatus(r.database, pipelineName, models.PipelineRunning, nil); err != nil {
		return r.fail(fmt.Errorf("failed to mark pipeline running: %w", err))
	}

	// Campaigns already existing means a previous run got this far;
	// repeat invocations (e.g. reload mid-flow) stay idempotent.
	existing, err := db.FindCampaigns(r.database, userID)
	if err != nil {
		return r.fail(fmt.Errorf("failed to check existing campaigns: %w", err))
	}
	if len(existing) > 0 {
		count, err := db.CountEmails(r.database, userID)
		if err != nil {
			return r.fail(fmt.Errorf("failed to count emails: %w", err))
		}
		result := &Result{EmailCount: count, Campaigns: existing}
		r.complete(result)
		return result, nil
	}

	// Ingest is the one required stage
	r.broadcast(bus.ProgressEvent{Step: models.StepFetching})
	count, err := r.pipeline.FetchAndPersist(ctx, userID, r.maxEmails, func(fetched, total int) {
		r.broadcast(bus.ProgressEvent{Step: models.StepFetching, Fetched: fetched, Total: total})
	})
	if err != nil {
		return r.fail(fmt.Errorf("email ingestion failed: %w", err))
	}
	r.broadcast(bus.ProgressEvent{Step: models.StepSaving, Fetched: count, Total: count})

	campaigns := r.clusterAndEnrich(ctx, userID)

	result := &Result{EmailCount: count, Campaigns: campaigns}
	r.complete(result)
	return result, nil
}

// clusterAndEnrich runs the degradable stages. It never returns an error:
// the worst outcome is zero campaigns.
func (r *Runner) clusterAndEnrich(ctx context.Context, userID uuid.UUID) []models.Campaign {
	r.broadcast(bus.ProgressEvent{Step: models.StepClustering})

	clusters, err := r.analysis.Cluster(ctx, userID.String())
	if err != nil {
		// Non-fatal: persisted emails survive, the flow continues empty
		fmt.Printf("  ✗ Clustering failed, continuing with zero campaigns: %v\n", err)
		return nil
	}

	var campaigns []models.Campaign
	for _, cluster := range clusters {
		campaign := models.Campaign{
			UserID:      userID,
			Name:        cluster.Name,
			Description: cluster.Description,
			Query:       cluster.Query,
		}
		if err := db.CreateCampaign(r.database, &campaign); err != nil {
			fmt.Printf("  ✗ Failed to save campaign %q: %v\n", cluster.Name, err)
			continue
		}
		campaigns = append(campaigns, campaign)
	}

	analysis, err := r.analysis.Analyze(ctx, userID.String())
	if err != nil {
		// Non-fatal: raw clusters stand without enrichment
		fmt.Printf("  ✗ Analysis failed, keeping raw clusters: %v\n", err)
		return campaigns
	}

	if analysis != nil && analysis.StylePrompt != "" {
		for i := range campaigns {
			if err := db.UpdateCampaignStyle(r.database, campaigns[i].ID, analysis.StylePrompt); err != nil {
				fmt.Printf("  ✗ Failed to enrich campaign %q: %v\n", campaigns[i].Name, err)
				continue
			}
			campaigns[i].StylePrompt = analysis.StylePrompt
		}
	}

	return campaigns
}

func (r *Runner) complete(result *Result) {
	_ = db.UpdatePipelineStatus(r.database, pipelineName, models.PipelineIdle, nil)

	ids := make([]string, 0, len(result.Campaigns))
	for _, campaign := range result.Campaigns {
		ids = append(ids, campaign.ID.String())
	}
	r.broadcast(bus.ProgressEvent{
		Step:          models.StepBackendComplete,
		EmailCount:    result.EmailCount,
		CampaignCount: len(result.Campaigns),
		CampaignIDs:   ids,
	})
}

func (r *Runner) fail(err error) (*Result, error) {
	msg := err.Error()
	_ = db.UpdatePipelineStatus(r.database, pipelineName, models.PipelineError, &msg)
	r.broadcast(bus.ProgressEvent{Step: models.StepError, Message: msg})
	return nil, err
}

func (r *Runner) broadcast(event bus.ProgressEvent) {
	if r.dispatcher != nil {
		r.dispatcher.Broadcast(event)
	}
}
