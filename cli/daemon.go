// ABOUTME: Background-context daemon wiring for the message bus
// ABOUTME: Registers all request/response handlers over the database and backend client
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harperreed/skiff/auth"
	"github.com/harperreed/skiff/backend"
	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/generate"
	"github.com/harperreed/skiff/ingest"
	"github.com/harperreed/skiff/models"
	"github.com/harperreed/skiff/onboarding"
	"github.com/harperreed/skiff/session"
)

// Daemon runs the privileged background context: it owns the database, the
// backend client, and the generation orchestrator, and answers bus requests
// from whatever foreground is attached.
type Daemon struct {
	db           *sql.DB
	cfg          *config.Config
	dispatcher   *bus.Dispatcher
	client       *backend.Client
	orchestrator *generate.Orchestrator
	cache        *session.Cache

	mu                sync.Mutex
	onboardingRunning bool
}

// NewDaemon wires a daemon over an open database. cache may be nil when the
// ephemeral session store is unavailable; sign-out then only clears tokens.
func NewDaemon(database *sql.DB, cfg *config.Config, cache *session.Cache) *Daemon {
	client := backend.NewClient(cfg.BackendURL)
	d := &Daemon{
		db:           database,
		cfg:          cfg,
		dispatcher:   bus.NewDispatcher(),
		client:       client,
		orchestrator: generate.NewOrchestrator(database, client, nil),
		cache:        cache,
	}
	d.register()
	return d
}

// Dispatcher exposes the bus for in-process foregrounds and transports.
func (d *Daemon) Dispatcher() *bus.Dispatcher {
	return d.dispatcher
}

func (d *Daemon) register() {
	d.dispatcher.Handle(bus.ActionCheckOnboardingStatus, d.handleCheckOnboardingStatus)
	d.dispatcher.Handle(bus.ActionStartOnboarding, d.handleStartOnboarding)
	d.dispatcher.Handle(bus.ActionSubmitQuestionnaire, d.handleSubmitQuestionnaire)
	d.dispatcher.Handle(bus.ActionCompleteOnboarding, d.handleCompleteOnboarding)
	d.dispatcher.Handle(bus.ActionGetCampaigns, d.handleGetCampaigns)
	d.dispatcher.Handle(bus.ActionStartGeneration, d.handleStartGeneration)
	d.dispatcher.Handle(bus.ActionRetryUnit, d.handleRetryUnit)
	d.dispatcher.Handle(bus.ActionGenerationStatus, d.handleGenerationStatus)
	d.dispatcher.Handle(bus.ActionSignOut, d.handleSignOut)
}

type userPayload struct {
	UserID string `json:"user_id"`
}

type campaignPayload struct {
	CampaignID   string `json:"campaign_id"`
	CallToAction string `json:"call_to_action,omitempty"`
}

type retryPayload struct {
	CampaignID string `json:"campaign_id"`
	Unit       string `json:"unit"`
}

type questionnairePayload struct {
	UserID  string                      `json:"user_id"`
	Answers models.QuestionnaireAnswers `json:"answers"`
}

type onboardingStatusResult struct {
	Complete      bool   `json:"complete"`
	EmailCount    int    `json:"email_count"`
	CampaignCount int    `json:"campaign_count"`
	PipelineState string `json:"pipeline_state"`
	PipelineError string `json:"pipeline_error,omitempty"`
}

func (d *Daemon) handleCheckOnboardingStatus(ctx context.Context, payload json.RawMessage) (any, error) {
	userID, err := decodeUserID(payload)
	if err != nil {
		return nil, err
	}

	user, err := db.GetUser(d.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	emailCount, err := db.CountEmails(d.db, userID)
	if err != nil {
		return nil, err
	}
	campaignCount, err := db.CountCampaigns(d.db, userID)
	if err != nil {
		return nil, err
	}

	result := onboardingStatusResult{
		Complete:      user.OnboardingComplete,
		EmailCount:    emailCount,
		CampaignCount: campaignCount,
		PipelineState: models.PipelineIdle,
	}
	state, err := db.GetPipelineState(d.db, "onboarding")
	if err != nil {
		return nil, err
	}
	if state != nil {
		result.PipelineState = state.Status
		if state.ErrorMessage != nil {
			result.PipelineError = *state.ErrorMessage
		}
	}
	return result, nil
}

// handleStartOnboarding launches the backend track in the background and
// returns immediately; progress flows over the broadcast channel. A second
// start while one is running is a no-op.
func (d *Daemon) handleStartOnboarding(ctx context.Context, payload json.RawMessage) (any, error) {
	userID, err := decodeUserID(payload)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.onboardingRunning {
		d.mu.Unlock()
		return map[string]bool{"started": false}, nil
	}
	d.onboardingRunning = true
	d.mu.Unlock()

	// The foreground may tear down mid-run; the track continues and
	// persists regardless.
	go func() {
		defer func() {
			d.mu.Lock()
			d.onboardingRunning = false
			d.mu.Unlock()
		}()
		d.runOnboarding(context.Background(), userID)
	}()

	return map[string]bool{"started": true}, nil
}

func (d *Daemon) runOnboarding(ctx context.Context, userID uuid.UUID) {
	d.dispatcher.Broadcast(bus.ProgressEvent{Step: models.StepAuth})

	token, err := auth.SilentToken(ctx)
	if err != nil {
		msg := fmt.Sprintf("authentication failed: %v", err)
		_ = db.UpdatePipelineStatus(d.db, "onboarding", models.PipelineError, &msg)
		d.dispatcher.Broadcast(bus.ProgressEvent{Step: models.StepError, Message: msg})
		return
	}

	service, err := ingest.NewGmailService(ctx, token)
	if err != nil {
		msg := fmt.Sprintf("failed to create Gmail client: %v", err)
		_ = db.UpdatePipelineStatus(d.db, "onboarding", models.PipelineError, &msg)
		d.dispatcher.Broadcast(bus.ProgressEvent{Step: models.StepError, Message: msg})
		return
	}

	pipeline := ingest.New(d.db, ingest.NewGmailSource(service))
	runner := onboarding.NewRunner(d.db, d.client, pipeline, d.dispatcher)
	_, _ = runner.Run(ctx, userID)
}

func (d *Daemon) handleSubmitQuestionnaire(ctx context.Context, payload json.RawMessage) (any, error) {
	var p questionnairePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}

	if err := db.SaveQuestionnaire(d.db, userID, p.Answers); err != nil {
		return nil, err
	}
	return map[string]bool{"saved": true}, nil
}

// handleCompleteOnboarding is the finalize action: persist the flag and
// rehydrate the session hint.
func (d *Daemon) handleCompleteOnboarding(ctx context.Context, payload json.RawMessage) (any, error) {
	userID, err := decodeUserID(payload)
	if err != nil {
		return nil, err
	}

	user, err := db.GetUser(d.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	if err := db.SetOnboardingComplete(d.db, userID); err != nil {
		return nil, err
	}

	if d.cache != nil {
		_ = d.cache.Put(&session.Hint{
			UserID:             userID,
			UserEmail:          user.Email,
			OnboardingComplete: true,
		})
	}
	return map[string]bool{"complete": true}, nil
}

func (d *Daemon) handleGetCampaigns(ctx context.Context, payload json.RawMessage) (any, error) {
	userID, err := decodeUserID(payload)
	if err != nil {
		return nil, err
	}

	campaigns, err := db.FindCampaigns(d.db, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"campaigns": campaigns}, nil
}

func (d *Daemon) handleStartGeneration(ctx context.Context, payload json.RawMessage) (any, error) {
	var p campaignPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	campaignID, err := uuid.Parse(p.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign_id: %w", err)
	}

	params := generate.Params{CallToAction: p.CallToAction}
	if params.CallToAction == "" {
		// Fall back to the questionnaire's call to action
		campaign, err := db.GetCampaign(d.db, campaignID)
		if err == nil && campaign != nil {
			if answers, err := db.GetQuestionnaire(d.db, campaign.UserID); err == nil && answers != nil {
				params.CallToAction = answers.CallToAction
			}
		}
	}

	if err := d.orchestrator.Start(ctx, campaignID, params); err != nil {
		return nil, err
	}
	return map[string]bool{"started": true}, nil
}

func (d *Daemon) handleRetryUnit(ctx context.Context, payload json.RawMessage) (any, error) {
	var p retryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	campaignID, err := uuid.Parse(p.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign_id: %w", err)
	}

	if err := d.orchestrator.Retry(ctx, campaignID, generate.Unit(p.Unit)); err != nil {
		return nil, err
	}
	return map[string]bool{"retried": true}, nil
}

type generationStatusResult struct {
	Units []struct {
		Unit   string `json:"unit"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"units"`
	AllSettled  bool `json:"all_settled"`
	Proceedable bool `json:"proceedable"`
}

func (d *Daemon) handleGenerationStatus(ctx context.Context, payload json.RawMessage) (any, error) {
	var p campaignPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	campaignID, err := uuid.Parse(p.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign_id: %w", err)
	}

	snap, ok := d.orchestrator.Snapshot(campaignID)
	if !ok {
		return nil, fmt.Errorf("no generation session for campaign %s", p.CampaignID)
	}

	var result generationStatusResult
	result.AllSettled = snap.AllSettled()
	result.Proceedable = snap.Proceedable()
	for _, unit := range generate.Units {
		state := snap.Units[unit]
		result.Units = append(result.Units, struct {
			Unit   string `json:"unit"`
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}{Unit: string(unit), Status: string(state.Status), Error: state.Err})
	}
	return result, nil
}

// handleSignOut revokes the provider token and clears every local trace of
// the session. Provider-side revoke failure still clears local state.
func (d *Daemon) handleSignOut(ctx context.Context, payload json.RawMessage) (any, error) {
	token, err := auth.LoadToken()
	if err != nil {
		token = nil
	}

	revokeErr := auth.Revoke(ctx, token)
	if d.cache != nil {
		_ = d.cache.Clear()
	}
	if revokeErr != nil {
		return nil, revokeErr
	}
	return map[string]bool{"signed_out": true}, nil
}

func decodeUserID(payload json.RawMessage) (uuid.UUID, error) {
	var p userPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return uuid.Nil, fmt.Errorf("invalid payload: %w", err)
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id: %w", err)
	}
	return userID, nil
}
