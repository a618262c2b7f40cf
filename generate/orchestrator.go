// ABOUTME: Parallel campaign generation orchestrator for leads, template, and cadence
// ABOUTME: Three independent units with per-unit state and isolated retry
package generate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
)

// Unit names one of the three generated artifacts.
type Unit string

const (
	UnitLeads    Unit = "leads"
	UnitTemplate Unit = "template"
	UnitCadence  Unit = "cadence"
)

// Units lists all units in display order.
var Units = []Unit{UnitLeads, UnitTemplate, UnitCadence}

// Status is a unit's lifecycle. A unit is in exactly one status at a time;
// there is no separate loading flag to fall out of sync with the result.
type Status string

const (
	StatusPending Status = "pending"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// UnitState is one unit's tagged state. Err is set only when Status is
// StatusFailed.
type UnitState struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of a generation session, safe to hand to
// other goroutines.
type Snapshot struct {
	CampaignID uuid.UUID           `json:"campaign_id"`
	Units      map[Unit]UnitState  `json:"units"`
	Leads      []models.Lead       `json:"leads,omitempty"`
	Template   *models.Template    `json:"template,omitempty"`
	Cadence    *models.Cadence     `json:"cadence,omitempty"`
}

// AllSettled reports whether every unit has either succeeded or failed.
func (s Snapshot) AllSettled() bool {
	for _, unit := range Units {
		state := s.Units[unit]
		if state.Status != StatusSuccess && state.Status != StatusFailed {
			return false
		}
	}
	return true
}

// Proceedable reports whether the user may move on: everything settled and
// at least one unit actually produced something. Three failures settle the
// session but do not unlock it.
func (s Snapshot) Proceedable() bool {
	if !s.AllSettled() {
		return false
	}
	for _, unit := range Units {
		if s.Units[unit].Status == StatusSuccess {
			return true
		}
	}
	return false
}

// generator is the slice of the backend client the orchestrator needs.
type generator interface {
	GenerateLeads(ctx context.Context, userID, campaignID, query string, limit int) ([]models.Lead, error)
	GenerateTemplate(ctx context.Context, userID, campaignID, cta, stylePrompt string, sampleEmails []string) (*models.Template, error)
	GenerateCadence(ctx context.Context, userID, campaignID, stylePrompt string, sampleEmails []string, timing []int) (*models.Cadence, error)
}

// Params tunes one generation session.
type Params struct {
	CallToAction string
	LeadLimit    int
	Timing       []int
	SampleLimit  int
}

const (
	defaultLeadLimit   = 25
	defaultSampleLimit = 10
)

// Follow-up days after the initial send.
var defaultTiming = []int{2, 5, 9}

func (p Params) withDefaults() Params {
	if p.LeadLimit <= 0 {
		p.LeadLimit = defaultLeadLimit
	}
	if p.SampleLimit <= 0 {
		p.SampleLimit = defaultSampleLimit
	}
	if len(p.Timing) == 0 {
		p.Timing = defaultTiming
	}
	return p
}

// session is one campaign's in-flight generation state. It is volatile:
// results are persisted to the database as each unit lands, and the session
// itself is rebuilt from scratch when Start is called again.
type session struct {
	campaign *models.Campaign
	params   Params
	samples  []string
	units    map[Unit]UnitState
	// epochs tags each launch of a unit so a superseded in-flight run
	// cannot settle the state a later Start or Retry owns.
	epochs   map[Unit]int
	leads    []models.Lead
	template *models.Template
	cadence  *models.Cadence
}

// Orchestrator runs generation sessions. All three units for a campaign are
// launched together; each settles on its own and a unit's failure never
// touches its siblings.
type Orchestrator struct {
	database *sql.DB
	client   generator

	mu        sync.Mutex
	sessions  map[uuid.UUID]*session
	nextEpoch int
	onChange  func(Snapshot)
}

// NewOrchestrator creates an orchestrator. onChange (optional) fires after
// every unit transition with a fresh snapshot.
func NewOrchestrator(database *sql.DB, client generator, onChange func(Snapshot)) *Orchestrator {
	return &Orchestrator{
		database: database,
		client:   client,
		sessions: make(map[uuid.UUID]*session),
		onChange: onChange,
	}
}

// Start begins a generation session for a campaign. The campaign row is
// loaded and confirmed before any unit launches, so no unit can reference a
// campaign id that is not yet persisted. A second Start for the same
// campaign discards the previous session's state.
func (o *Orchestrator) Start(ctx context.Context, campaignID uuid.UUID, params Params) error {
	campaign, err := db.GetCampaign(o.database, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found", campaignID)
	}

	samples, err := o.sampleBodies(campaign.UserID, params)
	if err != nil {
		return err
	}

	o.mu.Lock()
	s := &session{
		campaign: campaign,
		params:   params.withDefaults(),
		samples:  samples,
		units: map[Unit]UnitState{
			UnitLeads:    {Status: StatusLoading},
			UnitTemplate: {Status: StatusLoading},
			UnitCadence:  {Status: StatusLoading},
		},
		epochs: map[Unit]int{},
	}
	epochs := make(map[Unit]int, len(Units))
	for _, unit := range Units {
		o.nextEpoch++
		s.epochs[unit] = o.nextEpoch
		epochs[unit] = o.nextEpoch
	}
	o.sessions[campaignID] = s
	o.mu.Unlock()
	o.notify(campaignID)

	// Start returns before the units settle; they must outlive the request
	// that launched them so results keep landing in the store.
	launchCtx := context.WithoutCancel(ctx)
	for _, unit := range Units {
		go o.runUnit(launchCtx, campaignID, unit, epochs[unit])
	}
	return nil
}

// Retry re-runs a single unit. Only that unit's state is reset; the other
// two keep whatever they settled on.
func (o *Orchestrator) Retry(ctx context.Context, campaignID uuid.UUID, unit Unit) error {
	o.mu.Lock()
	s, ok := o.sessions[campaignID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("no generation session for campaign %s", campaignID)
	}
	if _, known := s.units[unit]; !known {
		o.mu.Unlock()
		return fmt.Errorf("unknown generation unit %q", unit)
	}
	s.units[unit] = UnitState{Status: StatusLoading}
	o.nextEpoch++
	s.epochs[unit] = o.nextEpoch
	epoch := s.epochs[unit]
	switch unit {
	case UnitLeads:
		s.leads = nil
	case UnitTemplate:
		s.template = nil
	case UnitCadence:
		s.cadence = nil
	}
	o.mu.Unlock()
	o.notify(campaignID)

	go o.runUnit(context.WithoutCancel(ctx), campaignID, unit, epoch)
	return nil
}

// Snapshot returns the current state of a campaign's session, or false if
// no session exists.
func (o *Orchestrator) Snapshot(campaignID uuid.UUID) (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[campaignID]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(campaignID), true
}

func (s *session) snapshot(campaignID uuid.UUID) Snapshot {
	units := make(map[Unit]UnitState, len(s.units))
	for unit, state := range s.units {
		units[unit] = state
	}
	snap := Snapshot{
		CampaignID: campaignID,
		Units:      units,
		Template:   s.template,
		Cadence:    s.cadence,
	}
	if s.leads != nil {
		snap.Leads = append([]models.Lead(nil), s.leads...)
	}
	return snap
}

// runUnit executes one unit to completion. Errors end at this boundary:
// they become the unit's Failed state, never a panic or a sibling's problem.
func (o *Orchestrator) runUnit(ctx context.Context, campaignID uuid.UUID, unit Unit, epoch int) {
	o.mu.Lock()
	s, ok := o.sessions[campaignID]
	if !ok {
		o.mu.Unlock()
		return
	}
	campaign := s.campaign
	params := s.params
	samples := s.samples
	o.mu.Unlock()

	userID := campaign.UserID.String()
	var err error
	var leads []models.Lead
	var template *models.Template
	var cadence *models.Cadence

	switch unit {
	case UnitLeads:
		leads, err = o.client.GenerateLeads(ctx, userID, campaignID.String(), campaign.Query, params.LeadLimit)
		if err == nil {
			err = db.SaveLeads(o.database, campaignID, leads)
		}
	case UnitTemplate:
		template, err = o.client.GenerateTemplate(ctx, userID, campaignID.String(), params.CallToAction, campaign.StylePrompt, samples)
		if err == nil {
			template.CampaignID = campaignID
			err = db.SaveTemplate(o.database, template)
		}
	case UnitCadence:
		cadence, err = o.client.GenerateCadence(ctx, userID, campaignID.String(), campaign.StylePrompt, samples, params.Timing)
		if err == nil {
			cadence.CampaignID = campaignID
			err = db.SaveCadence(o.database, cadence)
		}
	}

	o.mu.Lock()
	s, ok = o.sessions[campaignID]
	if !ok {
		o.mu.Unlock()
		return
	}
	if s.epochs[unit] != epoch {
		// A newer Start or Retry superseded this run; its result wins.
		o.mu.Unlock()
		return
	}
	if err != nil {
		s.units[unit] = UnitState{Status: StatusFailed, Err: err.Error()}
	} else {
		s.units[unit] = UnitState{Status: StatusSuccess}
		switch unit {
		case UnitLeads:
			s.leads = leads
		case UnitTemplate:
			s.template = template
		case UnitCadence:
			s.cadence = cadence
		}
	}
	o.mu.Unlock()
	o.notify(campaignID)
}

func (o *Orchestrator) sampleBodies(userID uuid.UUID, params Params) ([]string, error) {
	limit := params.SampleLimit
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	emails, err := db.FindEmails(o.database, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample emails: %w", err)
	}
	samples := make([]string, 0, len(emails))
	for _, email := range emails {
		if email.Body != "" {
			samples = append(samples, email.Body)
		}
	}
	return samples, nil
}

func (o *Orchestrator) notify(campaignID uuid.UUID) {
	if o.onChange == nil {
		return
	}
	if snap, ok := o.Snapshot(campaignID); ok {
		o.onChange(snap)
	}
}
