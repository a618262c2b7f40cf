// ABOUTME: Dual-track onboarding state machine with a pure reducer
// ABOUTME: Joins questionnaire and backend completion and finalizes exactly once
package onboarding

import (
	"sync"

	"github.com/harperreed/skiff/models"
)

// Phase is the derived join of the two tracks.
type Phase string

const (
	PhaseNeitherDone           Phase = "neither-done"
	PhaseQuestionnaireOnlyDone Phase = "questionnaire-only-done"
	PhaseBackendOnlyDone       Phase = "backend-only-done"
	PhaseBothDone              Phase = "both-done"
)

// QuestionnaireTrack is owned by the foreground UI context.
type QuestionnaireTrack struct {
	Complete bool
	Answers  models.QuestionnaireAnswers
}

// BackendTrack is owned by background progress events.
type BackendTrack struct {
	Complete         bool
	Failed           bool
	Error            string
	EmailCount       int
	CampaignsCreated int
	CampaignIDs      []string
}

// State is the whole synchronizer state. The reducer owns all writes; the
// tracks themselves are only mutated through events.
type State struct {
	Questionnaire QuestionnaireTrack
	Backend       BackendTrack
	Finalized     bool
}

// Phase computes the join of the two tracks.
func (s State) Phase() Phase {
	switch {
	case s.Questionnaire.Complete && s.Backend.Complete:
		return PhaseBothDone
	case s.Questionnaire.Complete:
		return PhaseQuestionnaireOnlyDone
	case s.Backend.Complete:
		return PhaseBackendOnlyDone
	default:
		return PhaseNeitherDone
	}
}

// Event is one track's completion (or failure) report.
type Event interface{ isEvent() }

type QuestionnaireCompleted struct {
	Answers models.QuestionnaireAnswers
}

type BackendCompleted struct {
	EmailCount       int
	CampaignsCreated int
	CampaignIDs      []string
}

type BackendFailed struct {
	Error string
}

func (QuestionnaireCompleted) isEvent() {}
func (BackendCompleted) isEvent()       {}
func (BackendFailed) isEvent()          {}

// Reduce applies one event and reports whether this transition crossed into
// both-done. The bool is true at most once over any event sequence: the
// single place the finalize action may fire from.
func Reduce(s State, event Event) (State, bool) {
	switch e := event.(type) {
	case QuestionnaireCompleted:
		s.Questionnaire.Complete = true
		s.Questionnaire.Answers = e.Answers
	case BackendCompleted:
		s.Backend.Complete = true
		s.Backend.Failed = false
		s.Backend.Error = ""
		s.Backend.EmailCount = e.EmailCount
		s.Backend.CampaignsCreated = e.CampaignsCreated
		s.Backend.CampaignIDs = e.CampaignIDs
	case BackendFailed:
		s.Backend.Failed = true
		s.Backend.Error = e.Error
	}

	if s.Phase() == PhaseBothDone && !s.Finalized {
		s.Finalized = true
		return s, true
	}
	return s, false
}

// Synchronizer serializes events from both contexts through the reducer and
// runs the finalize action exactly once.
type Synchronizer struct {
	mu       sync.Mutex
	state    State
	finalize func(State)
	onChange func(State)
}

// NewSynchronizer creates a synchronizer. finalize runs exactly once, when
// both tracks have completed; onChange (optional) runs after every applied
// event.
func NewSynchronizer(finalize func(State), onChange func(State)) *Synchronizer {
	return &Synchronizer{finalize: finalize, onChange: onChange}
}

// Apply feeds one event through the reducer.
func (s *Synchronizer) Apply(event Event) {
	s.mu.Lock()
	next, fire := Reduce(s.state, event)
	s.state = next
	s.mu.Unlock()

	if fire && s.finalize != nil {
		s.finalize(next)
	}
	if s.onChange != nil {
		s.onChange(next)
	}
}

// State returns a snapshot.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
