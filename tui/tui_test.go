// ABOUTME: Tests for the onboarding TUI model's view transitions
// ABOUTME: Drives Update with progress events and keys, asserting reducer state
package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/models"
	"github.com/harperreed/skiff/onboarding"
)

// fakeRequester records bus actions without a live daemon.
type fakeRequester struct {
	mu      sync.Mutex
	actions []bus.Action
}

func (f *fakeRequester) Request(ctx context.Context, action bus.Action, payload any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeRequester) count(action bus.Action) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if a == action {
			n++
		}
	}
	return n
}

func newTestModel(requester *fakeRequester) Model {
	events := make(chan bus.ProgressEvent)
	close(events)
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	return NewModel(nil, requester, events, user)
}

// runCmds executes returned commands so bus requests land on the fake. Batch
// commands are unpacked; resulting messages are discarded.
func runCmds(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			runCmds(sub)
		}
	}
}

func answerAllQuestions(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for i := 0; i < len(questions); i++ {
		m.questionnaire.input.SetValue("answer")
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = next.(Model)
	}
	return m, cmd
}

func TestFetchProgressUpdatesCounters(t *testing.T) {
	m := newTestModel(&fakeRequester{})

	next, _ := m.Update(ProgressMsg{Step: models.StepFetching, Fetched: 5, Total: 7})
	m = next.(Model)

	if m.viewMode != ViewQuestionnaire {
		t.Errorf("Expected questionnaire view during fetch, got %d", m.viewMode)
	}
	if m.fetched != 5 || m.total != 7 {
		t.Errorf("Expected progress 5/7, got %d/%d", m.fetched, m.total)
	}
}

func TestBackendFirstThenQuestionnaire(t *testing.T) {
	requester := &fakeRequester{}
	m := newTestModel(requester)

	// Backend finishes while the user is still answering
	next, _ := m.Update(ProgressMsg{
		Step:          models.StepBackendComplete,
		EmailCount:    42,
		CampaignCount: 1,
		CampaignIDs:   []string{uuid.New().String()},
	})
	m = next.(Model)

	if m.viewMode != ViewQuestionnaire {
		t.Errorf("Backend completion must not interrupt the questionnaire, got view %d", m.viewMode)
	}
	if !m.state.Backend.Complete {
		t.Error("Expected backend track complete")
	}
	if m.state.Finalized {
		t.Error("Must not finalize before the questionnaire is done")
	}

	m, cmd := answerAllQuestions(t, m)
	runCmds(cmd)

	if m.state.Phase() != onboarding.PhaseBothDone {
		t.Errorf("Expected both-done, got %s", m.state.Phase())
	}
	if m.viewMode != ViewGeneration {
		t.Errorf("Expected generation view after join, got %d", m.viewMode)
	}
	if got := requester.count(bus.ActionCompleteOnboarding); got != 1 {
		t.Errorf("Expected exactly one finalize request, got %d", got)
	}
	if got := requester.count(bus.ActionStartGeneration); got != 1 {
		t.Errorf("Expected one startGeneration request, got %d", got)
	}
}

func TestQuestionnaireFirstHoldsForBackend(t *testing.T) {
	requester := &fakeRequester{}
	m := newTestModel(requester)

	m, cmd := answerAllQuestions(t, m)
	runCmds(cmd)

	if m.viewMode != ViewWaiting {
		t.Errorf("Expected waiting view while backend runs, got %d", m.viewMode)
	}
	if m.state.Finalized {
		t.Error("Must not finalize before the backend is done")
	}

	next, _ := m.Update(ProgressMsg{Step: models.StepBackendComplete, EmailCount: 10})
	m = next.(Model)

	if !m.state.Finalized {
		t.Error("Expected finalize after backend completion")
	}
	// No campaigns found: straight to done
	if m.viewMode != ViewDone {
		t.Errorf("Expected done view with zero campaigns, got %d", m.viewMode)
	}
}

func TestBackendErrorShowsErrorView(t *testing.T) {
	m := newTestModel(&fakeRequester{})

	next, _ := m.Update(ProgressMsg{Step: models.StepError, Message: "gmail unavailable"})
	m = next.(Model)

	if m.viewMode != ViewError {
		t.Errorf("Expected error view, got %d", m.viewMode)
	}
	if m.errMessage != "gmail unavailable" {
		t.Errorf("Expected error message, got %q", m.errMessage)
	}

	// Try again restarts the backend track and returns to the questionnaire
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = next.(Model)

	if m.viewMode != ViewQuestionnaire {
		t.Errorf("Expected questionnaire view after retry, got %d", m.viewMode)
	}
}

func TestDuplicateBackendCompleteDoesNotDoubleFinalize(t *testing.T) {
	requester := &fakeRequester{}
	m := newTestModel(requester)

	m, cmd := answerAllQuestions(t, m)
	runCmds(cmd)

	for i := 0; i < 2; i++ {
		next, c := m.Update(ProgressMsg{Step: models.StepBackendComplete, EmailCount: 10})
		m = next.(Model)
		runCmds(c)
	}

	if got := requester.count(bus.ActionCompleteOnboarding); got != 1 {
		t.Errorf("Expected exactly one finalize request, got %d", got)
	}
}
