// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Drives the onboarding questionnaire, backend progress, and generation views
package tui

import (
	"context"
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/skiff/bus"
	"github.com/harperreed/skiff/models"
	"github.com/harperreed/skiff/onboarding"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewQuestionnaire ViewMode = iota
	ViewWaiting
	ViewGeneration
	ViewError
	ViewDone
)

// ProgressMsg carries one backend progress event into the update loop.
type ProgressMsg bus.ProgressEvent

// eventsClosedMsg is sent when the progress subscription closes.
type eventsClosedMsg struct{}

// generationMsg carries a generation status poll result.
type generationMsg struct {
	status busGenerationStatus
	err    error
}

// requestDoneMsg reports a fire-and-forget bus request's outcome.
type requestDoneMsg struct {
	action bus.Action
	err    error
}

// Model is the main bubbletea model
type Model struct {
	db        *sql.DB
	requester bus.Requester
	events    <-chan bus.ProgressEvent
	user      *models.User

	viewMode ViewMode

	// Onboarding state: the reducer owns the dual-track join
	state onboarding.State

	// Questionnaire view state
	questionnaire questionnaireState

	// Backend progress state
	lastStep string
	fetched  int
	total    int

	// Generation view state
	campaignIDs  []string
	campaignIdx  int
	generation   *busGenerationStatus
	selectedUnit int

	// Error view state
	errMessage string

	// UI state
	width  int
	height int
}

// NewModel creates a TUI model. events must already be subscribed so no
// broadcast between construction and the first Update is lost.
func NewModel(database *sql.DB, requester bus.Requester, events <-chan bus.ProgressEvent, user *models.User) Model {
	return Model{
		db:            database,
		requester:     requester,
		events:        events,
		user:          user,
		viewMode:      ViewQuestionnaire,
		questionnaire: newQuestionnaireState(),
		width:         80,
		height:        24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenForEvents(),
		m.requestCmd(bus.ActionStartOnboarding, map[string]string{"user_id": m.user.ID.String()}),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case ProgressMsg:
		return m.handleProgress(bus.ProgressEvent(msg))
	case eventsClosedMsg:
		return m, nil
	case generationMsg:
		return m.handleGenerationStatus(msg)
	case requestDoneMsg:
		if msg.err != nil && msg.action == bus.ActionStartOnboarding {
			m.viewMode = ViewError
			m.errMessage = msg.err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewQuestionnaire:
		return m.renderQuestionnaireView()
	case ViewWaiting:
		return m.renderWaitingView()
	case ViewGeneration:
		return m.renderGenerationView()
	case ViewError:
		return m.renderErrorView()
	case ViewDone:
		return m.renderDoneView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewQuestionnaire:
		return m.handleQuestionnaireKeys(msg)
	case ViewGeneration:
		return m.handleGenerationKeys(msg)
	case ViewError:
		return m.handleErrorKeys(msg)
	case ViewDone:
		if msg.String() == "q" || msg.String() == "enter" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// handleProgress folds one backend event into the reducer and moves views
// accordingly. The questionnaire never gets interrupted: a backend that
// finishes first just waits for the user.
func (m Model) handleProgress(event bus.ProgressEvent) (tea.Model, tea.Cmd) {
	m.lastStep = event.Step
	if event.Step == models.StepFetching {
		m.fetched = event.Fetched
		m.total = event.Total
	}

	var cmds []tea.Cmd
	cmds = append(cmds, m.listenForEvents())

	switch event.Step {
	case models.StepBackendComplete:
		m.campaignIDs = event.CampaignIDs
		var fire bool
		m.state, fire = onboarding.Reduce(m.state, onboarding.BackendCompleted{
			EmailCount:       event.EmailCount,
			CampaignsCreated: event.CampaignCount,
			CampaignIDs:      event.CampaignIDs,
		})
		if fire {
			cmds = append(cmds, m.finalizeCmd())
			return m.enterGeneration(cmds)
		}
	case models.StepError:
		m.state, _ = onboarding.Reduce(m.state, onboarding.BackendFailed{Error: event.Message})
		m.viewMode = ViewError
		m.errMessage = event.Message
	}

	return m, tea.Batch(cmds...)
}

// completeQuestionnaire is called by the questionnaire view when the last
// answer is submitted.
func (m Model) completeQuestionnaire() (tea.Model, tea.Cmd) {
	answers := m.questionnaire.answers()
	var fire bool
	m.state, fire = onboarding.Reduce(m.state, onboarding.QuestionnaireCompleted{Answers: answers})

	cmds := []tea.Cmd{
		m.requestCmd(bus.ActionSubmitQuestionnaire, map[string]any{
			"user_id": m.user.ID.String(),
			"answers": answers,
		}),
	}

	if fire {
		cmds = append(cmds, m.finalizeCmd())
		return m.enterGeneration(cmds)
	}

	// Backend still running: hold until it reports in
	m.viewMode = ViewWaiting
	return m, tea.Batch(cmds...)
}

func (m Model) enterGeneration(cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if len(m.campaignIDs) == 0 {
		m.viewMode = ViewDone
		return m, tea.Batch(cmds...)
	}
	m.viewMode = ViewGeneration
	campaignID := m.campaignIDs[m.campaignIdx]
	cmds = append(cmds,
		m.requestCmd(bus.ActionStartGeneration, map[string]string{"campaign_id": campaignID}),
		m.pollGeneration(campaignID),
	)
	return m, tea.Batch(cmds...)
}

// finalizeCmd marks onboarding complete over the bus. Runs exactly once:
// the reducer's fire bool gates every call site.
func (m Model) finalizeCmd() tea.Cmd {
	return m.requestCmd(bus.ActionCompleteOnboarding, map[string]string{
		"user_id": m.user.ID.String(),
	})
}

func (m Model) requestCmd(action bus.Action, payload any) tea.Cmd {
	requester := m.requester
	return func() tea.Msg {
		err := requester.Request(context.Background(), action, payload, nil)
		return requestDoneMsg{action: action, err: err}
	}
}

func (m Model) listenForEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return ProgressMsg(event)
	}
}

func (m Model) retryOnboarding() (tea.Model, tea.Cmd) {
	m.state, _ = onboarding.Reduce(m.state, onboarding.BackendFailed{})
	m.errMessage = ""
	if m.state.Questionnaire.Complete {
		m.viewMode = ViewWaiting
	} else {
		m.viewMode = ViewQuestionnaire
	}
	return m, m.requestCmd(bus.ActionStartOnboarding, map[string]string{"user_id": m.user.ID.String()})
}

func (m Model) currentCampaignID() uuid.UUID {
	if m.campaignIdx >= len(m.campaignIDs) {
		return uuid.Nil
	}
	id, err := uuid.Parse(m.campaignIDs[m.campaignIdx])
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	stepDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	stepActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	stepPendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
