// ABOUTME: TUI view for the onboarding questionnaire
// ABOUTME: Walks through the profile questions one text input at a time
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/skiff/models"
)

type question struct {
	prompt      string
	placeholder string
}

var questions = []question{
	{"What company are you reaching out on behalf of?", "Acme Inc"},
	{"What is your role there?", "Founder"},
	{"Who is your target audience?", "Early-stage founders"},
	{"What is the goal of your outreach?", "Book intro calls"},
	{"What should each email ask the reader to do?", "Grab 15 minutes on my calendar"},
}

type questionnaireState struct {
	index  int
	input  textinput.Model
	saved  []string
}

func newQuestionnaireState() questionnaireState {
	input := textinput.New()
	input.Placeholder = questions[0].placeholder
	input.Focus()
	input.CharLimit = 200
	input.Width = 60

	return questionnaireState{
		input: input,
		saved: make([]string, len(questions)),
	}
}

func (q questionnaireState) answers() models.QuestionnaireAnswers {
	return models.QuestionnaireAnswers{
		Company:      q.saved[0],
		Role:         q.saved[1],
		Audience:     q.saved[2],
		Goal:         q.saved[3],
		CallToAction: q.saved[4],
	}
}

func (m Model) handleQuestionnaireKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.questionnaire.saved[m.questionnaire.index] = strings.TrimSpace(m.questionnaire.input.Value())
		if m.questionnaire.index == len(questions)-1 {
			return m.completeQuestionnaire()
		}
		m.questionnaire.index++
		m.questionnaire.input.SetValue(m.questionnaire.saved[m.questionnaire.index])
		m.questionnaire.input.Placeholder = questions[m.questionnaire.index].placeholder
		return m, nil

	case "esc":
		if m.questionnaire.index > 0 {
			m.questionnaire.saved[m.questionnaire.index] = strings.TrimSpace(m.questionnaire.input.Value())
			m.questionnaire.index--
			m.questionnaire.input.SetValue(m.questionnaire.saved[m.questionnaire.index])
			m.questionnaire.input.Placeholder = questions[m.questionnaire.index].placeholder
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.questionnaire.input, cmd = m.questionnaire.input.Update(msg)
	return m, cmd
}

func (m Model) renderQuestionnaireView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Welcome to skiff"))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Question %d of %d\n\n", m.questionnaire.index+1, len(questions)))
	s.WriteString(questions[m.questionnaire.index].prompt)
	s.WriteString("\n\n")
	s.WriteString(m.questionnaire.input.View())
	s.WriteString("\n\n")

	// Backend keeps working while the user types
	s.WriteString(m.renderBackendStatusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter: Next • Esc: Back • Ctrl+C: Quit"))

	return s.String()
}

func (m Model) renderBackendStatusLine() string {
	switch m.lastStep {
	case "":
		return stepPendingStyle.Render("  Preparing your account...")
	case models.StepFetching:
		if m.total > 0 {
			return stepActiveStyle.Render(fmt.Sprintf("  ⟳ Importing sent mail (%d/%d)...", m.fetched, m.total))
		}
		return stepActiveStyle.Render("  ⟳ Importing sent mail...")
	case models.StepSaving:
		return stepActiveStyle.Render("  ⟳ Saving emails...")
	case models.StepClustering:
		return stepActiveStyle.Render("  ⟳ Finding campaigns in your mail...")
	case models.StepBackendComplete:
		return stepDoneStyle.Render("  ✓ Account ready")
	case models.StepError:
		return errorStyle.Render("  ✗ Setup hit a problem")
	default:
		return stepActiveStyle.Render("  ⟳ Setting up...")
	}
}
