// ABOUTME: Full-screen error view for fatal onboarding failures
// ABOUTME: Offers a try-again action that restarts the backend track
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r", "enter":
		return m.retryOnboarding()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) renderErrorView() string {
	var s strings.Builder

	s.WriteString(errorStyle.Render("Something went wrong"))
	s.WriteString("\n\n")
	s.WriteString("We couldn't finish setting up your account.\n\n")
	if m.errMessage != "" {
		s.WriteString(errorStyle.Render("  " + m.errMessage))
		s.WriteString("\n\n")
	}
	s.WriteString("Your answers are saved; trying again only restarts the import.\n")
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("r: Try again • q: Quit"))

	return s.String()
}
