// ABOUTME: TUI holding screen shown after the questionnaire while the backend finishes
// ABOUTME: Renders live progress from broadcast events
package tui

import (
	"fmt"
	"strings"

	"github.com/harperreed/skiff/models"
)

var backendSteps = []struct {
	step  string
	label string
}{
	{models.StepAuth, "Connecting to Google"},
	{models.StepSetup, "Preparing your account"},
	{models.StepFetching, "Importing sent mail"},
	{models.StepSaving, "Saving emails"},
	{models.StepClustering, "Finding campaigns"},
}

func (m Model) renderWaitingView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Hang tight"))
	s.WriteString("\n\n")
	s.WriteString("We're still analyzing your sent mail. This usually takes under a minute.\n\n")

	reached := stepIndex(m.lastStep)
	for i, step := range backendSteps {
		label := step.label
		if step.step == models.StepFetching && m.total > 0 {
			label = fmt.Sprintf("%s (%d/%d)", label, m.fetched, m.total)
		}

		switch {
		case i < reached || m.lastStep == models.StepBackendComplete:
			s.WriteString(stepDoneStyle.Render("  ✓ " + label))
		case i == reached:
			s.WriteString(stepActiveStyle.Render("  ⟳ " + label))
		default:
			s.WriteString(stepPendingStyle.Render("    " + label))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Ctrl+C: Quit"))

	return s.String()
}

func (m Model) renderDoneView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("You're all set"))
	s.WriteString("\n\n")
	if len(m.campaignIDs) == 0 {
		s.WriteString("Onboarding is complete. No campaigns were found in your sent mail yet;\n")
		s.WriteString("run 'skiff generate' once you have campaigns to work with.\n")
	} else {
		s.WriteString(fmt.Sprintf("Onboarding is complete with %d campaigns ready.\n", len(m.campaignIDs)))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter: Finish"))

	return s.String()
}

func stepIndex(step string) int {
	for i, s := range backendSteps {
		if s.step == step {
			return i
		}
	}
	if step == models.StepBackendComplete {
		return len(backendSteps)
	}
	return 0
}
