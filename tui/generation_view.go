// ABOUTME: TUI view for parallel campaign generation
// ABOUTME: Shows per-unit status badges and supports retrying a single unit
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/skiff/bus"
)

// busGenerationStatus mirrors the generationStatus action's response shape.
type busGenerationStatus struct {
	Units []struct {
		Unit   string `json:"unit"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"units"`
	AllSettled  bool `json:"all_settled"`
	Proceedable bool `json:"proceedable"`
}

var unitLabels = map[string]string{
	"leads":    "Lead search",
	"template": "Email template",
	"cadence":  "Follow-up cadence",
}

func (m Model) pollGeneration(campaignID string) tea.Cmd {
	requester := m.requester
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		var status busGenerationStatus
		err := requester.Request(context.Background(), bus.ActionGenerationStatus, map[string]string{
			"campaign_id": campaignID,
		}, &status)
		return generationMsg{status: status, err: err}
	})
}

func (m Model) handleGenerationStatus(msg generationMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Session may not be registered yet; keep polling
		return m, m.pollGeneration(m.campaignIDs[m.campaignIdx])
	}

	m.generation = &msg.status
	if msg.status.AllSettled {
		return m, nil
	}
	return m, m.pollGeneration(m.campaignIDs[m.campaignIdx])
}

func (m Model) handleGenerationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedUnit > 0 {
			m.selectedUnit--
		}
	case "down", "j":
		if m.generation != nil && m.selectedUnit < len(m.generation.Units)-1 {
			m.selectedUnit++
		}
	case "r":
		// Retry only the selected unit; the others keep their state
		if m.generation == nil || m.selectedUnit >= len(m.generation.Units) {
			return m, nil
		}
		unit := m.generation.Units[m.selectedUnit]
		if unit.Status != "failed" {
			return m, nil
		}
		campaignID := m.campaignIDs[m.campaignIdx]
		return m, tea.Batch(
			m.requestCmd(bus.ActionRetryUnit, map[string]string{
				"campaign_id": campaignID,
				"unit":        unit.Unit,
			}),
			m.pollGeneration(campaignID),
		)
	case "enter":
		if m.generation != nil && m.generation.Proceedable {
			if m.campaignIdx < len(m.campaignIDs)-1 {
				// Next campaign
				m.campaignIdx++
				m.generation = nil
				m.selectedUnit = 0
				campaignID := m.campaignIDs[m.campaignIdx]
				return m, tea.Batch(
					m.requestCmd(bus.ActionStartGeneration, map[string]string{"campaign_id": campaignID}),
					m.pollGeneration(campaignID),
				)
			}
			m.viewMode = ViewDone
		}
	case "q":
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) renderGenerationView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf("Generating campaign %d of %d", m.campaignIdx+1, len(m.campaignIDs))))
	s.WriteString("\n\n")

	if m.generation == nil {
		s.WriteString(stepActiveStyle.Render("  ⟳ Starting generation..."))
		s.WriteString("\n")
	} else {
		for i, unit := range m.generation.Units {
			label := unitLabels[unit.Unit]
			if label == "" {
				label = unit.Unit
			}

			var row strings.Builder
			if i == m.selectedUnit {
				row.WriteString("▶ ")
			} else {
				row.WriteString("  ")
			}

			switch unit.Status {
			case "success":
				row.WriteString(stepDoneStyle.Render("✓ " + label))
			case "failed":
				row.WriteString(errorStyle.Render("✗ " + label))
				if unit.Error != "" {
					row.WriteString(errorStyle.Render(": " + unit.Error))
				}
			case "loading":
				row.WriteString(stepActiveStyle.Render("⟳ " + label + "..."))
			default:
				row.WriteString(stepPendingStyle.Render("  " + label))
			}

			s.WriteString(row.String())
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")

	help := []string{"↑/↓: Select unit", "r: Retry failed unit"}
	if m.generation != nil && m.generation.Proceedable {
		if m.campaignIdx < len(m.campaignIDs)-1 {
			help = append(help, "Enter: Next campaign")
		} else {
			help = append(help, "Enter: Finish")
		}
	}
	help = append(help, "q: Quit")
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return s.String()
}
