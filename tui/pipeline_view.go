// ABOUTME: Pipeline dashboard view for TUI
// ABOUTME: Renders deal stages, task delivery and follow-up counts from the current snapshots
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/incial/crm/viz"
)

func (m Model) renderPipelineView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE"))
	s.WriteString("\n\n")

	a := m.app
	stats := viz.GenerateDashboardStats(a.Deals.Snapshot(), a.Tasks.Snapshot(), a.Meetings.Snapshot(), a.Now())
	s.WriteString(viz.RenderDashboard(stats))

	s.WriteString("\n\n")
	s.WriteString(m.renderPipelineHelp())

	return s.String()
}

func (m Model) renderPipelineHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handlePipelineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "p":
		m.viewMode = ViewBoard
	}

	return m, nil
}
