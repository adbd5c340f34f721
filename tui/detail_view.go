// ABOUTME: Detail view for a single deal, task or meeting
// ABOUTME: Deals show their company-scoped tasks, meetings and delivery progress
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/incial/crm/views"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	switch m.actionEntity() {
	case EntityTasks:
		s.WriteString(m.renderTaskDetail())
	case EntityMeetings:
		s.WriteString(m.renderMeetingDetail())
	default:
		s.WriteString(m.renderDealDetail())
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderDealDetail() string {
	a := m.app
	cv, err := views.Client(a.Deals.Snapshot(), a.Tasks.Snapshot(), a.Meetings.Snapshot(), m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	d := cv.Deal

	var s strings.Builder
	s.WriteString(m.renderField("Company", d.Company))
	s.WriteString(m.renderField("Status", d.Status))
	s.WriteString(m.renderField("Reference", d.ReferenceID))
	s.WriteString(m.renderField("Contact", d.ContactName))
	s.WriteString(m.renderField("Email", d.Email))
	s.WriteString(m.renderField("Phone", d.Phone))
	s.WriteString(m.renderField("Owner", d.AssignedTo))
	s.WriteString(m.renderField("Value", fmt.Sprintf("%.2f", d.DealValue)))
	s.WriteString(m.renderField("Next Follow-up", fmt.Sprintf("%s (%s)", d.NextFollowUp, d.FollowUpStatus(a.Now()))))
	s.WriteString(m.renderField("Last Contact", d.LastContact.String()))
	s.WriteString(m.renderField("Work", strings.Join(d.Work, ", ")))
	s.WriteString(m.renderField("Tags", strings.Join(d.Tags, ", ")))
	s.WriteString(m.renderField("Last Updated By", d.LastUpdatedBy))

	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("TASKS (%d/%d delivered, %d%%)", cv.Progress.Done, cv.Progress.Total, cv.Progress.Percent)))
	s.WriteString("\n")
	for _, t := range cv.Tasks {
		s.WriteString(fmt.Sprintf("  • %s [%s] due %s\n", t.Title, t.Status, t.DueDate))
	}

	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Bold(true).Render("MEETINGS"))
	s.WriteString("\n")
	for _, mt := range cv.Meetings {
		s.WriteString(fmt.Sprintf("  • %s  %s [%s]\n", mt.DateTime, mt.Title, mt.Status))
	}

	return s.String()
}

func (m Model) renderTaskDetail() string {
	t, ok := m.app.Tasks.Get(m.selectedID)
	if !ok {
		return fmt.Sprintf("Error: task %d not found", m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", t.Title))
	s.WriteString(m.renderField("Status", t.Status))
	s.WriteString(m.renderField("Priority", t.Priority))
	s.WriteString(m.renderField("Type", t.TaskType))
	s.WriteString(m.renderField("Assigned To", t.AssignedTo))
	s.WriteString(m.renderField("Due", t.DueDate.String()))
	if t.CompanyID != nil {
		company := strconv.FormatInt(*t.CompanyID, 10)
		if d, ok := m.app.Deals.Get(*t.CompanyID); ok {
			company = d.Company
		}
		s.WriteString(m.renderField("Company", company))
	}
	s.WriteString(m.renderField("Main Board", strconv.FormatBool(t.IsVisibleOnMainBoard)))
	s.WriteString(m.renderField("Link", t.TaskLink))
	s.WriteString(m.renderField("Description", t.Description))
	s.WriteString(m.renderField("Last Updated By", t.LastUpdatedBy))
	return s.String()
}

func (m Model) renderMeetingDetail() string {
	mt, ok := m.app.Meetings.Get(m.selectedID)
	if !ok {
		return fmt.Sprintf("Error: meeting %d not found", m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", mt.Title))
	s.WriteString(m.renderField("Status", mt.Status))
	s.WriteString(m.renderField("When", mt.DateTime.String()))
	s.WriteString(m.renderField("Host", mt.AssignedTo))
	s.WriteString(m.renderField("Link", mt.MeetingLink))
	s.WriteString(m.renderField("Notes", mt.Notes))
	s.WriteString(m.renderField("Last Updated By", mt.LastUpdatedBy))
	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"s: Next status",
		"e: Edit",
		"d: Delete",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewBoard
	case "d":
		m.viewMode = ViewConfirmDelete
	case "e":
		m.initFormInputs()
		m.viewMode = ViewEdit
		return m, textinput.Blink
	case "s":
		return m.cycleStatusOf(m.selectedID)
	}

	return m, nil
}
