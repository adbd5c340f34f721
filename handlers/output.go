// ABOUTME: Tool output shapes shared by the MCP handlers
// ABOUTME: Flattens entities to plain JSON types with RFC3339 timestamps
package handlers

import (
	"time"

	"github.com/incial/crm/activity"
	"github.com/incial/crm/models"
)

type DealOutput struct {
	ID            int64    `json:"id"`
	Company       string   `json:"company"`
	ContactName   string   `json:"contact_name,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Status        string   `json:"status"`
	AssignedTo    string   `json:"assigned_to,omitempty"`
	DealValue     float64  `json:"deal_value,omitempty"`
	NextFollowUp  string   `json:"next_follow_up,omitempty"`
	FollowUp      string   `json:"follow_up,omitempty"`
	LastContact   string   `json:"last_contact,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Work          []string `json:"work,omitempty"`
	LeadSources   []string `json:"lead_sources,omitempty"`
	ReferenceID   string   `json:"reference_id,omitempty"`
	CreatedAt     string   `json:"created_at"`
	LastUpdatedBy string   `json:"last_updated_by,omitempty"`
	LastUpdatedAt string   `json:"last_updated_at,omitempty"`
}

type TaskOutput struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	Status               string `json:"status"`
	Priority             string `json:"priority"`
	TaskType             string `json:"task_type,omitempty"`
	AssignedTo           string `json:"assigned_to,omitempty"`
	DueDate              string `json:"due_date,omitempty"`
	CompanyID            *int64 `json:"company_id,omitempty"`
	IsVisibleOnMainBoard bool   `json:"is_visible_on_main_board,omitempty"`
	TaskLink             string `json:"task_link,omitempty"`
	CreatedAt            string `json:"created_at"`
	LastUpdatedBy        string `json:"last_updated_by,omitempty"`
	LastUpdatedAt        string `json:"last_updated_at,omitempty"`
}

type MeetingOutput struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	DateTime      string `json:"date_time,omitempty"`
	AssignedTo    string `json:"assigned_to,omitempty"`
	AssigneeID    *int64 `json:"assignee_id,omitempty"`
	CompanyID     *int64 `json:"company_id,omitempty"`
	MeetingLink   string `json:"meeting_link,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	LastUpdatedBy string `json:"last_updated_by,omitempty"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
}

type ActivityOutput struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Verb       string `json:"verb"`
	Collection string `json:"collection"`
	ObjectID   int64  `json:"object_id"`
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
	At         string `json:"at"`
}

// DeleteOutput reports a committed delete.
type DeleteOutput struct {
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
	Token   string `json:"token"`
}

func dealToOutput(d models.Deal, now time.Time) DealOutput {
	out := DealOutput{
		ID:            d.ID,
		Company:       d.Company,
		ContactName:   d.ContactName,
		Email:         d.Email,
		Phone:         d.Phone,
		Status:        d.Status,
		AssignedTo:    d.AssignedTo,
		DealValue:     d.DealValue,
		NextFollowUp:  d.NextFollowUp.String(),
		LastContact:   d.LastContact.String(),
		Tags:          d.Tags,
		Work:          d.Work,
		LeadSources:   d.LeadSources,
		ReferenceID:   d.ReferenceID,
		CreatedAt:     formatTime(d.CreatedAt),
		LastUpdatedBy: d.LastUpdatedBy,
		LastUpdatedAt: formatTimePtr(d.LastUpdatedAt),
	}
	if status := d.FollowUpStatus(now); status != models.FollowUpNone {
		out.FollowUp = string(status)
	}
	return out
}

func taskToOutput(t models.Task) TaskOutput {
	return TaskOutput{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		Status:               t.Status,
		Priority:             t.Priority,
		TaskType:             t.TaskType,
		AssignedTo:           t.AssignedTo,
		DueDate:              t.DueDate.String(),
		CompanyID:            t.CompanyID,
		IsVisibleOnMainBoard: t.IsVisibleOnMainBoard,
		TaskLink:             t.TaskLink,
		CreatedAt:            formatTime(t.CreatedAt),
		LastUpdatedBy:        t.LastUpdatedBy,
		LastUpdatedAt:        formatTimePtr(t.LastUpdatedAt),
	}
}

func meetingToOutput(m models.Meeting) MeetingOutput {
	return MeetingOutput{
		ID:            m.ID,
		Title:         m.Title,
		Status:        m.Status,
		DateTime:      m.DateTime.String(),
		AssignedTo:    m.AssignedTo,
		AssigneeID:    m.AssigneeID,
		CompanyID:     m.CompanyID,
		MeetingLink:   m.MeetingLink,
		Notes:         m.Notes,
		CreatedAt:     formatTime(m.CreatedAt),
		LastUpdatedBy: m.LastUpdatedBy,
		LastUpdatedAt: formatTimePtr(m.LastUpdatedAt),
	}
}

func activityToOutput(e activity.Entry) ActivityOutput {
	return ActivityOutput{
		ID:         e.ID,
		Actor:      e.Actor,
		Verb:       string(e.Verb),
		Collection: e.Collection,
		ObjectID:   e.ObjectID,
		Result:     string(e.Result),
		Error:      e.Error,
		At:         formatTime(e.At),
	}
}

func dealsToOutput(deals []models.Deal, now time.Time) []DealOutput {
	out := make([]DealOutput, 0, len(deals))
	for _, d := range deals {
		out = append(out, dealToOutput(d, now))
	}
	return out
}

func tasksToOutput(tasks []models.Task) []TaskOutput {
	out := make([]TaskOutput, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToOutput(t))
	}
	return out
}

func meetingsToOutput(meetings []models.Meeting) []MeetingOutput {
	out := make([]MeetingOutput, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, meetingToOutput(m))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
