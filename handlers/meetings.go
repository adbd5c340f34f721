// ABOUTME: Meeting MCP tool handlers
// ABOUTME: Implements create_meeting, update_meeting and delete_meeting
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
)

type MeetingHandlers struct {
	app *app.App
}

func NewMeetingHandlers(a *app.App) *MeetingHandlers {
	return &MeetingHandlers{app: a}
}

type CreateMeetingInput struct {
	Title       string `json:"title" jsonschema:"Meeting title (required)"`
	Status      string `json:"status,omitempty" jsonschema:"Scheduled, Completed, Cancelled or Postponed (default Scheduled)"`
	DateTime    string `json:"date_time,omitempty" jsonschema:"Start time (YYYY-MM-DDTHH:MM)"`
	AssignedTo  string `json:"assigned_to,omitempty" jsonschema:"Display name of the host"`
	AssigneeID  *int64 `json:"assignee_id,omitempty" jsonschema:"User ID of the host"`
	CompanyID   *int64 `json:"company_id,omitempty" jsonschema:"Deal ID of the client company"`
	MeetingLink string `json:"meeting_link,omitempty" jsonschema:"Video call link"`
	Notes       string `json:"notes,omitempty" jsonschema:"Agenda or notes"`
}

func (h *MeetingHandlers) CreateMeeting(ctx context.Context, request *mcp.CallToolRequest, input CreateMeetingInput) (*mcp.CallToolResult, MeetingOutput, error) {
	if input.Title == "" {
		return nil, MeetingOutput{}, fmt.Errorf("title is required")
	}

	meeting := models.Meeting{
		Title:       input.Title,
		Status:      input.Status,
		DateTime:    models.Date(input.DateTime),
		AssignedTo:  input.AssignedTo,
		AssigneeID:  input.AssigneeID,
		CompanyID:   input.CompanyID,
		MeetingLink: input.MeetingLink,
		Notes:       input.Notes,
	}

	out, err := h.app.Meetings.Create(ctx, meeting)
	if err != nil {
		return nil, MeetingOutput{}, fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil, meetingToOutput(out.Entity), nil
}

type UpdateMeetingInput struct {
	ID           int64   `json:"id" jsonschema:"Meeting ID (required)"`
	Title        *string `json:"title,omitempty" jsonschema:"Updated title"`
	Status       *string `json:"status,omitempty" jsonschema:"Updated status"`
	DateTime     *string `json:"date_time,omitempty" jsonschema:"Updated start time"`
	AssignedTo   *string `json:"assigned_to,omitempty" jsonschema:"Updated host name"`
	AssigneeID   *int64  `json:"assignee_id,omitempty" jsonschema:"Updated host user ID"`
	CompanyID    *int64  `json:"company_id,omitempty" jsonschema:"Updated company deal ID"`
	MeetingLink  *string `json:"meeting_link,omitempty" jsonschema:"Updated link"`
	Notes        *string `json:"notes,omitempty" jsonschema:"Updated notes"`
	ClearCompany bool    `json:"clear_company,omitempty" jsonschema:"Detach the meeting from its client company"`
}

func (h *MeetingHandlers) UpdateMeeting(ctx context.Context, request *mcp.CallToolRequest, input UpdateMeetingInput) (*mcp.CallToolResult, MeetingOutput, error) {
	if input.ID == 0 {
		return nil, MeetingOutput{}, fmt.Errorf("id is required")
	}

	patch := models.MeetingPatch{
		Title:        input.Title,
		Status:       input.Status,
		DateTime:     datePtr(input.DateTime),
		AssignedTo:   input.AssignedTo,
		AssigneeID:   input.AssigneeID,
		CompanyID:    input.CompanyID,
		MeetingLink:  input.MeetingLink,
		Notes:        input.Notes,
		ClearCompany: input.ClearCompany,
	}
	if patch.IsEmpty() {
		return nil, MeetingOutput{}, fmt.Errorf("nothing to update")
	}

	out, err := h.app.Meetings.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, MeetingOutput{}, fmt.Errorf("failed to update meeting: %w", err)
	}
	return nil, meetingToOutput(out.Entity), nil
}

func (h *MeetingHandlers) DeleteMeeting(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	out, err := h.app.Meetings.Delete(ctx, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Token: out.Token}, nil
}
