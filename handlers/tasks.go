// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements create_task, update_task and delete_task through the coordinator
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
)

type TaskHandlers struct {
	app *app.App
}

func NewTaskHandlers(a *app.App) *TaskHandlers {
	return &TaskHandlers{app: a}
}

type CreateTaskInput struct {
	Title                string `json:"title" jsonschema:"Task title (required)"`
	Description          string `json:"description,omitempty" jsonschema:"Task description"`
	Status               string `json:"status,omitempty" jsonschema:"Not Started, In Progress, Completed, Done, Posted or Dropped (default Not Started)"`
	Priority             string `json:"priority,omitempty" jsonschema:"Low, Medium or High (default Medium)"`
	TaskType             string `json:"task_type,omitempty" jsonschema:"General, Reel, Post, Story, Carousel or Video"`
	AssignedTo           string `json:"assigned_to,omitempty" jsonschema:"Display name of the assignee"`
	DueDate              string `json:"due_date,omitempty" jsonschema:"Due date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)"`
	CompanyID            *int64 `json:"company_id,omitempty" jsonschema:"Deal ID of the client company; omit for internal tasks"`
	IsVisibleOnMainBoard bool   `json:"is_visible_on_main_board,omitempty" jsonschema:"Show a company task on the main board"`
	TaskLink             string `json:"task_link,omitempty" jsonschema:"Link to the deliverable"`
}

func (h *TaskHandlers) CreateTask(ctx context.Context, request *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if input.Title == "" {
		return nil, TaskOutput{}, fmt.Errorf("title is required")
	}

	task := models.Task{
		Title:                input.Title,
		Description:          input.Description,
		Status:               input.Status,
		Priority:             input.Priority,
		TaskType:             input.TaskType,
		AssignedTo:           input.AssignedTo,
		DueDate:              models.Date(input.DueDate),
		CompanyID:            input.CompanyID,
		IsVisibleOnMainBoard: input.IsVisibleOnMainBoard,
		TaskLink:             input.TaskLink,
	}

	out, err := h.app.Tasks.Create(ctx, task)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to create task: %w", err)
	}
	return nil, taskToOutput(out.Entity), nil
}

type UpdateTaskInput struct {
	ID                   int64   `json:"id" jsonschema:"Task ID (required)"`
	Title                *string `json:"title,omitempty" jsonschema:"Updated title"`
	Description          *string `json:"description,omitempty" jsonschema:"Updated description"`
	Status               *string `json:"status,omitempty" jsonschema:"Updated status"`
	Priority             *string `json:"priority,omitempty" jsonschema:"Updated priority"`
	TaskType             *string `json:"task_type,omitempty" jsonschema:"Updated task type"`
	AssignedTo           *string `json:"assigned_to,omitempty" jsonschema:"Updated assignee"`
	DueDate              *string `json:"due_date,omitempty" jsonschema:"Updated due date; empty string clears it"`
	CompanyID            *int64  `json:"company_id,omitempty" jsonschema:"Updated company deal ID"`
	IsVisibleOnMainBoard *bool   `json:"is_visible_on_main_board,omitempty" jsonschema:"Updated main board visibility"`
	TaskLink             *string `json:"task_link,omitempty" jsonschema:"Updated link"`
	ClearCompany         bool    `json:"clear_company,omitempty" jsonschema:"Detach the task from its client company"`
}

func (h *TaskHandlers) UpdateTask(ctx context.Context, request *mcp.CallToolRequest, input UpdateTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if input.ID == 0 {
		return nil, TaskOutput{}, fmt.Errorf("id is required")
	}

	patch := models.TaskPatch{
		Title:                input.Title,
		Description:          input.Description,
		Status:               input.Status,
		Priority:             input.Priority,
		TaskType:             input.TaskType,
		AssignedTo:           input.AssignedTo,
		DueDate:              datePtr(input.DueDate),
		CompanyID:            input.CompanyID,
		IsVisibleOnMainBoard: input.IsVisibleOnMainBoard,
		TaskLink:             input.TaskLink,
		ClearCompany:         input.ClearCompany,
	}
	if patch.IsEmpty() {
		return nil, TaskOutput{}, fmt.Errorf("nothing to update")
	}

	out, err := h.app.Tasks.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to update task: %w", err)
	}
	return nil, taskToOutput(out.Entity), nil
}

func (h *TaskHandlers) DeleteTask(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	out, err := h.app.Tasks.Delete(ctx, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete task: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Token: out.Token}, nil
}
