// ABOUTME: Task CLI commands
// ABOUTME: Add, list, update and delete tasks, with main-board and company scopes
package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// AddTaskCommand adds a new task.
func AddTaskCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-task", flag.ContinueOnError)
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Description")
	status := fs.String("status", models.TaskNotStarted, "Status")
	priority := fs.String("priority", models.PriorityMedium, "Priority (Low, Medium, High)")
	taskType := fs.String("type", models.TaskTypeGeneral, "Task type")
	assigned := fs.String("assigned-to", "", "Assignee display name")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	company := fs.Int64("company", 0, "Client deal ID")
	mainBoard := fs.Bool("main-board", false, "Show on the main task board")
	link := fs.String("link", "", "Link to the deliverable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	draft := models.Task{
		Title:                *title,
		Description:          *description,
		Status:               *status,
		Priority:             *priority,
		TaskType:             *taskType,
		AssignedTo:           *assigned,
		DueDate:              models.Date(*due),
		IsVisibleOnMainBoard: *mainBoard,
		TaskLink:             *link,
	}
	if *company > 0 {
		draft.CompanyID = company
	}

	res, err := a.Tasks.Create(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	task := res.Entity
	_, _ = fmt.Fprintf(out, "✓ Task created: %s (ID: %d)\n", task.Title, task.ID)
	_, _ = fmt.Fprintf(out, "  Status: %s  Priority: %s\n", task.Status, task.Priority)
	if task.AssignedTo != "" {
		_, _ = fmt.Fprintf(out, "  Assigned to: %s\n", task.AssignedTo)
	}
	return nil
}

// ListTasksCommand lists tasks through the view pipeline.
func ListTasksCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-tasks", flag.ContinueOnError)
	vf := addViewFlags(fs)
	mainBoard := fs.Bool("main-board", false, "Only tasks shown on the main board")
	company := fs.Int64("company", 0, "Only tasks for this client deal ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, opts, err := vf.options(a.Actor(), a.Terminals().Tasks, models.TaskStatuses)
	if err != nil {
		return err
	}

	tasks := a.Tasks.Snapshot()
	if *mainBoard {
		tasks = views.MainBoard(tasks)
	}
	if *company > 0 {
		tasks = views.ForCompany(tasks, *company)
	}

	p, err := views.Project(mode, tasks, opts)
	if err != nil {
		return err
	}

	now := a.Now()
	printProjection(p, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE\tDUE\tCOMPANY", func(t models.Task) string {
		due := t.DueDate.String()
		if t.IsOverdue(now) {
			due += " (overdue)"
		}
		company := "-"
		if t.CompanyID != nil {
			company = strconv.FormatInt(*t.CompanyID, 10)
		}
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%s",
			t.ID, t.Title, t.Status, t.Priority, orDash(t.AssignedTo), orDash(due), company)
	})
	return nil
}

// UpdateTaskCommand updates the fields passed as flags.
func UpdateTaskCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-task", flag.ContinueOnError)
	title := fs.String("title", "", "Task title")
	description := fs.String("description", "", "Description")
	status := fs.String("status", "", "Status")
	priority := fs.String("priority", "", "Priority")
	taskType := fs.String("type", "", "Task type")
	assigned := fs.String("assigned-to", "", "Assignee display name")
	due := fs.String("due", "", "Due date; empty clears it")
	company := fs.Int64("company", 0, "Client deal ID")
	noCompany := fs.Bool("no-company", false, "Detach the task from its client")
	mainBoard := fs.Bool("main-board", false, "Show on the main task board")
	link := fs.String("link", "", "Link to the deliverable")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "task")
	if err != nil {
		return err
	}

	set := visited(fs)
	patch := models.TaskPatch{
		Title:       stringIf(set, "title", title),
		Description: stringIf(set, "description", description),
		Status:      stringIf(set, "status", status),
		Priority:    stringIf(set, "priority", priority),
		TaskType:    stringIf(set, "type", taskType),
		AssignedTo:  stringIf(set, "assigned-to", assigned),
		DueDate:     dateIf(set, "due", due),
		TaskLink:    stringIf(set, "link", link),
	}
	if set["company"] {
		patch.CompanyID = company
	}
	patch.ClearCompany = *noCompany
	if set["main-board"] {
		patch.IsVisibleOnMainBoard = mainBoard
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}

	res, err := a.Tasks.Update(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Task updated: %s (ID: %d)\n", res.Entity.Title, res.Entity.ID)
	_, _ = fmt.Fprintf(out, "  Status: %s\n", res.Entity.Status)
	return nil
}

// DeleteTaskCommand deletes a task.
func DeleteTaskCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-task", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "task")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("#%d", id)
	if task, ok := a.Tasks.Get(id); ok {
		name = task.Title
	}

	if _, err := a.Tasks.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Deleted task: %s\n", name)
	return nil
}
