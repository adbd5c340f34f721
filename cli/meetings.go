// ABOUTME: Meeting CLI commands
// ABOUTME: Add, list, update and delete meetings
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// AddMeetingCommand schedules a meeting.
func AddMeetingCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-meeting", flag.ContinueOnError)
	title := fs.String("title", "", "Meeting title (required)")
	at := fs.String("at", "", "Date and time, e.g. 2024-05-12T15:30 (required)")
	status := fs.String("status", models.MeetingScheduled, "Status")
	assigned := fs.String("assigned-to", "", "Host display name")
	company := fs.Int64("company", 0, "Client deal ID")
	link := fs.String("link", "", "Meeting link")
	notes := fs.String("notes", "", "Notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	if *at == "" {
		return fmt.Errorf("--at is required")
	}

	draft := models.Meeting{
		Title:       *title,
		Status:      *status,
		DateTime:    models.Date(*at),
		AssignedTo:  *assigned,
		MeetingLink: *link,
		Notes:       *notes,
	}
	if *company > 0 {
		draft.CompanyID = company
	}

	res, err := a.Meetings.Create(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Meeting scheduled: %s (ID: %d)\n", res.Entity.Title, res.Entity.ID)
	_, _ = fmt.Fprintf(out, "  When: %s\n", res.Entity.DateTime)
	return nil
}

// ListMeetingsCommand lists meetings through the view pipeline.
func ListMeetingsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-meetings", flag.ContinueOnError)
	vf := addViewFlags(fs)
	company := fs.Int64("company", 0, "Only meetings for this client deal ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, opts, err := vf.options(a.Actor(), a.Terminals().Meetings, models.MeetingStatuses)
	if err != nil {
		return err
	}

	meetings := a.Meetings.Snapshot()
	if *company > 0 {
		meetings = views.MeetingsForCompany(meetings, *company)
	}

	p, err := views.Project(mode, meetings, opts)
	if err != nil {
		return err
	}

	printProjection(p, "ID\tTITLE\tSTATUS\tWHEN\tHOST\tLINK", func(m models.Meeting) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s",
			m.ID, m.Title, m.Status, orDash(m.DateTime.String()), orDash(m.AssignedTo), orDash(m.MeetingLink))
	})
	return nil
}

// UpdateMeetingCommand updates the fields passed as flags.
func UpdateMeetingCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-meeting", flag.ContinueOnError)
	title := fs.String("title", "", "Meeting title")
	at := fs.String("at", "", "Date and time")
	status := fs.String("status", "", "Status")
	assigned := fs.String("assigned-to", "", "Host display name")
	company := fs.Int64("company", 0, "Client deal ID")
	noCompany := fs.Bool("no-company", false, "Detach the meeting from its client")
	link := fs.String("link", "", "Meeting link")
	notes := fs.String("notes", "", "Notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "meeting")
	if err != nil {
		return err
	}

	set := visited(fs)
	patch := models.MeetingPatch{
		Title:       stringIf(set, "title", title),
		DateTime:    dateIf(set, "at", at),
		Status:      stringIf(set, "status", status),
		AssignedTo:  stringIf(set, "assigned-to", assigned),
		MeetingLink: stringIf(set, "link", link),
		Notes:       stringIf(set, "notes", notes),
	}
	if set["company"] {
		patch.CompanyID = company
	}
	patch.ClearCompany = *noCompany
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}

	res, err := a.Meetings.Update(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Meeting updated: %s (ID: %d)\n", res.Entity.Title, res.Entity.ID)
	_, _ = fmt.Fprintf(out, "  Status: %s\n", res.Entity.Status)
	return nil
}

// DeleteMeetingCommand deletes a meeting.
func DeleteMeetingCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-meeting", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "meeting")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("#%d", id)
	if m, ok := a.Meetings.Get(id); ok {
		name = m.Title
	}

	if _, err := a.Meetings.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Deleted meeting: %s\n", name)
	return nil
}
