// ABOUTME: Personal and team dashboard CLI commands
// ABOUTME: dashboard, performance, users and activity
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/incial/crm/app"
	"github.com/incial/crm/views"
	"github.com/incial/crm/viz"
)

// DashboardCommand prints the caller's open work and upcoming meetings.
func DashboardCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	actor := fs.String("actor", "", "Show another team member's dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name := *actor
	if name == "" {
		name = a.Actor()
	}
	now := a.Now()
	d := views.MyDashboard(a.Tasks.Snapshot(), a.Meetings.Snapshot(), name, now)

	_, _ = fmt.Fprintf(out, "Dashboard for %s\n", orDash(d.Actor))
	_, _ = fmt.Fprintf(out, "  Active tasks: %d   Efficiency: %d%%\n", len(d.ActiveTasks), d.Efficiency)

	_, _ = fmt.Fprintln(out, "\nFOCUS")
	if len(d.PriorityTasks) == 0 {
		_, _ = fmt.Fprintln(out, "  Nothing open")
	}
	for _, t := range d.PriorityTasks {
		marker := " "
		switch {
		case t.IsOverdue(now):
			marker = "!"
		case t.IsDueToday(now):
			marker = "*"
		}
		_, _ = fmt.Fprintf(out, "  %s [%s] %s (due %s)\n", marker, t.Priority, t.Title, orDash(t.DueDate.String()))
	}

	_, _ = fmt.Fprintln(out, "\nUPCOMING MEETINGS")
	if len(d.Upcoming) == 0 {
		_, _ = fmt.Fprintln(out, "  None")
	}
	for _, m := range d.Upcoming {
		_, _ = fmt.Fprintf(out, "  %s  %s\n", m.DateTime, m.Title)
	}
	return nil
}

// PerformanceCommand prints per-assignee task totals.
func PerformanceCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("performance", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, viz.RenderTeam(views.TeamPerformance(a.Tasks.Snapshot())))
	return nil
}

// UsersCommand lists the team directory.
func UsersCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	users, err := a.Users.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return w.Flush()
}

// ActivityCommand prints the mutations recorded by this process. It is most
// useful after a batch of commands in one invocation, or inside the TUI.
func ActivityCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Maximum entries")
	actor := fs.String("actor", "", "Only entries by this actor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries := a.Activity.Recent(*limit)
	if *actor != "" {
		entries = a.Activity.ByActor(*actor, *limit)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No activity recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tACTOR\tACTION\tRECORD\tRESULT")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s #%d\t%s\n",
			e.At.Format("2006-01-02 15:04"), orDash(e.Actor), e.Verb, e.Collection, e.ObjectID, e.Result)
	}
	return w.Flush()
}
