// ABOUTME: Company CLI commands
// ABOUTME: Client tabs (active, dropped, past) and the single-client page
package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/incial/crm/app"
	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// CompaniesCommand lists onboarded clients split into tabs.
func CompaniesCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("companies", flag.ContinueOnError)
	search := fs.String("search", "", "Search company or contact")
	workType := fs.String("work-type", "", "Filter by work type")
	tab := fs.String("tab", "", "Only one tab: active, dropped or past")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tabs := views.CompanyTabs(a.Deals.Snapshot(), filter.Spec{Search: *search, WorkType: *workType})
	sections := []struct {
		name  string
		deals []models.Deal
	}{
		{"active", tabs.Active},
		{"dropped", tabs.Dropped},
		{"past", tabs.Past},
	}

	if *tab != "" {
		found := false
		for _, s := range sections {
			if s.name == *tab {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown tab: %s (valid: active, dropped, past)", *tab)
		}
	}

	for _, s := range sections {
		if *tab != "" && s.name != *tab {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s (%d)\n", strings.ToUpper(s.name), len(s.deals))
		if len(s.deals) == 0 {
			continue
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tSTATUS\tREF\tWORK")
		for _, d := range s.deals {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				d.ID, d.Company, d.Status, orDash(d.ReferenceID), orDash(strings.Join(d.Work, ", ")))
		}
		_ = w.Flush()
	}
	return nil
}

// ClientCommand shows one client's deal, tasks, meetings and progress.
func ClientCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "deal")
	if err != nil {
		return err
	}

	cv, err := views.Client(a.Deals.Snapshot(), a.Tasks.Snapshot(), a.Meetings.Snapshot(), id)
	if err != nil {
		return err
	}

	d := cv.Deal
	_, _ = fmt.Fprintf(out, "%s (ID: %d)\n", d.Company, d.ID)
	_, _ = fmt.Fprintf(out, "  Status:    %s\n", d.Status)
	_, _ = fmt.Fprintf(out, "  Reference: %s\n", orDash(d.ReferenceID))
	_, _ = fmt.Fprintf(out, "  Contact:   %s\n", orDash(strings.TrimSpace(d.ContactName+" "+d.Email)))
	_, _ = fmt.Fprintf(out, "  Owner:     %s\n", orDash(d.AssignedTo))
	_, _ = fmt.Fprintf(out, "  Progress:  %d/%d delivered (%d%%), %d in progress\n",
		cv.Progress.Done, cv.Progress.Total, cv.Progress.Percent, cv.Progress.InProgress)

	_, _ = fmt.Fprintf(out, "\nTASKS (%d)\n", len(cv.Tasks))
	if len(cv.Tasks) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tTITLE\tTYPE\tSTATUS\tDUE")
		for _, t := range cv.Tasks {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.TaskType, t.Status, orDash(t.DueDate.String()))
		}
		_ = w.Flush()
	}

	_, _ = fmt.Fprintf(out, "\nMEETINGS (%d)\n", len(cv.Meetings))
	for _, m := range cv.Meetings {
		_, _ = fmt.Fprintf(out, "  %s  %s [%s]\n", m.DateTime, m.Title, m.Status)
	}
	return nil
}
