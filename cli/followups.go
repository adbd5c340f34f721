// ABOUTME: Follow-up tracking CLI command
// ABOUTME: Lists deals whose next follow-up is overdue, due today or upcoming
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// FollowupListCommand lists deals needing follow-up, most urgent first.
func FollowupListCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("followups", flag.ContinueOnError)
	overdueOnly := fs.Bool("overdue-only", false, "Show only overdue follow-ups")
	mine := fs.Bool("mine", false, "Only deals you own")
	limit := fs.Int("limit", 0, "Maximum number of deals per group (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deals := a.Deals.Snapshot()
	if *mine {
		deals = views.Mine(deals, a.Actor())
	}
	groups := views.FollowUps(deals, a.Now())

	order := []struct {
		state     models.FollowUp
		indicator string
	}{
		{models.FollowUpOverdue, "🔴"},
		{models.FollowUpToday, "🟡"},
		{models.FollowUpUpcoming, "🟢"},
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tFOLLOW-UP\tSTATE\tOWNER\tCONTACT")
	_, _ = fmt.Fprintln(w, "-------\t---------\t-----\t-----\t-------")

	rows := 0
	for _, o := range order {
		if *overdueOnly && o.state != models.FollowUpOverdue {
			continue
		}
		list := groups[o.state]
		if *limit > 0 && len(list) > *limit {
			list = list[:*limit]
		}
		for _, d := range list {
			_, _ = fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\n",
				o.indicator, d.Company, d.NextFollowUp, o.state, orDash(d.AssignedTo), orDash(d.Phone))
			rows++
		}
	}
	_ = w.Flush()

	if rows == 0 {
		_, _ = fmt.Fprintln(out, "No follow-ups scheduled")
	}
	return nil
}
