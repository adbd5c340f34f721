// ABOUTME: Shared helpers for the crm CLI commands
// ABOUTME: Filter/view flags, visited-flag tracking and projection printing
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// out receives everything the commands print.
var out io.Writer = os.Stdout

// now is the wall clock for commands that run without an App.
var now = time.Now

// viewFlags are the flags every list command accepts.
type viewFlags struct {
	view       *string
	mine       *bool
	search     *string
	status     *string
	priority   *string
	assignedTo *string
	from       *string
	to         *string
	workType   *string
}

func addViewFlags(fs *flag.FlagSet) *viewFlags {
	return &viewFlags{
		view:       fs.String("view", "list", "View: list, kanban or calendar"),
		mine:       fs.Bool("mine", false, "Only records assigned to you"),
		search:     fs.String("search", "", "Case-insensitive search"),
		status:     fs.String("status", "", "Filter by exact status"),
		priority:   fs.String("priority", "", "Filter by priority"),
		assignedTo: fs.String("assigned-to", "", "Filter by assignee display name"),
		from:       fs.String("from", "", "Earliest date (YYYY-MM-DD)"),
		to:         fs.String("to", "", "Latest date (YYYY-MM-DD)"),
		workType:   fs.String("work-type", "", "Filter by work type"),
	}
}

func (v *viewFlags) options(actor string, terminal, columns []string) (views.Mode, views.Options, error) {
	mode, err := views.ParseMode(*v.view)
	if err != nil {
		return "", views.Options{}, err
	}
	return mode, views.Options{
		Filter: filter.Spec{
			Search:     *v.search,
			Status:     *v.status,
			Priority:   *v.priority,
			AssignedTo: *v.assignedTo,
			DateFrom:   models.Date(*v.from),
			DateTo:     models.Date(*v.to),
			WorkType:   *v.workType,
		},
		MineOnly: *v.mine,
		Actor:    actor,
		Terminal: terminal,
		Columns:  columns,
	}, nil
}

// visited returns the names of flags set on the command line, so updates
// only send fields the user actually passed.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func stringIf(set map[string]bool, name string, v *string) *string {
	if !set[name] {
		return nil
	}
	return v
}

func dateIf(set map[string]bool, name string, v *string) *models.Date {
	if !set[name] {
		return nil
	}
	d := models.Date(*v)
	return &d
}

func listIf(set map[string]bool, name string, v *string) *[]string {
	if !set[name] {
		return nil
	}
	list := splitList(*v)
	return &list
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseID reads the record id from the first positional argument.
func parseID(fs *flag.FlagSet, what string) (int64, error) {
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("%s ID is required", what)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, fs.Arg(0))
	}
	return id, nil
}

// parseFlags parses args, moving a leading positional id after the flags
// so both `update-deal 3 --status x` and `update-deal --status x 3` work.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		args = append(append([]string{}, args[1:]...), args[0])
	}
	return fs.Parse(args)
}

// printProjection renders a list, kanban or calendar projection as tables.
func printProjection[E models.Record](p views.Projection[E], header string, row func(E) string) {
	if p.Total == 0 {
		_, _ = fmt.Fprintln(out, "No records found")
		return
	}

	section := func(title string, items []E) {
		_, _ = fmt.Fprintf(out, "\n%s (%d)\n", title, len(items))
		if len(items) == 0 {
			return
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, header)
		for _, item := range items {
			_, _ = fmt.Fprintln(w, row(item))
		}
		_ = w.Flush()
	}

	switch p.Mode {
	case views.ModeKanban:
		for _, col := range p.Kanban {
			section(strings.ToUpper(col.Status), col.Items)
		}
	case views.ModeCalendar:
		for _, day := range p.Calendar {
			section(day.Date, day.Items)
		}
	default:
		section("ACTIVE", p.List.Active)
		section("COMPLETED", p.List.Completed)
	}
	_, _ = fmt.Fprintf(out, "\n%d total\n", p.Total)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
