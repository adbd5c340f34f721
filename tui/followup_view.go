// ABOUTME: TUI rows for follow-up tracking
// ABOUTME: Deals grouped overdue, today, upcoming; actions target the deal
package tui

import (
	"strconv"

	"github.com/incial/crm/filter"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

var followupOrder = []models.FollowUp{models.FollowUpOverdue, models.FollowUpToday, models.FollowUpUpcoming}

var followupIndicator = map[models.FollowUp]string{
	models.FollowUpOverdue:  "🔴",
	models.FollowUpToday:    "🟡",
	models.FollowUpUpcoming: "🟢",
}

func (m Model) followupRows(opts views.Options) []boardRow {
	deals := filter.Apply(m.app.Deals.Snapshot(), opts.Filter)
	if opts.MineOnly {
		deals = views.Mine(deals, opts.Actor)
	}

	groups := views.FollowUps(deals, m.app.Now())
	var rows []boardRow
	for _, state := range followupOrder {
		for _, d := range groups[state] {
			rows = append(rows, boardRow{id: d.ID, cells: []string{
				followupIndicator[state] + " " + string(state),
				strconv.FormatInt(d.ID, 10),
				d.Company,
				d.NextFollowUp.String(),
				d.AssignedTo,
				d.Phone,
			}})
		}
	}
	return rows
}
