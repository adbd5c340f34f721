// ABOUTME: TUI rows for the activity timeline
// ABOUTME: Newest committed and rolled-back mutations from the in-memory log
package tui

import "fmt"

const activityLimit = 100

func (m Model) activityRows() []boardRow {
	entries := m.app.Activity.Recent(activityLimit)
	if m.mineOnly {
		entries = m.app.Activity.ByActor(m.app.Actor(), activityLimit)
	}

	rows := make([]boardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, boardRow{id: e.ObjectID, cells: []string{
			e.At.Format("2006-01-02 15:04"),
			e.Actor,
			string(e.Verb),
			fmt.Sprintf("%s #%d", e.Collection, e.ObjectID),
			string(e.Result),
			e.Error,
		}})
	}
	return rows
}
