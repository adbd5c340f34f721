// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: ASCII pipeline bars, follow-up counts and team performance table
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// DashboardStats is the pipeline overview shown by `incial viz pipeline`.
type DashboardStats struct {
	Pipeline []views.StageStats
	Team     []views.MemberStats
	Progress views.Progress

	TotalDeals    int
	TotalTasks    int
	TotalMeetings int

	// Needs attention
	OverdueFollowUps []models.Deal
	DueToday         []models.Deal
	OverdueTasks     []models.Task
}

func GenerateDashboardStats(deals []models.Deal, tasks []models.Task, meetings []models.Meeting, now time.Time) *DashboardStats {
	followUps := views.FollowUps(deals, now)
	stats := &DashboardStats{
		Pipeline:         views.Pipeline(deals),
		Team:             views.TeamPerformance(tasks),
		Progress:         views.TaskProgress(tasks),
		TotalDeals:       len(deals),
		TotalTasks:       len(tasks),
		TotalMeetings:    len(meetings),
		OverdueFollowUps: followUps[models.FollowUpOverdue],
		DueToday:         followUps[models.FollowUpToday],
	}
	for _, t := range tasks {
		if t.IsOverdue(now) {
			stats.OverdueTasks = append(stats.OverdueTasks, t)
		}
	}
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  INCIAL PIPELINE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	out.WriteString(RenderPipeline(stats.Pipeline))
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d deals  ✅ %d tasks (%d%% delivered)  📅 %d meetings\n\n",
		stats.TotalDeals, stats.TotalTasks, stats.Progress.Percent, stats.TotalMeetings))

	if len(stats.OverdueFollowUps) > 0 || len(stats.DueToday) > 0 || len(stats.OverdueTasks) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if n := len(stats.OverdueFollowUps); n > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - follow-up overdue\n", n))
		}
		if n := len(stats.DueToday); n > 0 {
			out.WriteString(fmt.Sprintf("  📞 %d deals - follow-up due today\n", n))
		}
		if n := len(stats.OverdueTasks); n > 0 {
			out.WriteString(fmt.Sprintf("  ⏰ %d tasks - past due date\n", n))
		}
		out.WriteString("\n")
	}

	if len(stats.Team) > 0 {
		out.WriteString("TEAM\n")
		out.WriteString(RenderTeam(stats.Team))
	}

	return out.String()
}

// RenderPipeline draws one bar per status scaled to the busiest status.
func RenderPipeline(stages []views.StageStats) string {
	var out strings.Builder

	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%s)\n", s.Status, bar, s.Count, formatValue(s.Value)))
	}
	return out.String()
}

// RenderTeam prints the performance table, one line per assignee.
func RenderTeam(rows []views.MemberStats) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("  %-16s %5s %5s %5s %5s %5s\n", "NAME", "TOTAL", "DONE", "WIP", "TODO", "RATE"))
	for _, r := range rows {
		out.WriteString(fmt.Sprintf("  %-16s %5d %5d %5d %5d %4d%%\n",
			truncate(r.Name, 16), r.Total, r.Completed, r.InProgress, r.Pending, r.CompletionRate))
	}
	return out.String()
}

func formatValue(v float64) string {
	switch {
	case v >= 100000:
		return fmt.Sprintf("₹%.1fL", v/100000)
	case v >= 1000:
		return fmt.Sprintf("₹%.0fK", v/1000)
	default:
		return fmt.Sprintf("₹%.0f", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
