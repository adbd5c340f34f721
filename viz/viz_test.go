// ABOUTME: Tests for dashboard rendering and the pipeline graph
// ABOUTME: Uses small fixed snapshots
package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incial/crm/models"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func fixtures() ([]models.Deal, []models.Task) {
	acme := int64(1)
	deals := []models.Deal{
		{ID: 1, Company: "Acme", Status: models.DealOnboarded, DealValue: 250000, NextFollowUp: "2024-05-01"},
		{ID: 2, Company: "Beta", Status: models.DealLead, DealValue: 4000, NextFollowUp: "2024-05-10"},
		{ID: 3, Company: "Gamma", Status: models.DealLead},
	}
	tasks := []models.Task{
		{ID: 10, Title: "Reel", Status: models.TaskDone, AssignedTo: "Vallapata", CompanyID: &acme},
		{ID: 11, Title: "Post", Status: models.TaskInProgress, AssignedTo: "Vallapata", DueDate: "2024-05-01"},
		{ID: 12, Title: "Story", Status: models.TaskNotStarted},
	}
	return deals, tasks
}

func TestGenerateDashboardStats(t *testing.T) {
	deals, tasks := fixtures()
	stats := GenerateDashboardStats(deals, tasks, nil, now)

	assert.Equal(t, 3, stats.TotalDeals)
	assert.Len(t, stats.OverdueFollowUps, 1)
	assert.Len(t, stats.DueToday, 1)
	assert.Len(t, stats.OverdueTasks, 1)
	assert.Equal(t, 33, stats.Progress.Percent)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "INCIAL PIPELINE DASHBOARD")
	assert.Contains(t, out, "1 deals - follow-up overdue")
	assert.Contains(t, out, "Vallapata")
}

func TestRenderPipelineScalesBars(t *testing.T) {
	deals, _ := fixtures()
	stats := GenerateDashboardStats(deals, nil, nil, now)
	lines := strings.Split(strings.TrimRight(RenderPipeline(stats.Pipeline), "\n"), "\n")
	require.Len(t, lines, len(models.DealStatuses))

	assert.Contains(t, lines[0], "lead")
	assert.Contains(t, lines[0], strings.Repeat("█", 10))
	assert.Contains(t, lines[0], "₹4K")
	assert.Contains(t, lines[3], "₹2.5L")
}

func TestGeneratePipelineGraph(t *testing.T) {
	deals, tasks := fixtures()
	dot, err := NewGraphGenerator(deals, tasks).GeneratePipelineGraph(context.Background())
	require.NoError(t, err)
	assert.Contains(t, dot, "Acme")
	assert.Contains(t, dot, "task_10")
	assert.NotContains(t, dot, "task_11", "internal tasks are not attached to a deal")
}

func TestParseFormat(t *testing.T) {
	_, err := ParseFormat("svg")
	assert.NoError(t, err)
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
