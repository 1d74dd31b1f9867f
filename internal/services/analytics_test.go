package services

import (
	"math"
	"testing"
	"time"

	"github.com/pbms/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestBudgetUtilization(t *testing.T) {
	assert.InDelta(t, 86.0, BudgetUtilization(8600, 10000), 0.0001)
	assert.InDelta(t, 100.0, BudgetUtilization(500, 500), 0.0001)
	assert.InDelta(t, 120.0, BudgetUtilization(600, 500), 0.0001)
}

func TestBudgetUtilizationZeroTotal(t *testing.T) {
	got := BudgetUtilization(8600, 0)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.IsNaN(got))
	assert.False(t, math.IsInf(got, 0))

	assert.Equal(t, 0.0, BudgetUtilization(0, 0))
	assert.Equal(t, 0.0, BudgetUtilization(100, -1))
}

func TestBudgetRiskThresholds(t *testing.T) {
	cases := []struct {
		utilization float64
		severity    string
	}{
		{0, types.RiskSeverityLow},
		{75, types.RiskSeverityLow},
		{75.1, types.RiskSeverityMedium},
		{85, types.RiskSeverityMedium},
		{86, types.RiskSeverityHigh},
		{95, types.RiskSeverityHigh},
		{95.1, types.RiskSeverityCritical},
		{120, types.RiskSeverityCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.severity, BudgetRisk(c.utilization).Severity,
			"utilization %.1f", c.utilization)
	}
}

func TestBudgetRiskExampleScenario(t *testing.T) {
	// total_budget=10000, spent_budget=8600 -> 86% -> high.
	utilization := BudgetUtilization(8600, 10000)
	risk := BudgetRisk(utilization)
	assert.Equal(t, types.RiskSeverityHigh, risk.Severity)
	assert.Equal(t, 86, risk.Probability)
}

func TestTimelineRiskOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	risk := TimelineRisk(&yesterday, types.ProjectStatusActive, now)
	assert.Equal(t, types.RiskSeverityCritical, risk.Severity)
	assert.Equal(t, 100, risk.Probability)
}

func TestTimelineRiskWindows(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	in3Days := now.Add(3 * 24 * time.Hour)
	assert.Equal(t, types.RiskSeverityHigh, TimelineRisk(&in3Days, types.ProjectStatusActive, now).Severity)

	in20Days := now.Add(20 * 24 * time.Hour)
	assert.Equal(t, types.RiskSeverityMedium, TimelineRisk(&in20Days, types.ProjectStatusActive, now).Severity)

	in90Days := now.Add(90 * 24 * time.Hour)
	assert.Equal(t, types.RiskSeverityLow, TimelineRisk(&in90Days, types.ProjectStatusActive, now).Severity)
}

func TestTimelineRiskDayGranularity(t *testing.T) {
	// end_date values come from a DATE column, so they are midnights.
	// A project ending today is not overdue, even late in the day.
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	risk := TimelineRisk(&today, types.ProjectStatusActive, now)
	assert.Equal(t, types.RiskSeverityHigh, risk.Severity)
	assert.Equal(t, 75, risk.Probability)

	// Exactly 7 and 30 calendar days out land inside their windows
	// regardless of the clock time.
	in7Days := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, types.RiskSeverityHigh, TimelineRisk(&in7Days, types.ProjectStatusActive, now).Severity)

	in30Days := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, types.RiskSeverityMedium, TimelineRisk(&in30Days, types.ProjectStatusActive, now).Severity)

	in31Days := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, types.RiskSeverityLow, TimelineRisk(&in31Days, types.ProjectStatusActive, now).Severity)
}

func TestTimelineRiskIgnoresFinishedProjects(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	for _, status := range []string{types.ProjectStatusCompleted, types.ProjectStatusCancelled} {
		risk := TimelineRisk(&yesterday, status, now)
		assert.Equal(t, types.RiskSeverityLow, risk.Severity)
		assert.Equal(t, 0, risk.Probability)
	}

	risk := TimelineRisk(nil, types.ProjectStatusActive, now)
	assert.Equal(t, types.RiskSeverityLow, risk.Severity)
}
