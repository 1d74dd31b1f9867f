package services

import (
	"context"
	"time"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// Risk classification thresholds. Fixed, not configurable.
const (
	utilizationCritical = 95.0
	utilizationHigh     = 85.0
	utilizationMedium   = 75.0

	deadlineHighWindow   = 7 * 24 * time.Hour
	deadlineMediumWindow = 30 * 24 * time.Hour
)

// BudgetUtilization returns spent/total as a percentage. A zero or
// negative total yields 0, never NaN or Inf.
func BudgetUtilization(spent, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return spent / total * 100
}

// BudgetRisk classifies a utilization percentage.
func BudgetRisk(utilization float64) types.Risk {
	probability := int(utilization)
	if probability > 100 {
		probability = 100
	}
	if probability < 0 {
		probability = 0
	}

	switch {
	case utilization > utilizationCritical:
		return types.Risk{Severity: types.RiskSeverityCritical, Probability: probability}
	case utilization > utilizationHigh:
		return types.Risk{Severity: types.RiskSeverityHigh, Probability: probability}
	case utilization > utilizationMedium:
		return types.Risk{Severity: types.RiskSeverityMedium, Probability: probability}
	default:
		return types.Risk{Severity: types.RiskSeverityLow, Probability: probability}
	}
}

// TimelineRisk classifies schedule pressure from the project end date.
// Completed and cancelled projects, and projects without an end date,
// carry no timeline risk. An overdue project is critical with
// probability 100.
func TimelineRisk(endDate *time.Time, status string, now time.Time) types.Risk {
	if endDate == nil || status == types.ProjectStatusCompleted || status == types.ProjectStatusCancelled {
		return types.Risk{Severity: types.RiskSeverityLow, Probability: 0}
	}

	// end_date is a DATE column, so it scans as midnight. Truncate now
	// to its calendar day too; otherwise the time of day shifts a
	// project across a window boundary, and a project ending today
	// would read as overdue.
	remaining := startOfDay(*endDate).Sub(startOfDay(now))
	switch {
	case remaining < 0:
		return types.Risk{Severity: types.RiskSeverityCritical, Probability: 100}
	case remaining <= deadlineHighWindow:
		return types.Risk{Severity: types.RiskSeverityHigh, Probability: 75}
	case remaining <= deadlineMediumWindow:
		return types.Risk{Severity: types.RiskSeverityMedium, Probability: 50}
	default:
		return types.Risk{Severity: types.RiskSeverityLow, Probability: 20}
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AnalyticsService assembles per-project risk assessments. Risks are
// recomputed from current rows on every call; nothing is persisted.
type AnalyticsService struct {
	projects ProjectRepository
	now      func() time.Time
}

func NewAnalyticsService(projects ProjectRepository) *AnalyticsService {
	return &AnalyticsService{projects: projects, now: time.Now}
}

const maxRiskProjects = 500

func (s *AnalyticsService) Risks(ctx context.Context, vis store.Visibility) ([]types.ProjectRisk, error) {
	projects, _, err := s.projects.List(ctx, vis, 0, maxRiskProjects)
	if err != nil {
		return nil, err
	}

	now := s.now()
	risks := make([]types.ProjectRisk, 0, len(projects))
	for _, p := range projects {
		utilization := BudgetUtilization(p.SpentBudget, p.TotalBudget)
		risks = append(risks, types.ProjectRisk{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Budget:      BudgetRisk(utilization),
			Timeline:    TimelineRisk(p.EndDate, p.Status, now),
			Utilization: utilization,
		})
	}
	return risks, nil
}
