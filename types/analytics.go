package types

// Risk severities, ordered from least to most severe.
const (
	RiskSeverityLow      = "low"
	RiskSeverityMedium   = "medium"
	RiskSeverityHigh     = "high"
	RiskSeverityCritical = "critical"
)

// ProjectRisk is the per-project risk assessment returned by the
// analytics endpoint. It is recomputed on every request from current
// budget and schedule data.
type ProjectRisk struct {
	ProjectID   int     `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Budget      Risk    `json:"budget"`
	Timeline    Risk    `json:"timeline"`
	Utilization float64 `json:"budget_utilization"`
}

// Risk is a single classified risk dimension.
type Risk struct {
	Severity string `json:"severity"`

	// Probability is a 0-100 likelihood estimate. Overdue projects
	// report 100.
	Probability int `json:"probability"`
}

// DashboardMetrics aggregates the headline numbers for the dashboard.
// All figures are restricted to projects visible to the requesting user.
type DashboardMetrics struct {
	TotalProjects    int     `json:"total_projects"`
	ActiveProjects   int     `json:"active_projects"`
	TotalBudget      float64 `json:"total_budget"`
	SpentBudget      float64 `json:"spent_budget"`
	PendingExpenses  int     `json:"pending_expenses"`
	OverBudget       int     `json:"over_budget"`
	AvgUtilization   float64 `json:"avg_utilization"`
	UpcomingDeadline int     `json:"upcoming_deadlines"`
}
