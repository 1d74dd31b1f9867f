package types

import "time"

// Project statuses.
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on-hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Project represents a budgeted project in the system.
// It contains budget figures, ownership, scheduling, and derived
// dashboard fields computed at query time.
type Project struct {
	// ID is the unique identifier of the project.
	ID int `json:"id" db:"id"`

	// Name is the human-readable name of the project.
	Name string `json:"name" db:"name"`

	// Description contains free-form details about the project.
	Description string `json:"description" db:"description"`

	// TotalBudget is the approved overall budget for the project.
	TotalBudget float64 `json:"total_budget" db:"total_budget"`

	// AllocatedBudget is the part of the total budget distributed
	// across budget categories.
	AllocatedBudget float64 `json:"allocated_budget" db:"allocated_budget"`

	// SpentBudget is the running total of approved expenses. It is
	// maintained by atomic increments when expenses are approved and
	// may exceed TotalBudget; overruns are surfaced as risk, not
	// rejected.
	SpentBudget float64 `json:"spent_budget" db:"spent_budget"`

	// BusinessUnitID identifies the owning business unit, if any.
	BusinessUnitID *int `json:"business_unit_id" db:"business_unit_id"`

	// ProjectManagerID identifies the user who owns the project.
	// The manager always has read access regardless of team rows.
	ProjectManagerID int `json:"project_manager_id" db:"project_manager_id"`

	// StartDate and EndDate bound the project schedule.
	StartDate *time.Time `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date" db:"end_date"`

	// Status is one of the ProjectStatus* constants.
	Status string `json:"status" db:"status"`

	// TeamSize is the number of distinct team members. Derived at
	// query time, never stored.
	TeamSize int `json:"team_size" db:"-"`

	// BudgetUtilization is SpentBudget/TotalBudget as a percentage.
	// Derived at query time; zero when TotalBudget is zero.
	BudgetUtilization float64 `json:"budget_utilization" db:"-"`

	// CreatedAt is the timestamp at which the project was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the project.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectTeam links a user to a project. The existence of a row grants
// the user read access to the project; the Role value is presentational
// and carries no additional authorization semantics.
type ProjectTeam struct {
	ID        int       `json:"id" db:"id"`
	ProjectID int       `json:"project_id" db:"project_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Milestone represents a scheduled checkpoint within a project.
type Milestone struct {
	ID        int        `json:"id" db:"id"`
	ProjectID int        `json:"project_id" db:"project_id"`
	Name      string     `json:"name" db:"name"`
	DueDate   *time.Time `json:"due_date" db:"due_date"`

	// Progress is a completion percentage in [0, 100].
	Progress int `json:"progress" db:"progress"`

	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BusinessUnit groups projects under an organizational division.
type BusinessUnit struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
