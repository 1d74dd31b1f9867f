package types

import "time"

// Expense statuses.
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Budget version statuses.
const (
	BudgetVersionStatusDraft    = "draft"
	BudgetVersionStatusPending  = "pending"
	BudgetVersionStatusApproved = "approved"
	BudgetVersionStatusRejected = "rejected"
)

// BudgetCategory is a named slice of a project's budget with its own
// allocation and running spend.
type BudgetCategory struct {
	ID              int       `json:"id" db:"id"`
	ProjectID       int       `json:"project_id" db:"project_id"`
	Name            string    `json:"name" db:"name"`
	AllocatedAmount float64   `json:"allocated_amount" db:"allocated_amount"`
	SpentAmount     float64   `json:"spent_amount" db:"spent_amount"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Expense represents a single cost charged against a project, and
// optionally one of its budget categories.
type Expense struct {
	ID          int    `json:"id" db:"id"`
	ProjectID   int    `json:"project_id" db:"project_id"`
	CategoryID  *int   `json:"category_id" db:"category_id"`
	Description string `json:"description" db:"description"`

	// Amount is the expense value. It is only added to spent totals
	// once the expense is approved.
	Amount float64 `json:"amount" db:"amount"`

	// Status is one of the ExpenseStatus* constants.
	Status string `json:"status" db:"status"`

	ExpenseDate *time.Time `json:"expense_date" db:"expense_date"`

	// ReceiptKey is the object-storage key of the uploaded receipt,
	// if one was attached.
	ReceiptKey *string `json:"receipt_key" db:"receipt_key"`

	SubmittedBy int       `json:"submitted_by" db:"submitted_by"`
	ApprovedBy  *int      `json:"approved_by" db:"approved_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// BudgetVersion is a versioned snapshot of a project's budget proposal.
// VersionNumber increments per project, starting at 1.
type BudgetVersion struct {
	ID            int       `json:"id" db:"id"`
	ProjectID     int       `json:"project_id" db:"project_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	TotalBudget   float64   `json:"total_budget" db:"total_budget"`
	Notes         string    `json:"notes" db:"notes"`
	Status        string    `json:"status" db:"status"`
	CreatedBy     int       `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
