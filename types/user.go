package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address, used as the login name.
	Email string `json:"email" db:"email"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name"`

	// Role indicates the user's authorization level within the system.
	// One of "user", "analyst", "manager", "admin".
	Role string `json:"role" db:"role"`

	// Department is the organizational unit the user belongs to.
	Department string `json:"department" db:"department"`

	// IsActive indicates whether the account may authenticate.
	// Inactive accounts are rejected at login.
	IsActive bool `json:"is_active" db:"is_active"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
