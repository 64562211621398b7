package models

import "time"

// StaffRole enumerates the roles a staff member can hold inside a branch.
type StaffRole string

const (
	StaffRoleDoctor    StaffRole = "doctor"
	StaffRoleAssistant StaffRole = "assistant"
	StaffRoleReception StaffRole = "reception"
	StaffRoleOther     StaffRole = "other"
)

// Valid reports whether the role is one of the known values.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleDoctor, StaffRoleAssistant, StaffRoleReception, StaffRoleOther:
		return true
	default:
		return false
	}
}

// Schedulable reports whether the role participates in appointment scheduling.
func (r StaffRole) Schedulable() bool {
	return r == StaffRoleDoctor || r == StaffRoleAssistant
}

// Staff represents a branch employee stored in the staff table.
type Staff struct {
	ID        string    `db:"id" json:"id"`
	BranchID  string    `db:"branch_id" json:"branch_id"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     string    `db:"email" json:"email"`
	Role      StaffRole `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter captures filtering criteria for listing staff members.
type StaffFilter struct {
	BranchID  string
	Role      *StaffRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
