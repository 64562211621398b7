package models

import "time"

// Patient is a clinic patient registered within a branch.
type Patient struct {
	ID        string     `db:"id" json:"id"`
	BranchID  string     `db:"branch_id" json:"branch_id"`
	Name      string     `db:"name" json:"name"`
	Surname   string     `db:"surname" json:"surname"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientFilter captures filtering criteria for listing patients.
type PatientFilter struct {
	BranchID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
