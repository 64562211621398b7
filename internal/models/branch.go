package models

import "time"

// Branch is an organizational sub-unit of an institution. Staff, patients,
// offices and events are scoped to exactly one branch.
type Branch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsMother  bool      `db:"is_mother" json:"is_mother"`
	OwnerID   *string   `db:"owner_id" json:"owner_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
