package models

import "time"

// Obligation is an amount a patient owes for a treatment. Ledger bookkeeping
// lives outside this service; only the record itself is managed here.
type Obligation struct {
	ID        string     `db:"id" json:"id"`
	BranchID  string     `db:"branch_id" json:"branch_id"`
	PatientID string     `db:"patient_id" json:"patient_id"`
	Amount    float64    `db:"amount" json:"amount"`
	IsPaid    bool       `db:"is_paid" json:"is_paid"`
	PaidAt    *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	Method    *string    `db:"method" json:"method,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Deposit is an up-front payment held against a patient's account.
type Deposit struct {
	ID        string    `db:"id" json:"id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
