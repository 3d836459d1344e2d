package models

import "time"

// FeeStatus enumerates the lifecycle states of a fee.
type FeeStatus string

const (
	FeePending FeeStatus = "PENDING"
	FeePaid    FeeStatus = "PAID"
	FeeOverdue FeeStatus = "OVERDUE"
)

// Fee represents a payable item assigned to a student.
type Fee struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	Description   string     `db:"description" json:"description"`
	Amount        float64    `db:"amount" json:"amount"`
	DueDate       time.Time  `db:"due_date" json:"due_date"`
	Status        FeeStatus  `db:"status" json:"status"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	PaidAmount    *float64   `db:"paid_amount" json:"paid_amount,omitempty"`
	ReceiptNumber *string    `db:"receipt_number" json:"receipt_number,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FeeFilter captures filtering options for listing fees.
type FeeFilter struct {
	StudentID string
	Status    *FeeStatus
	Page      int
	PageSize  int
}
