package models

import "time"

// Assignment represents homework targeted at a class-section.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Class       string    `db:"class" json:"class"`
	Section     string    `db:"section" json:"section"`
	Subject     string    `db:"subject" json:"subject"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter captures filtering options for listing assignments.
type AssignmentFilter struct {
	Class    string
	Section  string
	Subject  string
	Page     int
	PageSize int
}
