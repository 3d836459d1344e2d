package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID         string     `db:"id" json:"id"`
	UserID     *string    `db:"user_id" json:"user_id,omitempty"`
	FullName   string     `db:"full_name" json:"full_name"`
	Class      string     `db:"class" json:"class"`
	Section    string     `db:"section" json:"section"`
	RollNumber string     `db:"roll_number" json:"roll_number"`
	Gender     string     `db:"gender" json:"gender"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address    string     `db:"address" json:"address"`
	Phone      string     `db:"phone" json:"phone"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Class     string
	Section   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
