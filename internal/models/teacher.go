package models

import "time"

// ClassSection identifies a (class, section) pair a teacher is assigned to.
type ClassSection struct {
	Class   string `db:"class" json:"class"`
	Section string `db:"section" json:"section"`
}

// Teacher represents an instructor record.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Subject   string    `db:"subject" json:"subject"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail carries a teacher together with assigned classes.
type TeacherDetail struct {
	Teacher
	Classes []ClassSection `json:"classes"`
}

// TeachesClass reports whether the teacher is assigned the given pair.
func (t TeacherDetail) TeachesClass(class, section string) bool {
	for _, cs := range t.Classes {
		if cs.Class == class && cs.Section == section {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
