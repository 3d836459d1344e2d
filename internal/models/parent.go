package models

import "time"

// Parent represents a guardian record.
type Parent struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParentDetail carries a parent together with linked children.
type ParentDetail struct {
	Parent
	Children []string `json:"children"`
}

// HasChild reports whether the given student is linked to the parent.
func (p ParentDetail) HasChild(studentID string) bool {
	for _, id := range p.Children {
		if id == studentID {
			return true
		}
	}
	return false
}

// ParentFilter captures filtering options for listing parents.
type ParentFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
