package models

import "time"

// Classroom represents a class-section with capacity.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Class     string    `db:"class" json:"class"`
	Section   string    `db:"section" json:"section"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter captures filtering options for listing classrooms.
type ClassroomFilter struct {
	Class    string
	Page     int
	PageSize int
}
