package models

import "time"

// Grade represents a recorded exam result for a student.
type Grade struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Subject    string    `db:"subject" json:"subject"`
	Exam       string    `db:"exam" json:"exam"`
	Score      float64   `db:"score" json:"score"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	Remarks    string    `db:"remarks" json:"remarks"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// GradeFilter captures filtering options for listing grades.
type GradeFilter struct {
	StudentID string
	Subject   string
	Exam      string
	Page      int
	PageSize  int
}
