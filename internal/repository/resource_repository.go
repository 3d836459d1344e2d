package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ResourceRepository resolves resources to their owning student. It backs
// the access policy's transitive ownership checks.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs a ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// StudentIDForGrade returns the student owning a grade record.
func (r *ResourceRepository) StudentIDForGrade(ctx context.Context, gradeID string) (string, error) {
	return r.ownerID(ctx, "grades", gradeID)
}

// StudentIDForAttendance returns the student owning an attendance record.
func (r *ResourceRepository) StudentIDForAttendance(ctx context.Context, attendanceID string) (string, error) {
	return r.ownerID(ctx, "attendance", attendanceID)
}

// StudentIDForFee returns the student owning a fee record.
func (r *ResourceRepository) StudentIDForFee(ctx context.Context, feeID string) (string, error) {
	return r.ownerID(ctx, "fees", feeID)
}

func (r *ResourceRepository) ownerID(ctx context.Context, table, id string) (string, error) {
	query := fmt.Sprintf("SELECT student_id FROM %s WHERE id = $1", table)
	var studentID string
	if err := r.db.GetContext(ctx, &studentID, query, id); err != nil {
		return "", err
	}
	return studentID, nil
}
