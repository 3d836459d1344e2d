package repository

import (
	"context"

	"github.com/edubridge/edubridge-api/internal/models"
)

// ProfileRepository bundles the role-profile lookups the authorization
// policy needs into a single store.
type ProfileRepository struct {
	teachers *TeacherRepository
	parents  *ParentRepository
	students *StudentRepository
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(teachers *TeacherRepository, parents *ParentRepository, students *StudentRepository) *ProfileRepository {
	return &ProfileRepository{teachers: teachers, parents: parents, students: students}
}

// TeacherByUserID resolves the teacher profile behind a user account.
func (r *ProfileRepository) TeacherByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	return r.teachers.FindByUserID(ctx, userID)
}

// ParentByUserID resolves the parent profile behind a user account.
func (r *ProfileRepository) ParentByUserID(ctx context.Context, userID string) (*models.ParentDetail, error) {
	return r.parents.FindByUserID(ctx, userID)
}

// StudentByID returns a student by primary key.
func (r *ProfileRepository) StudentByID(ctx context.Context, id string) (*models.Student, error) {
	return r.students.FindByID(ctx, id)
}
