package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

// notifier is the dispatch surface domain services use to fan out
// notifications. Delivery is best-effort; callers never treat a missing
// notification as a failure of the triggering action.
type notifier interface {
	Notify(ctx context.Context, input NotificationInput) (*models.Notification, error)
	NotifyMany(ctx context.Context, userIDs []string, input NotificationInput) []*models.Notification
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type studentParentsReader interface {
	ParentsOfStudent(ctx context.Context, studentID string) ([]models.Parent, error)
}

// familyUserIDs resolves the notifiable accounts around a student: the
// student's own login plus every linked guardian with one.
func familyUserIDs(ctx context.Context, student *models.Student, parents studentParentsReader, logger *zap.Logger) []string {
	var ids []string
	if student.UserID != nil {
		ids = append(ids, *student.UserID)
	}
	linked, err := parents.ParentsOfStudent(ctx, student.ID)
	if err != nil {
		logger.Warn("failed to resolve parents for notification", zap.String("student_id", student.ID), zap.Error(err))
		return ids
	}
	for _, p := range linked {
		if p.UserID != nil {
			ids = append(ids, *p.UserID)
		}
	}
	return ids
}

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

// GradeService handles exam result workflows. Recording a grade notifies
// the student and their guardians.
type GradeService struct {
	repo      gradeRepository
	students  studentReader
	parents   studentParentsReader
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(repo gradeRepository, students studentReader, parents studentParentsReader, n notifier, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, students: students, parents: parents, notifier: n, validator: validate, logger: logger}
}

// GradeRequest describes create and update payloads.
type GradeRequest struct {
	StudentID  string  `json:"student_id" validate:"required"`
	Subject    string  `json:"subject" validate:"required"`
	Exam       string  `json:"exam" validate:"required"`
	Score      float64 `json:"score" validate:"gte=0"`
	MaxScore   float64 `json:"max_score" validate:"gt=0"`
	Remarks    string  `json:"remarks"`
	RecordedBy string  `json:"recorded_by" validate:"required"`
}

// List returns grades with pagination.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return grades, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a grade by ID.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Create records an exam result and notifies the student's family.
func (s *GradeService) Create(ctx context.Context, req GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Score > req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score cannot exceed max score")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grade := &models.Grade{
		StudentID:  req.StudentID,
		Subject:    req.Subject,
		Exam:       req.Exam,
		Score:      req.Score,
		MaxScore:   req.MaxScore,
		Remarks:    req.Remarks,
		RecordedBy: req.RecordedBy,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
	}

	if s.notifier != nil {
		related := "grades"
		s.notifier.NotifyMany(ctx, familyUserIDs(ctx, student, s.parents, s.logger), NotificationInput{
			Title:        fmt.Sprintf("New %s grade for %s", req.Subject, student.FullName),
			Message:      fmt.Sprintf("%s scored %.1f/%.1f in %s (%s)", student.FullName, req.Score, req.MaxScore, req.Subject, req.Exam),
			Type:         models.NotificationGrade,
			Priority:     models.PriorityMedium,
			RelatedModel: &related,
			RelatedID:    &grade.ID,
		})
	}
	return grade, nil
}

// Update modifies an existing grade.
func (s *GradeService) Update(ctx context.Context, id string, req GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Score > req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score cannot exceed max score")
	}
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	grade.Subject = req.Subject
	grade.Exam = req.Exam
	grade.Score = req.Score
	grade.MaxScore = req.MaxScore
	grade.Remarks = req.Remarks
	if err := s.repo.Update(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}
