package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type classSectionLister interface {
	ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error)
}

// AssignmentService handles homework workflows. Publishing an assignment
// notifies every student in the targeted class-section.
type AssignmentService struct {
	repo      assignmentRepository
	students  classSectionLister
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, students classSectionLister, n notifier, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, students: students, notifier: n, validator: validate, logger: logger}
}

// AssignmentRequest describes create and update payloads.
type AssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Class       string    `json:"class" validate:"required"`
	Section     string    `json:"section" validate:"required"`
	Subject     string    `json:"subject" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	CreatedBy   string    `json:"created_by" validate:"required"`
}

// List returns assignments with pagination.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an assignment by ID.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create publishes an assignment and notifies the class.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment := &models.Assignment{
		Title:       req.Title,
		Description: req.Description,
		Class:       req.Class,
		Section:     req.Section,
		Subject:     req.Subject,
		DueDate:     req.DueDate,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if s.notifier != nil {
		students, serr := s.students.ListByClassSection(ctx, req.Class, req.Section)
		if serr != nil {
			s.logger.Warn("failed to resolve class for assignment notification",
				zap.String("class", req.Class), zap.String("section", req.Section), zap.Error(serr))
		} else {
			var userIDs []string
			for _, st := range students {
				if st.UserID != nil {
					userIDs = append(userIDs, *st.UserID)
				}
			}
			related := "assignments"
			s.notifier.NotifyMany(ctx, userIDs, NotificationInput{
				Title:        fmt.Sprintf("New %s assignment: %s", req.Subject, req.Title),
				Message:      fmt.Sprintf("Due %s. %s", req.DueDate.Format("2006-01-02"), req.Description),
				Type:         models.NotificationAssignment,
				Priority:     models.PriorityMedium,
				RelatedModel: &related,
				RelatedID:    &assignment.ID,
			})
		}
	}
	return assignment, nil
}

// Update modifies an existing assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.Class = req.Class
	assignment.Section = req.Section
	assignment.Subject = req.Subject
	assignment.DueDate = req.DueDate
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
