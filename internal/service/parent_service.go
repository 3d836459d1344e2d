package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type parentRepository interface {
	List(ctx context.Context, filter models.ParentFilter) ([]models.Parent, int, error)
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
	Create(ctx context.Context, parent *models.Parent) error
	Update(ctx context.Context, parent *models.Parent) error
	ReplaceChildren(ctx context.Context, parentID string, studentIDs []string) error
}

// ParentService handles guardian record workflows.
type ParentService struct {
	repo      parentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParentService constructs a ParentService.
func NewParentService(repo parentRepository, validate *validator.Validate, logger *zap.Logger) *ParentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentService{repo: repo, validator: validate, logger: logger}
}

// CreateParentRequest describes the parent creation payload.
type CreateParentRequest struct {
	UserID   *string  `json:"user_id"`
	Name     string   `json:"full_name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    *string  `json:"phone"`
	Children []string `json:"children"`
}

// UpdateParentRequest describes the parent update payload.
type UpdateParentRequest struct {
	Name     string   `json:"full_name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    *string  `json:"phone"`
	Children []string `json:"children"`
	Active   bool     `json:"active"`
}

// List returns parents with pagination.
func (s *ParentService) List(ctx context.Context, filter models.ParentFilter) ([]models.Parent, *models.Pagination, error) {
	parents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list parents")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return parents, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a parent with linked children.
func (s *ParentService) Get(ctx context.Context, id string) (*models.ParentDetail, error) {
	parent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent")
	}
	return parent, nil
}

// Create registers a new parent with optional child links.
func (s *ParentService) Create(ctx context.Context, req CreateParentRequest) (*models.ParentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent payload")
	}
	parent := &models.Parent{
		UserID:   req.UserID,
		FullName: req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Active:   true,
	}
	if err := s.repo.Create(ctx, parent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create parent")
	}
	if len(req.Children) > 0 {
		if err := s.repo.ReplaceChildren(ctx, parent.ID, req.Children); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link children")
		}
	}
	return &models.ParentDetail{Parent: *parent, Children: req.Children}, nil
}

// Update modifies a parent and replaces child links.
func (s *ParentService) Update(ctx context.Context, id string, req UpdateParentRequest) (*models.ParentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent")
	}
	existing.FullName = req.Name
	existing.Email = req.Email
	existing.Phone = req.Phone
	existing.Active = req.Active
	if err := s.repo.Update(ctx, &existing.Parent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update parent")
	}
	if err := s.repo.ReplaceChildren(ctx, id, req.Children); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link children")
	}
	existing.Children = req.Children
	return existing, nil
}
