package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type pollRepository interface {
	List(ctx context.Context, page, size int) ([]models.Poll, int, error)
	FindByID(ctx context.Context, id string) (*models.Poll, []models.PollOption, error)
	Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error
	Vote(ctx context.Context, vote *models.PollVote) (bool, error)
	Results(ctx context.Context, pollID string) ([]models.PollResult, error)
	Delete(ctx context.Context, id string) error
}

// PollService handles polls and single-vote enforcement.
type PollService struct {
	repo      pollRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPollService constructs a PollService.
func NewPollService(repo pollRepository, validate *validator.Validate, logger *zap.Logger) *PollService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollService{repo: repo, validator: validate, logger: logger}
}

// CreatePollRequest describes the poll creation payload.
type CreatePollRequest struct {
	Question  string     `json:"question" validate:"required"`
	Audience  string     `json:"audience" validate:"required"`
	Options   []string   `json:"options" validate:"required,min=2"`
	ClosesAt  *time.Time `json:"closes_at"`
	CreatedBy string     `json:"created_by" validate:"required"`
}

// VoteRequest describes the vote payload.
type VoteRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

// PollDetail bundles a poll with its options.
type PollDetail struct {
	Poll    models.Poll         `json:"poll"`
	Options []models.PollOption `json:"options"`
}

// List returns polls with pagination.
func (s *PollService) List(ctx context.Context, page, size int) ([]models.Poll, *models.Pagination, error) {
	polls, total, err := s.repo.List(ctx, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list polls")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return polls, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a poll with its options.
func (s *PollService) Get(ctx context.Context, id string) (*PollDetail, error) {
	poll, options, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	return &PollDetail{Poll: *poll, Options: options}, nil
}

// Create registers a poll with its options.
func (s *PollService) Create(ctx context.Context, req CreatePollRequest) (*PollDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid poll payload")
	}
	poll := &models.Poll{
		Question:  req.Question,
		Audience:  req.Audience,
		ClosesAt:  req.ClosesAt,
		CreatedBy: req.CreatedBy,
	}
	options := make([]models.PollOption, len(req.Options))
	for i, label := range req.Options {
		options[i] = models.PollOption{Label: label}
	}
	if err := s.repo.Create(ctx, poll, options); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create poll")
	}
	return &PollDetail{Poll: *poll, Options: options}, nil
}

// Vote records the user's vote. Each user votes once; repeat votes are
// rejected.
func (s *PollService) Vote(ctx context.Context, pollID, userID string, req VoteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}

	poll, options, err := s.repo.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	if poll.ClosesAt != nil && time.Now().UTC().After(*poll.ClosesAt) {
		return appErrors.Clone(appErrors.ErrValidation, "poll is closed")
	}

	found := false
	for _, opt := range options {
		if opt.ID == req.OptionID {
			found = true
			break
		}
	}
	if !found {
		return appErrors.Clone(appErrors.ErrValidation, "option does not belong to this poll")
	}

	counted, err := s.repo.Vote(ctx, &models.PollVote{PollID: pollID, OptionID: req.OptionID, UserID: userID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}
	if !counted {
		return appErrors.Clone(appErrors.ErrConflict, "you have already voted on this poll")
	}
	return nil
}

// Results aggregates vote counts for a poll.
func (s *PollService) Results(ctx context.Context, pollID string) ([]models.PollResult, error) {
	if _, _, err := s.repo.FindByID(ctx, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "poll not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load poll")
	}
	results, err := s.repo.Results(ctx, pollID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	return results, nil
}

// Delete removes a poll.
func (s *PollService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete poll")
	}
	return nil
}
