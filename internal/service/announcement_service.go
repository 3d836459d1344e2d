package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
	"github.com/edubridge/edubridge-api/pkg/jobs"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
	RecipientsForAudience(ctx context.Context, announcement *models.Announcement) ([]string, error)
}

type fanoutEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AnnouncementService handles broadcast announcements. Publishing one fans
// a notification out to the resolved audience through the background queue.
type AnnouncementService struct {
	repo      announcementRepository
	notifier  notifier
	queue     fanoutEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(repo announcementRepository, n notifier, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, notifier: n, validator: validate, logger: logger}
	svc.validator.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementAudience(strings.ToUpper(fl.Field().String())) {
		case models.AudienceAll, models.AudienceTeachers, models.AudienceStudents, models.AudienceParents, models.AudienceClass:
			return true
		default:
			return false
		}
	})
	return svc
}

// AttachQueue routes fan-out through the given background queue. Without a
// queue, fan-out runs inline on the publishing request.
func (s *AnnouncementService) AttachQueue(q fanoutEnqueuer) {
	s.queue = q
}

// FanoutHandler returns the job handler that performs audience fan-out.
func (s *AnnouncementService) FanoutHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		id, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("fanout job %s has unexpected payload %T", job.ID, job.Payload)
		}
		announcement, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load announcement %s: %w", id, err)
		}
		s.fanout(ctx, announcement)
		return nil
	}
}

// CreateAnnouncementRequest describes the publish payload.
type CreateAnnouncementRequest struct {
	Title         string                      `json:"title" validate:"required"`
	Content       string                      `json:"content" validate:"required"`
	Audience      string                      `json:"audience" validate:"required,audience"`
	TargetClass   *string                     `json:"target_class"`
	TargetSection *string                     `json:"target_section"`
	Priority      models.NotificationPriority `json:"priority"`
	ExpiresAt     *time.Time                  `json:"expires_at"`
	CreatedBy     string                      `json:"created_by" validate:"required"`
}

// List returns live announcements with pagination.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an announcement by ID.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}

// Create publishes an announcement and schedules its fan-out.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	audience := models.AnnouncementAudience(strings.ToUpper(req.Audience))
	if audience == models.AudienceClass && (req.TargetClass == nil || *req.TargetClass == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_class required for CLASS audience")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	announcement := &models.Announcement{
		Title:         req.Title,
		Content:       req.Content,
		Audience:      audience,
		TargetClass:   req.TargetClass,
		TargetSection: req.TargetSection,
		Priority:      priority,
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     req.CreatedBy,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	if s.queue != nil {
		job := jobs.Job{ID: announcement.ID, Type: "announcement_fanout", Payload: announcement.ID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue announcement fanout, running inline", zap.String("announcement_id", announcement.ID), zap.Error(err))
			s.fanout(ctx, announcement)
		}
	} else {
		s.fanout(ctx, announcement)
	}
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) fanout(ctx context.Context, announcement *models.Announcement) {
	if s.notifier == nil {
		return
	}
	recipients, err := s.repo.RecipientsForAudience(ctx, announcement)
	if err != nil {
		s.logger.Error("failed to resolve announcement audience", zap.String("announcement_id", announcement.ID), zap.Error(err))
		return
	}
	related := "announcements"
	var ttl time.Duration
	if announcement.ExpiresAt != nil {
		ttl = time.Until(*announcement.ExpiresAt)
	}
	delivered := s.notifier.NotifyMany(ctx, recipients, NotificationInput{
		Title:        announcement.Title,
		Message:      announcement.Content,
		Type:         models.NotificationAnnouncement,
		Priority:     announcement.Priority,
		RelatedModel: &related,
		RelatedID:    &announcement.ID,
		TTL:          ttl,
	})
	s.logger.Info("announcement fanned out",
		zap.String("announcement_id", announcement.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", len(delivered)))
}
