package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/mailer"
	"github.com/edubridge/edubridge-api/internal/models"
	"github.com/edubridge/edubridge-api/pkg/config"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type recipientStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Pusher is the realtime channel seen by the dispatcher.
type Pusher interface {
	EmitToUser(ctx context.Context, userID, event string, payload interface{}) error
	IsReachable(ctx context.Context, userID string) bool
}

// Mailer is the email channel seen by the dispatcher.
type Mailer interface {
	Send(ctx context.Context, email mailer.Email) error
}

type deliveryRecorder interface {
	NotificationDelivered(channel, outcome string)
}

// NotificationService dispatches notifications across three channels: a
// realtime push, a durable database record, and email. Only the database
// record is load-bearing; push and email failures are logged and swallowed.
type NotificationService struct {
	store      notificationStore
	recipients recipientStore
	pusher     Pusher
	mailer     Mailer
	metrics    deliveryRecorder
	validator  *validator.Validate
	logger     *zap.Logger
	defaultTTL time.Duration
}

// NewNotificationService constructs the dispatcher. Pusher, mailer and
// metrics may be nil; the corresponding channel is simply skipped.
func NewNotificationService(store notificationStore, recipients recipientStore, pusher Pusher, m Mailer, metrics deliveryRecorder, cfg config.NotificationsConfig, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &NotificationService{
		store:      store,
		recipients: recipients,
		pusher:     pusher,
		mailer:     m,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		defaultTTL: ttl,
	}
}

// NotificationInput describes a single notification to dispatch.
type NotificationInput struct {
	UserID       string                      `validate:"required"`
	Title        string                      `validate:"required"`
	Message      string                      `validate:"required"`
	Type         models.NotificationType     `validate:"required"`
	Priority     models.NotificationPriority `validate:"required"`
	RelatedModel *string
	RelatedID    *string
	TTL          time.Duration
}

// Notify delivers one notification: push first, then the durable record,
// then email. It fails only when the database write fails; the other two
// channels are best-effort.
func (s *NotificationService) Notify(ctx context.Context, input NotificationInput) (*models.Notification, error) {
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification")
	}
	if !models.ValidNotificationType(input.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification type")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().UTC().Add(ttl)

	n := &models.Notification{
		UserID:       input.UserID,
		Title:        input.Title,
		Message:      input.Message,
		Type:         input.Type,
		Priority:     input.Priority,
		RelatedModel: input.RelatedModel,
		RelatedID:    input.RelatedID,
		ExpiresAt:    &expiresAt,
	}

	s.push(ctx, n)

	if err := s.store.Create(ctx, n); err != nil {
		s.record("persist", "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist notification")
	}
	s.record("persist", "ok")

	s.email(ctx, n)

	return n, nil
}

// NotifyMany dispatches one notification per recipient, sequentially. A
// failure for one recipient never blocks the rest; per-recipient errors are
// logged and the call itself never fails.
func (s *NotificationService) NotifyMany(ctx context.Context, userIDs []string, input NotificationInput) []*models.Notification {
	delivered := make([]*models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		perUser := input
		perUser.UserID = userID
		n, err := s.Notify(ctx, perUser)
		if err != nil {
			s.logger.Error("notification dispatch failed",
				zap.String("user_id", userID),
				zap.String("type", string(input.Type)),
				zap.Error(err))
			continue
		}
		delivered = append(delivered, n)
	}
	return delivered
}

func (s *NotificationService) push(ctx context.Context, n *models.Notification) {
	if s.pusher == nil {
		return
	}
	if !s.pusher.IsReachable(ctx, n.UserID) {
		s.record("push", "offline")
		return
	}
	if err := s.pusher.EmitToUser(ctx, n.UserID, "notification", n); err != nil {
		s.record("push", "error")
		s.logger.Warn("push delivery failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	s.record("push", "ok")
}

func (s *NotificationService) email(ctx context.Context, n *models.Notification) {
	if s.mailer == nil {
		return
	}
	user, err := s.recipients.FindByID(ctx, n.UserID)
	if err != nil {
		s.record("email", "error")
		s.logger.Warn("email recipient lookup failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	if !user.EmailNotifications {
		s.record("email", "opted_out")
		return
	}
	msg := mailer.Email{
		To:      user.Email,
		ToName:  user.FullName,
		Subject: n.Title,
		Body:    n.Message,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.record("email", "error")
		s.logger.Warn("email delivery failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	s.record("email", "ok")
}

func (s *NotificationService) record(channel, outcome string) {
	if s.metrics != nil {
		s.metrics.NotificationDelivered(channel, outcome)
	}
}

// List returns a user's notifications with pagination.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
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

// UnreadCount returns the user's live unread count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read. Repeat calls and
// misses are no-op successes; the stored read_at keeps its original value.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.store.MarkRead(ctx, userID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every live unread notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return affected, nil
}

// StartPurgeLoop deletes expired notifications on an interval until ctx is
// cancelled.
func (s *NotificationService) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.store.PurgeExpired(ctx)
				if err != nil {
					s.logger.Error("notification purge failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					s.logger.Info("purged expired notifications", zap.Int64("count", purged))
				}
			}
		}
	}()
}
