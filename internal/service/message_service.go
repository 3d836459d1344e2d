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

type messageRepository interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	MarkRead(ctx context.Context, recipientID, id string) error
}

// MessageService handles direct messages between users. Sending one
// notifies the recipient.
type MessageService struct {
	repo      messageRepository
	users     recipientStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo messageRepository, users recipientStore, n notifier, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, users: users, notifier: n, validator: validate, logger: logger}
}

// SendMessageRequest describes the send payload.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

// List returns the user's messages with pagination.
func (s *MessageService) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, *models.Pagination, error) {
	messages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return messages, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a message visible to the requesting user.
func (s *MessageService) Get(ctx context.Context, userID, id string) (*models.Message, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	if message.SenderID != userID && message.RecipientID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "message does not involve you")
	}
	return message, nil
}

// Send stores a message and notifies the recipient.
func (s *MessageService) Send(ctx context.Context, senderID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if senderID == req.RecipientID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sender")
	}
	if _, err := s.users.FindByID(ctx, req.RecipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}

	message := &models.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Body:        req.Body,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	if s.notifier != nil {
		related := "messages"
		if _, nerr := s.notifier.Notify(ctx, NotificationInput{
			UserID:       req.RecipientID,
			Title:        fmt.Sprintf("New message from %s", sender.FullName),
			Message:      req.Subject,
			Type:         models.NotificationMessage,
			Priority:     models.PriorityMedium,
			RelatedModel: &related,
			RelatedID:    &message.ID,
		}); nerr != nil {
			s.logger.Warn("failed to notify message recipient", zap.String("message_id", message.ID), zap.Error(nerr))
		}
	}
	return message, nil
}

// MarkRead flags a message read for its recipient.
func (s *MessageService) MarkRead(ctx context.Context, recipientID, id string) error {
	if err := s.repo.MarkRead(ctx, recipientID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark message read")
	}
	return nil
}
