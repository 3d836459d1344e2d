package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edubridge/edubridge-api/internal/models"
)

// MessageRepository manages persistence for direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = "id, sender_id, recipient_id, subject, body, read, read_at, created_at"

// List returns messages involving the given user.
func (r *MessageRepository) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	conditions := []string{"(sender_id = $1 OR recipient_id = $1)"}
	args := []interface{}{filter.UserID}

	if filter.WithUser != "" {
		conditions = append(conditions, fmt.Sprintf("(sender_id = $%d OR recipient_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.WithUser)
	}
	if filter.Unread != nil {
		conditions = append(conditions, fmt.Sprintf("read = $%d AND recipient_id = $1", len(args)+1))
		args = append(args, !*filter.Unread)
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM messages WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		messageColumns, where, size, (page-1)*size)

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM messages WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return messages, total, nil
}

// FindByID fetches a message by ID.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE id = $1", messageColumns)
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, err
	}
	return &message, nil
}

// Create inserts a new message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, recipient_id, subject, body, read, created_at)
        VALUES (:id, :sender_id, :recipient_id, :subject, :body, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// MarkRead flips a message to read for its recipient.
func (r *MessageRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	const query = `UPDATE messages SET read = TRUE, read_at = $3 WHERE id = $1 AND recipient_id = $2 AND read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, recipientID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}
