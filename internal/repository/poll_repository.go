package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edubridge/edubridge-api/internal/models"
)

// PollRepository manages persistence for polls, options and votes.
type PollRepository struct {
	db *sqlx.DB
}

// NewPollRepository constructs a PollRepository.
func NewPollRepository(db *sqlx.DB) *PollRepository {
	return &PollRepository{db: db}
}

const pollColumns = "id, question, audience, closes_at, created_by, created_at, updated_at"

// List returns polls, newest first.
func (r *PollRepository) List(ctx context.Context, page, size int) ([]models.Poll, int, error) {
	page, size = normalizePage(page, size)

	query := fmt.Sprintf("SELECT %s FROM polls ORDER BY created_at DESC LIMIT %d OFFSET %d",
		pollColumns, size, (page-1)*size)

	var polls []models.Poll
	if err := r.db.SelectContext(ctx, &polls, query); err != nil {
		return nil, 0, fmt.Errorf("list polls: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM polls"); err != nil {
		return nil, 0, fmt.Errorf("count polls: %w", err)
	}
	return polls, total, nil
}

// FindByID fetches a poll and its options.
func (r *PollRepository) FindByID(ctx context.Context, id string) (*models.Poll, []models.PollOption, error) {
	query := fmt.Sprintf("SELECT %s FROM polls WHERE id = $1", pollColumns)
	var poll models.Poll
	if err := r.db.GetContext(ctx, &poll, query, id); err != nil {
		return nil, nil, err
	}

	var options []models.PollOption
	const optQuery = `SELECT id, poll_id, label, position FROM poll_options WHERE poll_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &options, optQuery, id); err != nil {
		return nil, nil, fmt.Errorf("poll options: %w", err)
	}
	return &poll, options, nil
}

// Create inserts a poll with its options in one transaction.
func (r *PollRepository) Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = now
	}
	poll.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const pollQuery = `INSERT INTO polls (id, question, audience, closes_at, created_by, created_at, updated_at)
        VALUES (:id, :question, :audience, :closes_at, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, pollQuery, poll); err != nil {
		return fmt.Errorf("create poll: %w", err)
	}

	const optQuery = `INSERT INTO poll_options (id, poll_id, label, position) VALUES ($1, $2, $3, $4)`
	for i := range options {
		if options[i].ID == "" {
			options[i].ID = uuid.NewString()
		}
		options[i].PollID = poll.ID
		options[i].Position = i
		if _, err := tx.ExecContext(ctx, optQuery, options[i].ID, poll.ID, options[i].Label, i); err != nil {
			return fmt.Errorf("create poll option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Vote records a user's vote. The primary key on (poll_id, user_id) makes a
// second vote by the same user a conflict; reports whether the vote counted.
func (r *PollRepository) Vote(ctx context.Context, vote *models.PollVote) (bool, error) {
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO poll_votes (poll_id, option_id, user_id, created_at)
        VALUES (:poll_id, :option_id, :user_id, :created_at)
        ON CONFLICT (poll_id, user_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, vote)
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record vote rows: %w", err)
	}
	return affected > 0, nil
}

// Results aggregates vote counts per option for a poll.
func (r *PollRepository) Results(ctx context.Context, pollID string) ([]models.PollResult, error) {
	const query = `SELECT o.id AS option_id, o.label, COUNT(v.user_id) AS votes
        FROM poll_options o
        LEFT JOIN poll_votes v ON v.option_id = o.id
        WHERE o.poll_id = $1
        GROUP BY o.id, o.label, o.position
        ORDER BY o.position`
	var results []models.PollResult
	if err := r.db.SelectContext(ctx, &results, query, pollID); err != nil {
		return nil, fmt.Errorf("poll results: %w", err)
	}
	return results, nil
}

// Delete removes a poll with its options and votes.
func (r *PollRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	return nil
}
