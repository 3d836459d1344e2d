package models

import "time"

// Poll represents a question put to a segment of users.
type Poll struct {
	ID        string     `db:"id" json:"id"`
	Question  string     `db:"question" json:"question"`
	Audience  string     `db:"audience" json:"audience"`
	ClosesAt  *time.Time `db:"closes_at" json:"closes_at,omitempty"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PollOption is one selectable answer on a poll.
type PollOption struct {
	ID       string `db:"id" json:"id"`
	PollID   string `db:"poll_id" json:"poll_id"`
	Label    string `db:"label" json:"label"`
	Position int    `db:"position" json:"position"`
}

// PollVote records a user's single vote on a poll.
type PollVote struct {
	PollID    string    `db:"poll_id" json:"poll_id"`
	OptionID  string    `db:"option_id" json:"option_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PollResult aggregates vote counts per option.
type PollResult struct {
	OptionID string `db:"option_id" json:"option_id"`
	Label    string `db:"label" json:"label"`
	Votes    int    `db:"votes" json:"votes"`
}
