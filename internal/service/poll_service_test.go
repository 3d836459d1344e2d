package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/edubridge-api/internal/models"
	appErrors "github.com/edubridge/edubridge-api/pkg/errors"
)

type fakePollRepo struct {
	poll    *models.Poll
	options []models.PollOption
	votes   map[string]string // userID -> optionID
}

func newFakePollRepo(poll *models.Poll, options []models.PollOption) *fakePollRepo {
	return &fakePollRepo{poll: poll, options: options, votes: map[string]string{}}
}

func (f *fakePollRepo) List(ctx context.Context, page, size int) ([]models.Poll, int, error) {
	if f.poll == nil {
		return nil, 0, nil
	}
	return []models.Poll{*f.poll}, 1, nil
}

func (f *fakePollRepo) FindByID(ctx context.Context, id string) (*models.Poll, []models.PollOption, error) {
	if f.poll == nil || f.poll.ID != id {
		return nil, nil, sql.ErrNoRows
	}
	return f.poll, f.options, nil
}

func (f *fakePollRepo) Create(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	poll.ID = "poll-1"
	f.poll = poll
	f.options = options
	return nil
}

func (f *fakePollRepo) Vote(ctx context.Context, vote *models.PollVote) (bool, error) {
	if _, voted := f.votes[vote.UserID]; voted {
		return false, nil
	}
	f.votes[vote.UserID] = vote.OptionID
	return true, nil
}

func (f *fakePollRepo) Results(ctx context.Context, pollID string) ([]models.PollResult, error) {
	counts := map[string]int{}
	for _, optionID := range f.votes {
		counts[optionID]++
	}
	results := make([]models.PollResult, 0, len(f.options))
	for _, opt := range f.options {
		results = append(results, models.PollResult{OptionID: opt.ID, Label: opt.Label, Votes: counts[opt.ID]})
	}
	return results, nil
}

func (f *fakePollRepo) Delete(ctx context.Context, id string) error { return nil }

func openPoll() (*models.Poll, []models.PollOption) {
	return &models.Poll{ID: "poll-1", Question: "Sports day date?", Audience: "ALL", CreatedBy: "admin-1"},
		[]models.PollOption{
			{ID: "opt-1", PollID: "poll-1", Label: "Friday", Position: 0},
			{ID: "opt-2", PollID: "poll-1", Label: "Saturday", Position: 1},
		}
}

func TestPollServiceVoteOnce(t *testing.T) {
	poll, options := openPoll()
	repo := newFakePollRepo(poll, options)
	svc := NewPollService(repo, nil, nil)

	err := svc.Vote(context.Background(), "poll-1", "user-1", VoteRequest{OptionID: "opt-1"})
	require.NoError(t, err)

	err = svc.Vote(context.Background(), "poll-1", "user-1", VoteRequest{OptionID: "opt-2"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// The first vote stands.
	assert.Equal(t, "opt-1", repo.votes["user-1"])
}

func TestPollServiceVoteClosedPoll(t *testing.T) {
	poll, options := openPoll()
	closed := time.Now().UTC().Add(-time.Hour)
	poll.ClosesAt = &closed
	svc := NewPollService(newFakePollRepo(poll, options), nil, nil)

	err := svc.Vote(context.Background(), "poll-1", "user-1", VoteRequest{OptionID: "opt-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestPollServiceVoteForeignOption(t *testing.T) {
	poll, options := openPoll()
	svc := NewPollService(newFakePollRepo(poll, options), nil, nil)

	err := svc.Vote(context.Background(), "poll-1", "user-1", VoteRequest{OptionID: "opt-99"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPollServiceCreateRequiresTwoOptions(t *testing.T) {
	svc := NewPollService(newFakePollRepo(nil, nil), nil, nil)

	_, err := svc.Create(context.Background(), CreatePollRequest{
		Question:  "Pick one",
		Audience:  "ALL",
		Options:   []string{"only choice"},
		CreatedBy: "admin-1",
	})
	require.Error(t, err)
}

func TestPollServiceResults(t *testing.T) {
	poll, options := openPoll()
	repo := newFakePollRepo(poll, options)
	svc := NewPollService(repo, nil, nil)

	require.NoError(t, svc.Vote(context.Background(), "poll-1", "user-1", VoteRequest{OptionID: "opt-1"}))
	require.NoError(t, svc.Vote(context.Background(), "poll-1", "user-2", VoteRequest{OptionID: "opt-1"}))

	results, err := svc.Results(context.Background(), "poll-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Votes)
	assert.Equal(t, 0, results[1].Votes)
}
