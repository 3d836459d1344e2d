package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/edubridge-api/internal/models"
	"github.com/edubridge/edubridge-api/pkg/jobs"
)

type fakeAnnouncementRepo struct {
	announcements map[string]*models.Announcement
	recipients    []string
}

func newFakeAnnouncementRepo(recipients ...string) *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{announcements: map[string]*models.Announcement{}, recipients: recipients}
}

func (f *fakeAnnouncementRepo) List(context.Context, models.AnnouncementFilter) ([]models.Announcement, int, error) {
	return nil, 0, nil
}

func (f *fakeAnnouncementRepo) FindByID(_ context.Context, id string) (*models.Announcement, error) {
	a, ok := f.announcements[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (f *fakeAnnouncementRepo) Create(_ context.Context, a *models.Announcement) error {
	a.ID = "ann-1"
	f.announcements[a.ID] = a
	return nil
}

func (f *fakeAnnouncementRepo) Delete(_ context.Context, id string) error {
	delete(f.announcements, id)
	return nil
}

func (f *fakeAnnouncementRepo) RecipientsForAudience(context.Context, *models.Announcement) ([]string, error) {
	return f.recipients, nil
}

type capturingNotifier struct {
	userIDs []string
	input   NotificationInput
}

func (c *capturingNotifier) Notify(_ context.Context, input NotificationInput) (*models.Notification, error) {
	c.userIDs = append(c.userIDs, input.UserID)
	c.input = input
	return &models.Notification{ID: "n-1", UserID: input.UserID}, nil
}

func (c *capturingNotifier) NotifyMany(_ context.Context, userIDs []string, input NotificationInput) []*models.Notification {
	c.userIDs = append(c.userIDs, userIDs...)
	c.input = input
	delivered := make([]*models.Notification, len(userIDs))
	for i, id := range userIDs {
		delivered[i] = &models.Notification{ID: id, UserID: id}
	}
	return delivered
}

type fakeQueue struct {
	jobs    []jobs.Job
	failAll bool
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.failAll {
		return errors.New("queue full")
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func TestAnnouncementCreateEnqueuesFanout(t *testing.T) {
	repo := newFakeAnnouncementRepo("u1", "u2")
	notif := &capturingNotifier{}
	queue := &fakeQueue{}
	svc := NewAnnouncementService(repo, notif, nil, nil)
	svc.AttachQueue(queue)

	announcement, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:     "Sports day",
		Content:   "Friday on the main field",
		Audience:  "ALL",
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "announcement_fanout", queue.jobs[0].Type)

	// Nothing notified until the queued job runs.
	assert.Empty(t, notif.userIDs)

	handler := svc.FanoutHandler()
	require.NoError(t, handler(context.Background(), queue.jobs[0]))
	assert.ElementsMatch(t, []string{"u1", "u2"}, notif.userIDs)
	assert.Equal(t, models.NotificationAnnouncement, notif.input.Type)
	assert.Equal(t, announcement.ID, *notif.input.RelatedID)
}

func TestAnnouncementCreateFansOutInlineWhenEnqueueFails(t *testing.T) {
	repo := newFakeAnnouncementRepo("u1")
	notif := &capturingNotifier{}
	svc := NewAnnouncementService(repo, notif, nil, nil)
	svc.AttachQueue(&fakeQueue{failAll: true})

	_, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:     "Exam schedule",
		Content:   "Posted on the board",
		Audience:  "STUDENTS",
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, notif.userIDs)
}

func TestAnnouncementCreateClassAudienceNeedsTargetClass(t *testing.T) {
	svc := NewAnnouncementService(newFakeAnnouncementRepo(), &capturingNotifier{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:     "Class picnic",
		Content:   "Bring snacks",
		Audience:  "CLASS",
		CreatedBy: "admin-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_class")
}

func TestAnnouncementCreateRejectsUnknownAudience(t *testing.T) {
	svc := NewAnnouncementService(newFakeAnnouncementRepo(), &capturingNotifier{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:     "Oops",
		Content:   "Bad audience",
		Audience:  "EVERYONE",
		CreatedBy: "admin-1",
	})
	require.Error(t, err)
}

func TestAnnouncementFanoutTTLFollowsExpiry(t *testing.T) {
	repo := newFakeAnnouncementRepo("u1")
	notif := &capturingNotifier{}
	svc := NewAnnouncementService(repo, notif, nil, nil)

	expires := time.Now().UTC().Add(48 * time.Hour)
	_, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:     "Term dates",
		Content:   "See attached",
		Audience:  "PARENTS",
		ExpiresAt: &expires,
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.InDelta(t, (48 * time.Hour).Seconds(), notif.input.TTL.Seconds(), 60)
}
