package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/edubridge-api/internal/mailer"
	"github.com/edubridge/edubridge-api/internal/models"
	"github.com/edubridge/edubridge-api/pkg/config"
)

type fakeNotificationStore struct {
	created    []*models.Notification
	failFor    map[string]error
	markedRead map[string]int
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{failFor: map[string]error{}, markedRead: map[string]int{}}
}

func (f *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	if err, ok := f.failFor[n.UserID]; ok {
		return err
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationStore) List(context.Context, models.NotificationFilter) ([]models.Notification, int, error) {
	out := make([]models.Notification, 0, len(f.created))
	for _, n := range f.created {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (f *fakeNotificationStore) UnreadCount(context.Context, string) (int, error) {
	return len(f.created), nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, _, id string) (bool, error) {
	f.markedRead[id]++
	return f.markedRead[id] == 1, nil
}

func (f *fakeNotificationStore) MarkAllRead(context.Context, string) (int64, error) {
	return int64(len(f.created)), nil
}

func (f *fakeNotificationStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }

type fakeRecipients struct {
	users map[string]*models.User
}

func (f *fakeRecipients) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

type fakePusher struct {
	online  map[string]bool
	emitted []string
	failAll bool
}

func (f *fakePusher) EmitToUser(_ context.Context, userID, _ string, _ interface{}) error {
	if f.failAll {
		return errors.New("push broker down")
	}
	f.emitted = append(f.emitted, userID)
	return nil
}

func (f *fakePusher) IsReachable(_ context.Context, userID string) bool {
	return f.online[userID]
}

type fakeMailer struct {
	sent    []mailer.Email
	failAll bool
}

func (f *fakeMailer) Send(_ context.Context, email mailer.Email) error {
	if f.failAll {
		return errors.New("smtp relay rejected")
	}
	f.sent = append(f.sent, email)
	return nil
}

func newDispatcher(store *fakeNotificationStore, recipients *fakeRecipients, pusher *fakePusher, m *fakeMailer) *NotificationService {
	return NewNotificationService(store, recipients, pusher, m, nil, config.NotificationsConfig{DefaultTTL: time.Hour}, nil, nil)
}

func highInput(userID string) NotificationInput {
	return NotificationInput{
		UserID:   userID,
		Title:    "Fee overdue",
		Message:  "Term fee is past due",
		Type:     models.NotificationFee,
		Priority: models.PriorityHigh,
	}
}

func TestNotifyPersistsAndPushesWhenOnline(t *testing.T) {
	store := newFakeNotificationStore()
	pusher := &fakePusher{online: map[string]bool{"u1": true}}
	m := &fakeMailer{}
	recipients := &fakeRecipients{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "u1@school.test", FullName: "User One", EmailNotifications: true},
	}}

	n, err := newDispatcher(store, recipients, pusher, m).Notify(context.Background(), highInput("u1"))
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Len(t, store.created, 1)
	assert.Equal(t, []string{"u1"}, pusher.emitted)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "u1@school.test", m.sent[0].To)
	require.NotNil(t, n.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *n.ExpiresAt, 5*time.Second)
}

func TestNotifySkipsPushWhenOffline(t *testing.T) {
	store := newFakeNotificationStore()
	pusher := &fakePusher{online: map[string]bool{}}
	recipients := &fakeRecipients{users: map[string]*models.User{}}

	input := highInput("u1")
	input.Priority = models.PriorityLow

	_, err := newDispatcher(store, recipients, pusher, &fakeMailer{}).Notify(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, pusher.emitted)
	assert.Len(t, store.created, 1)
}

func TestNotifyEmailFailureStillPersists(t *testing.T) {
	store := newFakeNotificationStore()
	pusher := &fakePusher{online: map[string]bool{"u1": true}}
	m := &fakeMailer{failAll: true}
	recipients := &fakeRecipients{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "u1@school.test", EmailNotifications: true},
	}}

	n, err := newDispatcher(store, recipients, pusher, m).Notify(context.Background(), highInput("u1"))
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Len(t, store.created, 1)
}

func TestNotifyPushFailureStillPersists(t *testing.T) {
	store := newFakeNotificationStore()
	pusher := &fakePusher{online: map[string]bool{"u1": true}, failAll: true}
	recipients := &fakeRecipients{users: map[string]*models.User{}}

	input := highInput("u1")
	input.Priority = models.PriorityMedium

	_, err := newDispatcher(store, recipients, pusher, &fakeMailer{}).Notify(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, store.created, 1)
}

func TestNotifySkipsEmailWhenOptedOut(t *testing.T) {
	store := newFakeNotificationStore()
	m := &fakeMailer{}
	recipients := &fakeRecipients{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "u1@school.test", EmailNotifications: false},
	}}

	_, err := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, m).Notify(context.Background(), highInput("u1"))
	require.NoError(t, err)
	assert.Empty(t, m.sent)
}

func TestNotifyEmailsOptedInAtAnyPriority(t *testing.T) {
	store := newFakeNotificationStore()
	m := &fakeMailer{}
	recipients := &fakeRecipients{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "u1@school.test", EmailNotifications: true},
	}}
	svc := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, m)

	// Opt-in is the only email condition; priority never gates the channel.
	for _, priority := range []models.NotificationPriority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh} {
		input := highInput("u1")
		input.Priority = priority

		_, err := svc.Notify(context.Background(), input)
		require.NoError(t, err)
	}
	require.Len(t, m.sent, 3)
	assert.Equal(t, "u1@school.test", m.sent[0].To)
}

func TestNotifyPersistFailureFailsTheCall(t *testing.T) {
	store := newFakeNotificationStore()
	store.failFor["u1"] = errors.New("db unreachable")
	recipients := &fakeRecipients{users: map[string]*models.User{}}

	_, err := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, &fakeMailer{}).Notify(context.Background(), highInput("u1"))
	require.Error(t, err)
	assert.Empty(t, store.created)
}

func TestNotifyManyIsolatesFailures(t *testing.T) {
	store := newFakeNotificationStore()
	store.failFor["u2"] = errors.New("db hiccup")
	recipients := &fakeRecipients{users: map[string]*models.User{}}

	input := highInput("")
	input.Priority = models.PriorityMedium

	delivered := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, &fakeMailer{}).
		NotifyMany(context.Background(), []string{"u1", "u2", "u3"}, input)

	assert.Len(t, delivered, 2)
	require.Len(t, store.created, 2)
	assert.Equal(t, "u1", store.created[0].UserID)
	assert.Equal(t, "u3", store.created[1].UserID)
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	store := newFakeNotificationStore()
	recipients := &fakeRecipients{users: map[string]*models.User{}}

	input := highInput("u1")
	input.Type = "NONSENSE"

	_, err := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, &fakeMailer{}).Notify(context.Background(), input)
	require.Error(t, err)
	assert.Empty(t, store.created)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := newFakeNotificationStore()
	recipients := &fakeRecipients{users: map[string]*models.User{}}
	svc := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, &fakeMailer{})

	require.NoError(t, svc.MarkRead(context.Background(), "u1", "n1"))
	require.NoError(t, svc.MarkRead(context.Background(), "u1", "n1"))
	assert.Equal(t, 2, store.markedRead["n1"])
}

func TestMarkReadMissIsNoOpSuccess(t *testing.T) {
	store := newFakeNotificationStore()
	// The store reports zero matched rows for an unknown or foreign id.
	store.markedRead["ghost"] = 1
	recipients := &fakeRecipients{users: map[string]*models.User{}}
	svc := newDispatcher(store, recipients, &fakePusher{online: map[string]bool{}}, &fakeMailer{})

	require.NoError(t, svc.MarkRead(context.Background(), "u1", "ghost"))
}
