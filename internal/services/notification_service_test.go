package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- fakes shared by the service tests ---

type fakeNotificationStore struct {
	mu        sync.Mutex
	records   []models.Notification
	createErr error
	now       func() time.Time
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{now: time.Now}
}

func (f *fakeNotificationStore) Create(_ context.Context, notif *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	notif.ID = primitive.NewObjectID()
	notif.CreatedAt = f.now()
	f.records = append(f.records, *notif)
	return nil
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) ExistsSince(_ context.Context, userID primitive.ObjectID, category models.Category, link string, windowStart time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.records {
		if n.UserID == userID && n.Type == category && n.Link == link && !n.CreatedAt.Before(windowStart) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification not found")
}

func (f *fakeNotificationStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeNotificationStore) DeleteAllForUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Notification
	for _, n := range f.records {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeNotificationStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found")
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []models.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *models.User, event models.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, event)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func boolPtr(b bool) *bool { return &b }

func priorityPtr(p models.Priority) *models.Priority { return &p }

func newTestEngine(users map[primitive.ObjectID]*models.User) (*NotificationService, *fakeNotificationStore, *recordingDispatcher, *recordingDispatcher) {
	store := newFakeNotificationStore()
	emailDisp := &recordingDispatcher{}
	pushDisp := &recordingDispatcher{}
	svc := NewNotificationService(store, &fakeUserStore{users: users}, emailDisp, pushDisp)
	return svc, store, emailDisp, pushDisp
}

func allChannelsUser(id primitive.ObjectID) *models.User {
	return &models.User{
		ID:    id,
		Email: "owner@example.com",
		Preferences: &models.NotificationPreferences{
			EmailEnabled: boolPtr(true),
			PushEnabled:  boolPtr(true),
			Email: map[models.Category]*bool{
				models.CategoryDeadline:    boolPtr(true),
				models.CategoryCostOverrun: boolPtr(true),
			},
		},
	}
}

// --- tests ---

func TestNotifySuppressesSameDayDuplicate(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, _, _ := newTestEngine(map[primitive.ObjectID]*models.User{userID: {ID: userID}})

	event := models.Event{
		UserID:   userID,
		Title:    "Project overdue",
		Message:  "Project X is overdue",
		Category: models.CategoryDeadline,
		Priority: models.PriorityCritical,
		Link:     "/projects/abc",
	}

	require.True(t, svc.Notify(context.Background(), event))
	require.False(t, svc.Notify(context.Background(), event), "second identical event the same day must be suppressed")
	assert.Equal(t, 1, store.count())
}

func TestNotifyDoesNotSuppressAcrossDayBoundary(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, _, _ := newTestEngine(map[primitive.ObjectID]*models.User{userID: {ID: userID}})

	yesterday := time.Now().Add(-24 * time.Hour)
	store.now = func() time.Time { return yesterday }

	event := models.Event{
		UserID:   userID,
		Title:    "Project overdue",
		Category: models.CategoryDeadline,
		Priority: models.PriorityCritical,
		Link:     "/projects/abc",
	}
	require.True(t, svc.Notify(context.Background(), event))

	// Same event again today: yesterday's record is outside the window.
	store.now = time.Now
	require.True(t, svc.Notify(context.Background(), event))
	assert.Equal(t, 2, store.count())
}

func TestNotifyDistinguishesLinks(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, _, _ := newTestEngine(map[primitive.ObjectID]*models.User{userID: {ID: userID}})

	base := models.Event{
		UserID:   userID,
		Title:    "Budget exceeded",
		Category: models.CategoryCostOverrun,
		Priority: models.PriorityHigh,
	}

	a := base
	a.Link = "/projects/a"
	b := base
	b.Link = "/projects/b"

	require.True(t, svc.Notify(context.Background(), a))
	require.True(t, svc.Notify(context.Background(), b), "different links must not collide in the dedup gate")
	assert.Equal(t, 2, store.count())
}

func TestNotifyDefaultsToInAppOnly(t *testing.T) {
	userID := primitive.NewObjectID()
	// No stored preference blob at all.
	svc, store, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{
		userID: {ID: userID, Email: "owner@example.com"},
	})

	require.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Task completed",
		Category: models.CategoryTaskUpdate,
		Priority: models.PriorityCritical,
	}))

	assert.Equal(t, 1, store.count(), "in-app record must be persisted")
	assert.Zero(t, emailDisp.count(), "system default keeps email off")
	assert.Zero(t, pushDisp.count(), "system default keeps push off")
}

func TestNotifyRespectsPriorityThreshold(t *testing.T) {
	userID := primitive.NewObjectID()
	user := allChannelsUser(userID)
	user.Preferences.PriorityThreshold = priorityPtr(models.PriorityHigh)
	svc, store, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{userID: user})

	require.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Minor deadline note",
		Category: models.CategoryDeadline,
		Priority: models.PriorityMedium,
		Link:     "/projects/low",
	}))

	assert.Equal(t, 1, store.count(), "below-threshold events still persist for the in-app feed")
	assert.Zero(t, emailDisp.count(), "below-threshold event must not email even with the category flag on")
	assert.Zero(t, pushDisp.count())
}

func TestNotifyDispatchesEnabledChannels(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{userID: allChannelsUser(userID)})

	require.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Project overdue",
		Category: models.CategoryDeadline,
		Priority: models.PriorityCritical,
		Link:     "/projects/abc",
	}))

	assert.Equal(t, 1, emailDisp.count())
	assert.Equal(t, 1, pushDisp.count())
}

func TestNotifyChannelsAreIndependent(t *testing.T) {
	userID := primitive.NewObjectID()
	user := allChannelsUser(userID)
	user.Preferences.EmailEnabled = boolPtr(false)
	svc, _, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{userID: user})

	require.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Budget exceeded",
		Category: models.CategoryCostOverrun,
		Priority: models.PriorityHigh,
	}))

	assert.Zero(t, emailDisp.count(), "email globally disabled")
	assert.Equal(t, 1, pushDisp.count(), "push must still fire when email is disabled")
}

func TestNotifyAbortsDispatchWhenPersistenceFails(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{userID: allChannelsUser(userID)})
	store.createErr = fmt.Errorf("store unavailable")

	assert.False(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Project overdue",
		Category: models.CategoryDeadline,
		Priority: models.PriorityCritical,
	}))

	assert.Zero(t, emailDisp.count(), "no dispatch without a durable record")
	assert.Zero(t, pushDisp.count())
}

func TestNotifyUnresolvableUserStopsAfterPersist(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, emailDisp, pushDisp := newTestEngine(map[primitive.ObjectID]*models.User{})

	assert.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "Orphan event",
		Category: models.CategorySystem,
		Priority: models.PriorityLow,
	}), "persistence alone satisfies in-app delivery")

	assert.Equal(t, 1, store.count())
	assert.Zero(t, emailDisp.count())
	assert.Zero(t, pushDisp.count())
}

func TestMarkReadAndDelete(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, store, _, _ := newTestEngine(map[primitive.ObjectID]*models.User{userID: {ID: userID}})

	require.True(t, svc.Notify(context.Background(), models.Event{
		UserID:   userID,
		Title:    "one",
		Category: models.CategorySystem,
		Priority: models.PriorityLow,
	}))
	list, err := svc.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].Read)

	require.NoError(t, svc.MarkRead(context.Background(), list[0].ID))
	list, err = svc.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, list[0].Read)

	require.NoError(t, svc.DeleteAllForUser(context.Background(), userID))
	assert.Zero(t, store.count())
}
