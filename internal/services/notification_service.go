package services

import (
	"context"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationStore is the persistence surface of the engine.
type NotificationStore interface {
	Create(ctx context.Context, notif *models.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	ExistsSince(ctx context.Context, userID primitive.ObjectID, category models.Category, link string, windowStart time.Time) (bool, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error
}

// UserStore resolves notification targets.
type UserStore interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// channelDispatcher is the shape both channel dispatchers share.
type channelDispatcher interface {
	Dispatch(ctx context.Context, user *models.User, event models.Event)
}

// NotificationService orchestrates the dedup gate, the store adapter and the
// channel dispatchers behind a single Notify entry point.
type NotificationService struct {
	store NotificationStore
	users UserStore
	email channelDispatcher
	push  channelDispatcher
	now   func() time.Time
}

func NewNotificationService(store NotificationStore, users UserStore, email, push channelDispatcher) *NotificationService {
	return &NotificationService{
		store: store,
		users: users,
		email: email,
		push:  push,
		now:   time.Now,
	}
}

// startOfDay returns midnight of t's calendar day in t's location. The dedup
// window is calendar-day rather than rolling 24h: two equivalent alerts can
// straddle midnight, which is an accepted simplification.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Notify runs one event through dedup, persistence and channel dispatch.
// It reports whether a record was persisted and never returns an error:
// notification failures are advisory and must not reach business logic.
//
// Persistence happens-before dispatch. If the record cannot be written, no
// channel fires; a push with no backing record would have no audit trail.
func (s *NotificationService) Notify(ctx context.Context, event models.Event) bool {
	windowStart := startOfDay(s.now())

	duplicate, err := s.store.ExistsSince(ctx, event.UserID, event.Category, event.Link, windowStart)
	if err != nil {
		logrus.WithError(err).WithField("userID", event.UserID.Hex()).Error("Dedup check failed, dropping event")
		return false
	}
	if duplicate {
		logrus.WithFields(logrus.Fields{
			"userID":   event.UserID.Hex(),
			"category": event.Category,
			"link":     event.Link,
		}).Debug("Duplicate notification suppressed")
		return false
	}

	record := &models.Notification{
		UserID:   event.UserID,
		Type:     event.Category,
		Title:    event.Title,
		Message:  event.Message,
		Priority: event.Priority,
		Read:     false,
		Link:     event.Link,
	}
	if err := s.store.Create(ctx, record); err != nil {
		logrus.WithError(err).WithField("userID", event.UserID.Hex()).Error("Failed to persist notification, skipping dispatch")
		return false
	}

	// In-app delivery is satisfied by the persisted record itself; the live
	// sync bridge picks it up from the change stream.
	user, err := s.users.GetUserByID(ctx, event.UserID)
	if err != nil {
		logrus.WithError(err).WithField("userID", event.UserID.Hex()).Warn("Target user unresolvable, in-app delivery only")
		return true
	}

	prefs := ResolvePreferences(user)
	if event.Priority < prefs.PriorityThreshold {
		return true
	}

	// Channels are independent: one failing or being disabled never blocks
	// the other, and neither is retried.
	if prefs.EmailEnabled && prefs.Email[event.Category] {
		s.email.Dispatch(ctx, user, event)
	}
	if prefs.PushEnabled && prefs.InApp[event.Category] {
		s.push.Dispatch(ctx, user, event)
	}
	return true
}

// ListByUser returns the user's notifications, newest first.
func (s *NotificationService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.store.ListByUser(ctx, userID)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return s.store.MarkRead(ctx, id)
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.store.Delete(ctx, id)
}

// DeleteAllForUser clears a user's notification feed.
func (s *NotificationService) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	return s.store.DeleteAllForUser(ctx, userID)
}
