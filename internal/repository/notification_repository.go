package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationRepository is the only component that touches the notifications
// collection directly.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create inserts a new notification with a server-assigned timestamp.
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	notif.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return fmt.Errorf("failed to create notification: %v", err)
	}
	if insertedID, ok := result.InsertedID.(primitive.ObjectID); ok {
		notif.ID = insertedID
	}
	return nil
}

// ListByUser returns all notifications for a user, newest first. The query
// filters by user only; ordering is applied in-process because the collection
// has no compound user+timestamp index.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// ExistsSince reports whether an equivalent notification (same user, type and
// link) was already recorded at or after windowStart. Link is compared as an
// empty string when absent so the match stays total.
func (r *NotificationRepository) ExistsSince(ctx context.Context, userID primitive.ObjectID, category models.Category, link string, windowStart time.Time) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"type":       category,
		"link":       link,
		"created_at": bson.M{"$gte": windowStart},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate notification: %v", err)
	}
	return count > 0, nil
}

// MarkRead sets the read flag on one notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %v", err)
	}
	return nil
}

// Delete removes a single notification.
func (r *NotificationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	return nil
}

// DeleteAllForUser removes every notification owned by a user.
func (r *NotificationRepository) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"userID":  userID.Hex(),
		"deleted": result.DeletedCount,
	}).Info("Cleared user notifications")
	return nil
}
