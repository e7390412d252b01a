package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrPushLinkNotFound is returned when a user has no linked device.
var ErrPushLinkNotFound = errors.New("push link not found")

// PushLinkRepository persists the user-to-subscriber associations in the
// push_subscribers collection, keyed by user ID.
type PushLinkRepository struct {
	collection *mongo.Collection
}

func NewPushLinkRepository(db *mongo.Database) *PushLinkRepository {
	return &PushLinkRepository{
		collection: db.Collection("push_subscribers"),
	}
}

// Get returns the active link for a user, or ErrPushLinkNotFound.
func (r *PushLinkRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.PushLink, error) {
	var link models.PushLink
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPushLinkNotFound
		}
		return nil, fmt.Errorf("failed to fetch push link: %v", err)
	}
	return &link, nil
}

// Upsert writes the link for a user, replacing any previous one. Concurrent
// relink attempts for the same user resolve last-write-wins on the user key.
func (r *PushLinkRepository) Upsert(ctx context.Context, link *models.PushLink) error {
	link.CreatedAt = time.Now()

	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"user_id": link.UserID},
		link,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		logrus.WithError(err).WithField("userID", link.UserID.Hex()).Error("Failed to upsert push link")
		return fmt.Errorf("failed to upsert push link: %v", err)
	}
	return nil
}

// Delete removes the link for a user. Deleting a non-existent link is not an
// error; unsubscribe must be idempotent.
func (r *PushLinkRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete push link: %v", err)
	}
	return nil
}
