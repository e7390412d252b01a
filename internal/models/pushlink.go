package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushLink associates a user with a push-provider subscriber (device) ID.
// At most one link exists per user; relinking replaces the previous one.
type PushLink struct {
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	SubscriberID string             `bson:"subscriber_id" json:"subscriber_id"`
	Platform     string             `bson:"platform" json:"platform"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
