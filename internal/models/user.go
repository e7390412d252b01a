package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a dashboard account. The Preferences blob is optional and
// may be partial; the preference resolver fills in defaults for unset fields.
type User struct {
	ID             primitive.ObjectID       `bson:"_id,omitempty" json:"id"`
	Username       string                   `bson:"username" json:"username"`
	Email          string                   `bson:"email" json:"email"`
	HashedPassword string                   `bson:"hashed_password" json:"-"`
	Role           string                   `bson:"role" json:"role"`
	Preferences    *NotificationPreferences `bson:"preferences,omitempty" json:"preferences,omitempty"`
	CreatedAt      time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time                `bson:"updated_at" json:"updated_at"`
}

// NotificationPreferences is the raw stored preference blob. Every field is a
// pointer so a user who configured only some of them keeps defaults for the rest.
type NotificationPreferences struct {
	EmailEnabled      *bool              `bson:"email_enabled,omitempty" json:"email_enabled,omitempty"`
	PushEnabled       *bool              `bson:"push_enabled,omitempty" json:"push_enabled,omitempty"`
	PriorityThreshold *Priority          `bson:"priority_threshold,omitempty" json:"priority_threshold,omitempty"`
	InApp             map[Category]*bool `bson:"in_app,omitempty" json:"in_app,omitempty"`
	Email             map[Category]*bool `bson:"email,omitempty" json:"email,omitempty"`
}

// PreferenceMatrix is the fully resolved delivery configuration for one user.
// Unlike the stored blob, every field is populated.
type PreferenceMatrix struct {
	EmailEnabled      bool
	PushEnabled       bool
	PriorityThreshold Priority
	InApp             map[Category]bool
	Email             map[Category]bool
}
