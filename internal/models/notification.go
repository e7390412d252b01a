package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category classifies a notification for preference routing.
type Category string

const (
	CategoryApprovalRequest Category = "approval_request"
	CategoryApprovalResult  Category = "approval_result"
	CategoryCostOverrun     Category = "cost_overrun"
	CategoryTaskUpdate      Category = "task_update"
	CategoryDeadline        Category = "deadline"
	CategorySystem          Category = "system"
)

// Priority orders notifications for threshold filtering. Higher is more urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is the ephemeral input to the notification engine. It is produced by
// business actions or the health scan and never persisted directly.
type Event struct {
	UserID   primitive.ObjectID
	Title    string
	Message  string
	Category Category
	Priority Priority
	Link     string // optional; empty string when absent
}

// Notification is the persisted record behind the in-app feed.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      Category           `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Priority  Priority           `bson:"priority" json:"priority"`
	Read      bool               `bson:"read" json:"read"`
	Link      string             `bson:"link" json:"link"` // stored as "" when absent so equality stays total
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
