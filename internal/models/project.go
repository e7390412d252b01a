package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses checked by the health scan. Completed and Rejected projects
// are terminal and excluded from scanning.
const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusRejected   = "rejected"
)

// Project carries the fields the health scan evaluates. Full project CRUD
// lives with the rest of the dashboard and is not handled here.
type Project struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Status    string             `bson:"status" json:"status"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	EndDate   time.Time          `bson:"end_date" json:"end_date"`
	Budget    float64            `bson:"budget" json:"budget"`
	Spent     float64            `bson:"spent" json:"spent"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Team groups users; the live sync bridge republishes teams on change.
type Team struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	MemberIDs []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
}
