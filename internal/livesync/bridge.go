package livesync

import (
	"context"

	"github.com/davlet61/costwatch/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// watchedCollections are the core tables the bridge republishes on change.
var watchedCollections = []string{"notifications", "projects", "users", "teams"}

// Bridge subscribes to change streams on the core collections and, on any
// change, re-fetches the affected collection in full and pushes it to
// connected clients. No incremental diffing: at this data scale a full
// snapshot is cheaper than keeping per-client cursors consistent.
type Bridge struct {
	db            *mongo.Database
	hub           *Hub
	notifications *repository.NotificationRepository
	projects      *repository.ProjectRepository
	users         *repository.UserRepository
	teams         *repository.TeamRepository
}

func NewBridge(
	db *mongo.Database,
	hub *Hub,
	notifications *repository.NotificationRepository,
	projects *repository.ProjectRepository,
	users *repository.UserRepository,
	teams *repository.TeamRepository,
) *Bridge {
	return &Bridge{
		db:            db,
		hub:           hub,
		notifications: notifications,
		projects:      projects,
		users:         users,
		teams:         teams,
	}
}

// Start launches one watcher goroutine per collection. Watchers stop when ctx
// is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	for _, name := range watchedCollections {
		go b.watch(ctx, name)
	}
}

func (b *Bridge) watch(ctx context.Context, collection string) {
	stream, err := b.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		logrus.WithError(err).WithField("collection", collection).Error("Failed to open change stream")
		return
	}
	defer stream.Close(ctx)

	logrus.WithField("collection", collection).Info("Change stream opened")

	for stream.Next(ctx) {
		b.republish(ctx, collection)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logrus.WithError(err).WithField("collection", collection).Warn("Change stream closed")
	}
}

// republish re-fetches the changed collection and fans it out. Notifications
// are per-user; the other collections broadcast to everyone connected.
func (b *Bridge) republish(ctx context.Context, collection string) {
	switch collection {
	case "notifications":
		// Delete events carry no document, so every connected user's feed is
		// refreshed rather than chasing the affected ID.
		for _, userID := range b.hub.ConnectedUsers() {
			b.PushNotifications(ctx, userID)
		}
	case "projects":
		projects, err := b.projects.GetAllProjects(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to refresh projects snapshot")
			return
		}
		b.hub.Broadcast(Snapshot{Collection: "projects", Data: projects})
	case "users":
		users, err := b.users.GetAllUsers(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to refresh users snapshot")
			return
		}
		b.hub.Broadcast(Snapshot{Collection: "users", Data: users})
	case "teams":
		teams, err := b.teams.GetAllTeams(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to refresh teams snapshot")
			return
		}
		b.hub.Broadcast(Snapshot{Collection: "teams", Data: teams})
	}
}

// PushNotifications sends one user their current feed, newest first. Also
// used for the initial snapshot when a client connects.
func (b *Bridge) PushNotifications(ctx context.Context, userID string) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}
	notifications, err := b.notifications.ListByUser(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID).Warn("Failed to refresh notifications snapshot")
		return
	}
	b.hub.SendToUser(userID, Snapshot{Collection: "notifications", Data: notifications})
}
