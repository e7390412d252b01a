package services

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/davlet61/costwatch/internal/repository"
	"github.com/davlet61/costwatch/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailSender is the slice of the email relay client the dispatcher needs.
type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, to, subject, html string) error
}

// PushSender is the slice of the push provider client the dispatcher needs.
type PushSender interface {
	Configured() bool
	Send(ctx context.Context, subscriberID, title, message, link string) error
}

// PushLinkStore is the persistence surface the push dispatcher and lifecycle
// manager share.
type PushLinkStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.PushLink, error)
	Upsert(ctx context.Context, link *models.PushLink) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #1f2933;">
    <h2>{{.Title}}</h2>
    <p>{{.Message}}</p>
    {{if .Link}}<p><a href="{{.Link}}" style="color: #2563eb;">Open in dashboard</a></p>{{end}}
    <hr>
    <p style="color: #9aa5b1; font-size: 12px;">You are receiving this because email notifications are enabled in your settings.</p>
  </body>
</html>`))

// EmailDispatcher renders the fixed notification template and hands it to the
// relay. Delivery is best-effort: failures are logged and swallowed.
type EmailDispatcher struct {
	sender     EmailSender
	appBaseURL string
}

func NewEmailDispatcher(sender EmailSender, appBaseURL string) *EmailDispatcher {
	return &EmailDispatcher{
		sender:     sender,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// Dispatch sends one notification email. It never returns an error to the
// engine; a failed email must not affect the business action behind it.
func (d *EmailDispatcher) Dispatch(ctx context.Context, user *models.User, event models.Event) {
	if user.Email == "" {
		return
	}
	if !d.sender.Configured() {
		logrus.WithField("userID", user.ID.Hex()).Info("Email relay not configured, skipping email dispatch")
		return
	}

	link := ""
	if event.Link != "" {
		link = d.appBaseURL + "/" + strings.TrimLeft(event.Link, "/")
	}

	var body bytes.Buffer
	err := emailTemplate.Execute(&body, struct {
		Title, Message, Link string
	}{event.Title, event.Message, link})
	if err != nil {
		logrus.WithError(err).Error("Failed to render notification email")
		return
	}

	if err := d.sender.Send(ctx, user.Email, event.Title, body.String()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"channel": "email",
			"userID":  user.ID.Hex(),
		}).Warn("Email dispatch failed")
	}
}

// PushDispatcher resolves the target's push link and issues a targeted send.
// Without a link it degrades to a simulated local notification when the
// session actor targets themself, and stays silent otherwise. Without
// provider credentials every send is simulated.
type PushDispatcher struct {
	sender PushSender
	links  PushLinkStore
}

func NewPushDispatcher(sender PushSender, links PushLinkStore) *PushDispatcher {
	return &PushDispatcher{sender: sender, links: links}
}

// Dispatch delivers one push notification, best-effort.
func (d *PushDispatcher) Dispatch(ctx context.Context, user *models.User, event models.Event) {
	link, err := d.links.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPushLinkNotFound) {
			if actor := middleware.GetUserFromContext(ctx); actor != nil && actor.UserID == user.ID.Hex() {
				logrus.WithFields(logrus.Fields{
					"channel": "push",
					"userID":  user.ID.Hex(),
					"title":   event.Title,
				}).Info("No push link, delivered local notification to current session")
			}
			return
		}
		logrus.WithError(err).WithField("userID", user.ID.Hex()).Warn("Push link lookup failed")
		return
	}

	if !d.sender.Configured() {
		logrus.WithFields(logrus.Fields{
			"channel":      "push",
			"userID":       user.ID.Hex(),
			"subscriberID": link.SubscriberID,
			"title":        event.Title,
		}).Info("Push provider not configured, simulated delivery")
		return
	}

	if err := d.sender.Send(ctx, link.SubscriberID, event.Title, event.Message, event.Link); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"channel": "push",
			"userID":  user.ID.Hex(),
		}).Warn("Push dispatch failed")
	}
}
