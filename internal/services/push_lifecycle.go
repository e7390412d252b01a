package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/davlet61/costwatch/internal/repository"
	"github.com/davlet61/costwatch/pkg/push"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionState tracks where one device session is in the linking flow.
type SubscriptionState string

const (
	StateUnregistered       SubscriptionState = "unregistered"
	StateSdkLoading         SubscriptionState = "sdk_loading"
	StateUnavailable        SubscriptionState = "unavailable"
	StatePermissionPrompted SubscriptionState = "permission_prompted"
	StateDenied             SubscriptionState = "denied"
	StateGranted            SubscriptionState = "granted"
	StateIDPolling          SubscriptionState = "id_polling"
	StateTimedOut           SubscriptionState = "timed_out"
	StateLinked             SubscriptionState = "linked"
	StateUnlinked           SubscriptionState = "unlinked"
)

// SubscribeResult is the structured outcome surfaced to whatever UI triggered
// the subscribe action. Failures are results, never errors.
type SubscribeResult struct {
	Success bool              `json:"success"`
	State   SubscriptionState `json:"state"`
	Message string            `json:"message"`
}

// LifecycleConfig bounds the two polling phases of the linking flow.
type LifecycleConfig struct {
	SDKPollInterval time.Duration
	SDKLoadTimeout  time.Duration
	IDPollInterval  time.Duration
	IDMaxAttempts   int
}

// DefaultLifecycleConfig matches a browser SDK that usually settles within a
// couple of seconds but may never appear at all.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		SDKPollInterval: 500 * time.Millisecond,
		SDKLoadTimeout:  10 * time.Second,
		IDPollInterval:  time.Second,
		IDMaxAttempts:   15,
	}
}

// PushLifecycle owns the state machine that links a device session to a user
// identity: SDK readiness wait, permission negotiation, subscriber-ID polling,
// link persistence and teardown. One active link per user; relinking replaces
// the previous device.
type PushLifecycle struct {
	links  PushLinkStore
	engine Notifier
	cfg    LifecycleConfig

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// sessionState is process-local per signed-in user session; it never persists.
type sessionState struct {
	autoSynced bool
	state      SubscriptionState
}

func NewPushLifecycle(links PushLinkStore, engine Notifier, cfg LifecycleConfig) *PushLifecycle {
	if cfg.SDKPollInterval <= 0 {
		cfg = DefaultLifecycleConfig()
	}
	return &PushLifecycle{
		links:    links,
		engine:   engine,
		cfg:      cfg,
		sessions: make(map[string]*sessionState),
	}
}

func (l *PushLifecycle) session(userID primitive.ObjectID) *sessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userID.Hex()
	if s, ok := l.sessions[key]; ok {
		return s
	}
	s := &sessionState{state: StateUnregistered}
	l.sessions[key] = s
	return s
}

func (l *PushLifecycle) setState(userID primitive.ObjectID, state SubscriptionState) {
	sess := l.session(userID)
	l.mu.Lock()
	sess.state = state
	l.mu.Unlock()
}

// State returns the current linking state for a user's session.
func (l *PushLifecycle) State(userID primitive.ObjectID) SubscriptionState {
	sess := l.session(userID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return sess.state
}

// Subscribe runs the full opt-in flow for one device session, prompting for
// permission if necessary. It blocks through the bounded polling phases and
// reports the outcome as a result, not an error.
func (l *PushLifecycle) Subscribe(ctx context.Context, userID primitive.ObjectID, sdk push.SubscriberSDK) SubscribeResult {
	return l.link(ctx, userID, sdk, true)
}

// SessionSync is the automatic, non-prompting re-link path invoked once at
// login when permission was granted in a prior session. The session guard
// makes repeated calls no-ops so an unreachable provider cannot cause a
// polling loop every sync.
func (l *PushLifecycle) SessionSync(ctx context.Context, userID primitive.ObjectID, sdk push.SubscriberSDK) SubscribeResult {
	sess := l.session(userID)
	l.mu.Lock()
	if sess.autoSynced {
		state := sess.state
		l.mu.Unlock()
		return SubscribeResult{Success: state == StateLinked, State: state, Message: "already synced this session"}
	}
	// Guard is set before the attempt: one shot per session regardless of outcome.
	sess.autoSynced = true
	l.mu.Unlock()

	return l.link(ctx, userID, sdk, false)
}

func (l *PushLifecycle) link(ctx context.Context, userID primitive.ObjectID, sdk push.SubscriberSDK, prompt bool) SubscribeResult {
	l.setState(userID, StateSdkLoading)
	if !l.awaitSDK(ctx, sdk) {
		l.setState(userID, StateUnavailable)
		return SubscribeResult{Success: false, State: StateUnavailable, Message: "push SDK did not become available"}
	}

	l.setState(userID, StatePermissionPrompted)
	permission, err := sdk.PermissionState(ctx)
	if err != nil {
		l.setState(userID, StateUnavailable)
		return SubscribeResult{Success: false, State: StateUnavailable, Message: "could not read push permission"}
	}

	switch permission {
	case push.PermissionDenied:
		l.setState(userID, StateDenied)
		return SubscribeResult{Success: false, State: StateDenied, Message: "push permission denied"}
	case push.PermissionGranted:
		// fall through to polling
	default:
		if !prompt {
			// The automatic path never re-prompts; that is a user action.
			l.setState(userID, StateUnregistered)
			return SubscribeResult{Success: false, State: StateUnregistered, Message: "push permission not granted"}
		}
		permission, err = sdk.RequestPermission(ctx)
		if err != nil {
			l.setState(userID, StateUnavailable)
			return SubscribeResult{Success: false, State: StateUnavailable, Message: "permission prompt failed"}
		}
		if permission != push.PermissionGranted {
			l.setState(userID, StateDenied)
			return SubscribeResult{Success: false, State: StateDenied, Message: "push permission denied"}
		}
	}

	l.setState(userID, StateIDPolling)
	subscriberID, result := l.pollSubscriberID(ctx, userID, sdk)
	if subscriberID == "" {
		return result
	}

	// The first-link check must happen before the upsert so the welcome
	// notification is keyed off the pre-existing state, not the row this
	// very flow just wrote.
	firstLink := false
	if _, err := l.links.Get(ctx, userID); err != nil {
		if !errors.Is(err, repository.ErrPushLinkNotFound) {
			l.setState(userID, StateUnregistered)
			return SubscribeResult{Success: false, State: StateUnregistered, Message: "could not read existing push link"}
		}
		firstLink = true
	}

	link := &models.PushLink{
		UserID:       userID,
		SubscriberID: subscriberID,
		Platform:     sdk.Platform(),
	}
	if err := l.links.Upsert(ctx, link); err != nil {
		l.setState(userID, StateUnregistered)
		return SubscribeResult{Success: false, State: StateUnregistered, Message: "could not save push link"}
	}

	l.setState(userID, StateLinked)
	logrus.WithFields(logrus.Fields{
		"userID":       userID.Hex(),
		"subscriberID": subscriberID,
		"firstLink":    firstLink,
	}).Info("Push subscription linked")

	if firstLink {
		l.engine.Notify(ctx, models.Event{
			UserID:   userID,
			Title:    "Push notifications enabled",
			Message:  "You will now receive push notifications on this device.",
			Category: models.CategorySystem,
			Priority: models.PriorityLow,
		})
	}

	return SubscribeResult{Success: true, State: StateLinked, Message: "push notifications enabled"}
}

// awaitSDK waits for the device SDK session to become reachable, bounded by
// the load timeout.
func (l *PushLifecycle) awaitSDK(ctx context.Context, sdk push.SubscriberSDK) bool {
	deadline := time.Now().Add(l.cfg.SDKLoadTimeout)
	for {
		if sdk.Ready(ctx) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(l.cfg.SDKPollInterval):
		}
	}
}

// pollSubscriberID asks the SDK for a provider-assigned ID at a fixed
// interval, bounded by a max attempt count. Each tick re-checks that
// permission was not revoked mid-flight.
func (l *PushLifecycle) pollSubscriberID(ctx context.Context, userID primitive.ObjectID, sdk push.SubscriberSDK) (string, SubscribeResult) {
	for attempt := 0; attempt < l.cfg.IDMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				l.setState(userID, StateTimedOut)
				return "", SubscribeResult{Success: false, State: StateTimedOut, Message: "subscribe cancelled"}
			case <-time.After(l.cfg.IDPollInterval):
			}
		}

		permission, err := sdk.PermissionState(ctx)
		if err == nil && permission == push.PermissionDenied {
			l.setState(userID, StateDenied)
			return "", SubscribeResult{Success: false, State: StateDenied, Message: "push permission revoked"}
		}

		id, err := sdk.SubscriberID(ctx)
		if err != nil {
			continue
		}
		if id != "" {
			return id, SubscribeResult{}
		}
	}

	l.setState(userID, StateTimedOut)
	return "", SubscribeResult{Success: false, State: StateTimedOut, Message: "timed out waiting for subscriber id"}
}

// Unsubscribe deletes the user's push link. Idempotent.
func (l *PushLifecycle) Unsubscribe(ctx context.Context, userID primitive.ObjectID) SubscribeResult {
	if err := l.links.Delete(ctx, userID); err != nil {
		return SubscribeResult{Success: false, State: l.State(userID), Message: "could not remove push link"}
	}
	l.setState(userID, StateUnlinked)
	return SubscribeResult{Success: true, State: StateUnlinked, Message: "push notifications disabled"}
}

// Logout tears down the process-local session state so the next login
// re-attempts lifecycle negotiation. The persisted link is left alone;
// removing it is an explicit unsubscribe.
func (l *PushLifecycle) Logout(userID primitive.ObjectID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, userID.Hex())
}
