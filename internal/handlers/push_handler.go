package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/davlet61/costwatch/internal/services"
	"github.com/davlet61/costwatch/pkg/middleware"
	"github.com/davlet61/costwatch/pkg/push"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PushHandler struct {
	Lifecycle  *services.PushLifecycle
	PushClient *push.Client
}

func NewPushHandler(lifecycle *services.PushLifecycle, pushClient *push.Client) *PushHandler {
	return &PushHandler{Lifecycle: lifecycle, PushClient: pushClient}
}

type subscribeRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

func (h *PushHandler) sessionUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return userID, true
}

// POST /push/subscribe — explicit opt-in; may prompt the user for permission.
// The outcome is always a 200 with a structured result; a denied permission
// or a timeout is not an HTTP error.
func (h *PushHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceToken == "" {
		http.Error(w, "Missing device token", http.StatusBadRequest)
		return
	}

	sdk := push.NewDeviceSession(h.PushClient, req.DeviceToken, req.Platform)
	result := h.Lifecycle.Subscribe(r.Context(), userID, sdk)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// POST /push/session-sync — the automatic, non-prompting re-link path invoked
// once per session at login.
func (h *PushHandler) SessionSyncHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceToken == "" {
		http.Error(w, "Missing device token", http.StatusBadRequest)
		return
	}

	sdk := push.NewDeviceSession(h.PushClient, req.DeviceToken, req.Platform)
	result := h.Lifecycle.SessionSync(r.Context(), userID, sdk)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// POST /push/unsubscribe
func (h *PushHandler) UnsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	result := h.Lifecycle.Unsubscribe(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
