package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/davlet61/costwatch/internal/livesync"
	"github.com/davlet61/costwatch/internal/models"
	"github.com/davlet61/costwatch/internal/services"
	"github.com/davlet61/costwatch/pkg/logger"
	"github.com/davlet61/costwatch/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserHandler struct {
	Service   *services.UserService
	Lifecycle *services.PushLifecycle
	Hub       *livesync.Hub
}

func NewUserHandler(service *services.UserService, lifecycle *services.PushLifecycle, hub *livesync.Hub) *UserHandler {
	return &UserHandler{Service: service, Lifecycle: lifecycle, Hub: hub}
}

// POST /users/login
func (h *UserHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// POST /users/logout — tears down the session-scoped push lifecycle state and
// the user's live sync connections so nothing survives a user switch.
func (h *UserHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
		h.Lifecycle.Logout(userID)
	}
	h.Hub.DisconnectUser(claims.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

// PUT /users/preferences
func (h *UserHandler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var prefs models.NotificationPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdatePreferences(r.Context(), userID, &prefs); err != nil {
		logger.Log.Errorf("Failed to update preferences: %v", err)
		http.Error(w, "Failed to update preferences", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Preferences updated"})
}
