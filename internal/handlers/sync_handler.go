package handlers

import (
	"net/http"

	"github.com/davlet61/costwatch/internal/livesync"
	jwtutil "github.com/davlet61/costwatch/pkg/jwt"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	Hub       *livesync.Hub
	Bridge    *livesync.Bridge
	JWTSecret string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewSyncHandler(hub *livesync.Hub, bridge *livesync.Bridge, jwtSecret string) *SyncHandler {
	return &SyncHandler{Hub: hub, Bridge: bridge, JWTSecret: jwtSecret}
}

// GET /ws/sync?token= — the read-only live feed. Browsers cannot set an
// Authorization header on websocket upgrades, so the token rides the query.
func (h *SyncHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	connID := h.Hub.Register(userID, conn)
	defer func() {
		h.Hub.Unregister(userID, connID)
		conn.Close()
	}()

	// Initial snapshot so the client renders without waiting for a change.
	h.Bridge.PushNotifications(r.Context(), userID)

	// The feed is one-way; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
