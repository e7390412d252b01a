package livesync

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Snapshot is one full-collection payload pushed to clients. The bridge never
// sends incremental diffs.
type Snapshot struct {
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
}

// Hub tracks the websocket connections of signed-in users and fans snapshots
// out to them. A user may hold several connections (multiple tabs).
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[string]*websocket.Conn // userID -> connID -> conn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[string]*websocket.Conn)}
}

// Register adds a connection for a user and returns its handle.
func (h *Hub) Register(userID string, conn *websocket.Conn) string {
	connID := uuid.NewString()
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[string]*websocket.Conn)
	}
	h.clients[userID][connID] = conn
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{"userID": userID, "connID": connID}).Info("Live sync client connected")
	return connID
}

// Unregister drops one connection.
func (h *Hub) Unregister(userID, connID string) {
	h.mu.Lock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
	h.mu.Unlock()
}

// DisconnectUser closes and removes every connection a user holds. Called on
// logout so no subscription outlives the session.
func (h *Hub) DisconnectUser(userID string) {
	h.mu.Lock()
	conns := h.clients[userID]
	delete(h.clients, userID)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// ConnectedUsers lists users with at least one open connection.
func (h *Hub) ConnectedUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// SendToUser pushes a snapshot to every connection one user holds.
func (h *Hub) SendToUser(userID string, snapshot Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, conn := range h.clients[userID] {
		if err := conn.WriteJSON(snapshot); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"userID": userID,
				"connID": connID,
			}).Warn("Live sync write failed, dropping connection")
			_ = conn.Close()
			delete(h.clients[userID], connID)
		}
	}
}

// Broadcast pushes a snapshot to every connected client.
func (h *Hub) Broadcast(snapshot Snapshot) {
	h.mu.Lock()
	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	h.mu.Unlock()

	for _, userID := range users {
		h.SendToUser(userID, snapshot)
	}
}
