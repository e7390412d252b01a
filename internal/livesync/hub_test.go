package livesync

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialHub spins up a test server that registers every incoming connection for
// the given user and returns a connected client plus the hub-side conn ID.
func dialHub(t *testing.T, hub *Hub, userID string) (*websocket.Conn, string) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	connIDs := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connIDs <- hub.Register(userID, conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case connID := <-connIDs:
		return client, connID
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub registration")
		return nil, ""
	}
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snapshot Snapshot
	require.NoError(t, conn.ReadJSON(&snapshot))
	return snapshot
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub()
	client, _ := dialHub(t, hub, "user_a")

	hub.SendToUser("user_a", Snapshot{Collection: "notifications", Data: []string{"n1"}})

	snapshot := readSnapshot(t, client)
	assert.Equal(t, "notifications", snapshot.Collection)
}

func TestHubBroadcastReachesAllUsers(t *testing.T) {
	hub := NewHub()
	clientA, _ := dialHub(t, hub, "user_a")
	clientB, _ := dialHub(t, hub, "user_b")
	require.Len(t, hub.ConnectedUsers(), 2)

	hub.Broadcast(Snapshot{Collection: "projects", Data: nil})

	assert.Equal(t, "projects", readSnapshot(t, clientA).Collection)
	assert.Equal(t, "projects", readSnapshot(t, clientB).Collection)
}

func TestHubDisconnectUserClosesConnections(t *testing.T) {
	hub := NewHub()
	client, _ := dialHub(t, hub, "user_a")

	hub.DisconnectUser("user_a")
	assert.Empty(t, hub.ConnectedUsers())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "server side close must terminate the client read")
}

func TestHubUnregisterLastConnectionRemovesUser(t *testing.T) {
	hub := NewHub()
	_, connID := dialHub(t, hub, "user_a")
	require.Len(t, hub.ConnectedUsers(), 1)

	hub.Unregister("user_a", connID)
	assert.Empty(t, hub.ConnectedUsers())
}
