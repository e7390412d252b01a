package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deviceTable struct {
	mu     sync.Mutex
	states map[string]deviceStateResponse
}

func newDeviceTable(states map[string]deviceStateResponse) *deviceTable {
	if states == nil {
		states = map[string]deviceStateResponse{}
	}
	return &deviceTable{states: states}
}

func (d *deviceTable) get(token string) (deviceStateResponse, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.states[token]
	return state, ok
}

func (d *deviceTable) set(token string, state deviceStateResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[token] = state
}

type sendRecorder struct {
	mu    sync.Mutex
	sends []sendRequest
}

func (r *sendRecorder) add(req sendRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, req)
}

func (r *sendRecorder) all() []sendRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sendRequest, len(r.sends))
	copy(out, r.sends)
	return out
}

// fakeProvider serves the token-exchange, targeted-send and device endpoints.
func fakeProvider(t *testing.T, tokenCalls *int32, recorder *sendRecorder, devices *deviceTable) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("client_id") != "cid" || r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok_abc", ExpiresIn: 3600})
	})

	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		recorder.add(req)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	})

	mux.HandleFunc("/devices/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token := r.URL.Path[len("/devices/"):]
		if r.Method == http.MethodPost {
			token = token[:len(token)-len("/prompt")]
		}
		state, ok := devices.get(token)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPost {
			state.Permission = PermissionGranted
			devices.set(token, state)
		}
		_ = json.NewEncoder(w).Encode(state)
	})

	return httptest.NewServer(mux)
}

func TestSendExchangesTokenAndTargetsSubscriber(t *testing.T) {
	var tokenCalls int32
	recorder := &sendRecorder{}
	server := fakeProvider(t, &tokenCalls, recorder, newDeviceTable(nil))
	defer server.Close()

	client := NewClient(server.URL, "cid", "secret", server.Client())

	require.NoError(t, client.Send(context.Background(), "sub_42", "Deadline", "Due tomorrow", "/projects/abc"))
	sends := recorder.all()
	require.Len(t, sends, 1)
	assert.Equal(t, []string{"sub_42"}, sends[0].IncludeSubscribers)
	assert.Equal(t, "Deadline", sends[0].Title)
	assert.Equal(t, "/projects/abc", sends[0].Data["link"])

	// Second send reuses the cached token.
	require.NoError(t, client.Send(context.Background(), "sub_42", "Again", "msg", ""))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestSendReturnsErrorOnProviderRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok_abc", ExpiresIn: 3600})
	})
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown subscriber"}`, http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "cid", "secret", server.Client())
	err := client.Send(context.Background(), "sub_missing", "t", "m", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestTokenExchangeFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "cid", "wrong", server.Client())
	err := client.Send(context.Background(), "sub_1", "t", "m", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange failed")
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient("", "", "", nil).Configured())
	assert.False(t, NewClient("https://push.example.com", "cid", "", nil).Configured())
	assert.True(t, NewClient("https://push.example.com", "cid", "secret", nil).Configured())
}

func TestDeviceSessionReportsProviderState(t *testing.T) {
	var tokenCalls int32
	devices := newDeviceTable(map[string]deviceStateResponse{
		"dev_1": {Permission: PermissionDefault, SubscriberID: ""},
	})
	server := fakeProvider(t, &tokenCalls, &sendRecorder{}, devices)
	defer server.Close()

	client := NewClient(server.URL, "cid", "secret", server.Client())
	session := NewDeviceSession(client, "dev_1", "")

	assert.True(t, session.Ready(context.Background()))
	assert.Equal(t, "web", session.Platform())

	perm, err := session.PermissionState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDefault, perm)

	perm, err = session.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, perm)

	devices.set("dev_1", deviceStateResponse{Permission: PermissionGranted, SubscriberID: "sub_99"})
	id, err := session.SubscriberID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub_99", id)
}

func TestDeviceSessionUnknownDeviceNotReady(t *testing.T) {
	var tokenCalls int32
	server := fakeProvider(t, &tokenCalls, &sendRecorder{}, newDeviceTable(nil))
	defer server.Close()

	client := NewClient(server.URL, "cid", "secret", server.Client())
	session := NewDeviceSession(client, "dev_unknown", "web")

	assert.False(t, session.Ready(context.Background()))
}
