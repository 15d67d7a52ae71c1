package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/events"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence() *fakePresence { return &fakePresence{online: map[string]bool{}} }

func (f *fakePresence) Online(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakePresence) Offline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, userID)
	return nil
}

func (f *fakePresence) IsOnline(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID], nil
}

func TestHubDeliversOnlyToTargetUser(t *testing.T) {
	presence := newFakePresence()
	h := NewHub(presence)

	tab1, tab2, other := newClient("u1"), newClient("u1"), newClient("u2")
	h.Register(tab1)
	h.Register(tab2)
	h.Register(other)
	assert.Equal(t, 3, h.Count())

	assert.Equal(t, 2, h.SendToUser("u1", Push{Type: "notification"}))
	assert.Len(t, tab1.send, 1)
	assert.Len(t, tab2.send, 1)
	assert.Empty(t, other.send)

	h.Unregister(tab1)
	online, _ := presence.IsOnline(context.Background(), "u1")
	assert.True(t, online, "second tab keeps the user online")

	h.Unregister(tab2)
	h.Unregister(tab2)
	online, _ = presence.IsOnline(context.Background(), "u1")
	assert.False(t, online)
	assert.Equal(t, 0, h.SendToUser("u1", Push{Type: "notification"}))
}

func TestHubSkipsFullBuffers(t *testing.T) {
	h := NewHub(nil)
	c := newClient("u1")
	h.Register(c)
	for i := 0; i < cap(c.send); i++ {
		require.Equal(t, 1, h.SendToUser("u1", Push{Type: "notification"}))
	}
	assert.Equal(t, 0, h.SendToUser("u1", Push{Type: "notification"}))
}

func TestDispatchRoutesByEventType(t *testing.T) {
	h := NewHub(nil)
	reporter, receiver := newClient("reporter"), newClient("receiver")
	h.Register(reporter)
	h.Register(receiver)

	body, _ := json.Marshal(events.NotificationEvent{ID: "n1", UserID: "reporter", Type: "status_change", Message: "Your report status has been updated to: In Progress"})
	require.NoError(t, dispatch(h, events.NotificationCreated, body))
	require.Len(t, reporter.send, 1)
	var push struct {
		Type string                   `json:"type"`
		Data events.NotificationEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-reporter.send, &push))
	assert.Equal(t, "notification", push.Type)
	assert.Equal(t, "n1", push.Data.ID)

	body, _ = json.Marshal(events.MessageEvent{ID: "m1", SenderID: "reporter", ReceiverID: "receiver", Content: "hi"})
	require.NoError(t, dispatch(h, events.MessageSent, body))
	assert.Len(t, receiver.send, 1)
	assert.Empty(t, reporter.send)

	assert.Error(t, dispatch(h, events.NotificationCreated, []byte("{")))
	assert.Error(t, dispatch(h, "report.created", []byte("{}")))
}

func testServer(t *testing.T, presence Presence) (*httptest.Server, *Hub, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	hub := NewHub(presence)
	srv := httptest.NewServer(newServer(hub, tokens, []string{"*"}).routes())
	t.Cleanup(srv.Close)
	return srv, hub, tokens
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketReceivesPushes(t *testing.T) {
	srv, hub, tokens := testServer(t, newFakePresence())
	token, err := tokens.Generate(auth.Principal{UserID: "u1", Role: auth.RoleStudent})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.SendToUser("u1", Push{Type: "message", Data: map[string]string{"content": "hello"}})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message","data":{"content":"hello"}}`, string(msg))

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestStreamingEndpointsRequireToken(t *testing.T) {
	srv, _, _ := testServer(t, nil)

	for _, path := range []string{"/ws", "/notifications/subscribe", "/notifications/subscribe?token=garbage"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestServerSentEvents(t *testing.T) {
	srv, hub, tokens := testServer(t, nil)
	token, err := tokens.Generate(auth.Principal{UserID: "u1", Role: auth.RoleStudent})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/notifications/subscribe", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"type":"connected"`)

	waitForClients(t, hub, 1)
	hub.SendToUser("u1", Push{Type: "notification", Data: map[string]string{"id": "n1"}})

	_, _ = reader.ReadString('\n') // blank separator
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `data: {"type":"notification","data":{"id":"n1"}}`+"\n", line)
}

func TestPresenceEndpoint(t *testing.T) {
	presence := newFakePresence()
	srv, _, tokens := testServer(t, presence)
	token, err := tokens.Generate(auth.Principal{UserID: "admin", Role: auth.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, presence.Online(context.Background(), "u7"))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/presence/u7", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Online bool `json:"online"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Data.Online)
}

type fakeRedis struct {
	keys map[string]time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, exp time.Duration) *redis.StatusCmd {
	f.keys[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisPresenceKeys(t *testing.T) {
	store := &fakeRedis{keys: map[string]time.Duration{}}
	p := NewRedisPresence(store, time.Minute)
	ctx := context.Background()

	require.NoError(t, p.Online(ctx, "u1"))
	assert.Equal(t, time.Minute, store.keys["presence:u1"])
	online, err := p.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, p.Offline(ctx, "u1"))
	online, err = p.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online)
}
