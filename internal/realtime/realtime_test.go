package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBrokerFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewLocalBroker()
	first, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	second, err := broker.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, NewEvent(TypeEventsChanged, nil)))

	for _, ch := range []<-chan Event{first, second} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeEventsChanged, ev.Type)
			assert.True(t, ev.IsBroadcast())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestLocalBrokerClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	broker := NewLocalBroker()
	ch, err := broker.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

// hubServer registers every upgraded connection under the user query param
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := hub.Register(r.URL.Query().Get("user"), conn)
		defer hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitOnline(t *testing.T, hub *Hub, userID string, n int) {
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.connections[userID]) == n
	}, time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	return got
}

func TestHubDeliversToEveryTabOfTargetUser(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	defer srv.Close()

	tab1 := dial(t, srv, "alice")
	defer tab1.Close()
	tab2 := dial(t, srv, "alice")
	defer tab2.Close()
	other := dial(t, srv, "bob")
	defer other.Close()
	waitOnline(t, hub, "alice", 2)
	waitOnline(t, hub, "bob", 1)

	hub.Deliver(NewEvent(TypeNotification, map[string]string{"title": "hi"}, "alice"))

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		got := readEvent(t, conn)
		assert.Equal(t, TypeNotification, got["type"])
		assert.NotContains(t, got, "user_ids")
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's notification")
}

func TestHubRunBroadcastsFromBroker(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	defer srv.Close()

	alice := dial(t, srv, "alice")
	defer alice.Close()
	bob := dial(t, srv, "bob")
	defer bob.Close()
	waitOnline(t, hub, "alice", 1)
	waitOnline(t, hub, "bob", 1)
	assert.Equal(t, 2, hub.OnlineCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := NewLocalBroker()
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, broker) }()

	require.Eventually(t, func() bool {
		broker.mu.RLock()
		defer broker.mu.RUnlock()
		return len(broker.subs) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, broker.Publish(ctx, NewEvent(TypeEventsChanged, nil)))

	assert.Equal(t, TypeEventsChanged, readEvent(t, alice)["type"])
	assert.Equal(t, TypeEventsChanged, readEvent(t, bob)["type"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestHubUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	defer srv.Close()

	conn := dial(t, srv, "carol")
	waitOnline(t, hub, "carol", 1)
	assert.True(t, hub.IsOnline("carol"))

	conn.Close()
	waitOnline(t, hub, "carol", 0)
	assert.False(t, hub.IsOnline("carol"))
	assert.Error(t, hub.SendToUser("carol", NewEvent(TypeBadges, nil, "carol")))
}
