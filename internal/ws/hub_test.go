package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/micaja/api/internal/auth"
	"github.com/rs/zerolog"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, ownerID uuid.UUID) *Client {
	return &Client{
		hub:     hub,
		ownerID: ownerID,
		send:    make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func waitClients(t *testing.T, hub *Hub, owner uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.Clients(owner) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("clients for %s: got %d, want %d", owner, hub.Clients(owner), want)
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)

	ownerID := uuid.New()
	client := mockClient(hub, ownerID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[ownerID] == nil {
		t.Fatal("owner room not created")
	}
	if !hub.rooms[ownerID][client] {
		t.Fatal("client not registered in owner room")
	}
}

func TestHubUnregistrationCleansRoom(t *testing.T) {
	hub := startHub(t)

	ownerID := uuid.New()
	client1 := mockClient(hub, ownerID)
	client2 := mockClient(hub, ownerID)
	hub.register <- client1
	hub.register <- client2
	waitClients(t, hub, ownerID, 2)

	hub.unregister <- client1
	waitClients(t, hub, ownerID, 1)

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[ownerID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	if _, ok := <-client1.send; ok {
		t.Fatal("send channel should be closed after unregister")
	}
}

func TestBroadcastToOwnerIsolation(t *testing.T) {
	hub := startHub(t)

	owner1 := uuid.New()
	owner2 := uuid.New()

	clients := map[uuid.UUID][]*Client{
		owner1: {mockClient(hub, owner1), mockClient(hub, owner1)},
		owner2: {mockClient(hub, owner2), mockClient(hub, owner2)},
	}
	for _, list := range clients {
		for _, c := range list {
			hub.register <- c
		}
	}
	waitClients(t, hub, owner1, 2)
	waitClients(t, hub, owner2, 2)

	ev, err := NewEvent(EventLinesChanged, map[string]string{"op": "INSERT"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	hub.BroadcastToOwner(owner2, ev)

	for ownerID, list := range clients {
		for i, client := range list {
			select {
			case msg := <-client.send:
				if ownerID != owner2 {
					t.Fatalf("owner %s client %d should not receive message", ownerID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != EventLinesChanged {
					t.Errorf("wrong event type: %s", received.Type)
				}
				if string(received.Payload) != `{"op":"INSERT"}` {
					t.Errorf("payload: got %s", received.Payload)
				}
			case <-time.After(50 * time.Millisecond):
				if ownerID == owner2 {
					t.Fatalf("owner2 client %d should have received message", i)
				}
			}
		}
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := startHub(t)

	owner1 := uuid.New()
	client := mockClient(hub, owner1)
	hub.register <- client
	waitClients(t, hub, owner1, 1)

	hub.BroadcastToOwner(uuid.New(), Event{Type: EventTablesChanged})

	select {
	case <-client.send:
		t.Fatal("client should not receive message for different owner")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := startHub(t)

	ownerID := uuid.New()
	slow := &Client{hub: hub, ownerID: ownerID, send: make(chan []byte, 1)}
	hub.register <- slow
	waitClients(t, hub, ownerID, 1)

	hub.BroadcastToOwner(ownerID, Event{Type: EventOrdersChanged})
	hub.BroadcastToOwner(ownerID, Event{Type: EventOrdersChanged})
	waitClients(t, hub, ownerID, 0)
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.BroadcastToOwner(uuid.New(), Event{Type: EventTablesChanged})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastToOwner blocked after hub stopped")
	}
}

func TestNewEventWithoutPayload(t *testing.T) {
	ev, err := NewEvent(EventKitchenChanged, nil)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	b, _ := json.Marshal(ev)
	if string(b) != `{"type":"kitchen.changed"}` {
		t.Errorf("got %s", b)
	}
}

func TestServeWS(t *testing.T) {
	const secret = "ws-secret"
	hub := startHub(t)
	ownerID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, secret, w, r)
	}))
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws", nil); err == nil {
		t.Fatal("expected dial without token to fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", resp)
	}

	token, err := auth.GenerateToken(secret, ownerID, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, ownerID, 1)

	hub.BroadcastToOwner(ownerID, Event{Type: EventTablesChanged})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventTablesChanged {
		t.Errorf("type: got %q", ev.Type)
	}
}
