package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/tile-grid-game/game/engine"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func testGridState(t *testing.T) engine.GridState {
	t.Helper()
	grid, err := engine.NewGrid(4)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if err := grid.InsertTile(engine.NewTile(engine.Position{X: 2, Y: 3}, 16)); err != nil {
		t.Fatalf("InsertTile failed: %v", err)
	}
	return grid.Serialize()
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels must be initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if hub.ClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)

	hub.registerClient(client1)
	hub.registerClient(client2)

	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.unregisterClient(client1)

	if hub.ClientCount(sessionID) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", hub.ClientCount(sessionID))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSessionQueues(t *testing.T) {
	hub := NewHub()
	state := testGridState(t)

	hub.BroadcastToSession("queued", state)

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "queued" {
			t.Errorf("Expected sessionID 'queued', got %s", message.SessionID)
		}
		if message.Event != EventGridUpdate {
			t.Errorf("Expected event %q, got %q", EventGridUpdate, message.Event)
		}
		if message.Grid == nil || message.Grid.Size != 4 {
			t.Error("Grid not attached to message")
		}
	default:
		t.Error("BroadcastToSession should queue a message")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	sessionID := "broadcast-test"

	watcher := newTestClient(hub, sessionID)
	other := newTestClient(hub, "other-session")
	hub.registerClient(watcher)
	hub.registerClient(other)

	state := testGridState(t)
	hub.broadcastMessage(&Message{SessionID: sessionID, Grid: &state, Event: EventGridUpdate})

	select {
	case data := <-watcher.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Grid == nil || message.Grid.Cells[2][3] == nil || message.Grid.Cells[2][3].Value != 16 {
			t.Error("Grid not correctly transmitted")
		}
	default:
		t.Error("No message received by session client")
	}

	select {
	case <-other.send:
		t.Error("Clients of other sessions must not receive the message")
	default:
	}
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: "ping"})

	if hub.ClientCount("slow") != 0 {
		t.Error("Client with a full send buffer should be dropped")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "custom-event" || message.Data != "test-data" {
			t.Errorf("Unexpected message: %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func TestHubEnqueueNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("full", "spam", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked on a full queue")
	}
}

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := newWSServer(t, hub)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	if !waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 }) {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("ws-test"))
	}

	conn.Close()

	if !waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 }) {
		t.Error("Session should have been cleaned up after WebSocket close")
	}
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := newWSServer(t, hub)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=msg-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	if !waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 }) {
		t.Fatal("client never registered")
	}

	hub.BroadcastToSession("msg-test", testGridState(t))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(messageData, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.Grid == nil || message.Grid.Cells[2][3] == nil || message.Grid.Cells[2][3].Value != 16 {
		t.Error("Grid not correctly received")
	}
}
