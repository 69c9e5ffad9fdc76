package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/models"
)

// mockSnapshotter implements Snapshotter for testing
type mockSnapshotter struct {
	mu    sync.Mutex
	views []competition.View
	calls int
}

func (m *mockSnapshotter) Open() []competition.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return append([]competition.View(nil), m.views...)
}

func newTestHub(views ...competition.View) *Hub {
	hub := New(logger.Discard(), &mockSnapshotter{views: views})
	hub.Start()
	return hub
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[4:] + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) models.WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
}

func TestNew_CreatesHubWithDependencies(t *testing.T) {
	snapshots := &mockSnapshotter{}
	hub := New(logger.Discard(), snapshots)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}
	if hub.log == nil {
		t.Error("expected logger to be set")
	}
	if hub.snapshots == nil {
		t.Error("expected snapshotter to be set")
	}
	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}
	if cap(hub.broadcast) == 0 {
		t.Error("expected broadcast channel to be buffered")
	}
}

func TestHub_BroadcastDoesNotBlockWithoutRunLoop(t *testing.T) {
	// Not started: nothing drains the queue
	hub := New(logger.Discard(), nil)

	done := make(chan bool)
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.BroadcastMessage("test", i)
		}
		hub.BroadcastEvent(competition.Event{Type: competition.EventStarted, CompetitionID: "c1"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("broadcast blocked on a full queue")
	}
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("expected full queue, got %d of %d", len(hub.broadcast), cap(hub.broadcast))
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := newTestHub()

	client := &Client{
		hub:  hub,
		send: make(chan models.WSMessage, 256),
	}
	hub.register <- client
	waitForClients(t, hub, 1)

	hub.mutex.RLock()
	_, exists := hub.clients[client]
	hub.mutex.RUnlock()
	if !exists {
		t.Error("expected client to be registered")
	}

	select {
	case msg := <-client.send:
		if msg.Type != MessageSnapshot {
			t.Errorf("expected snapshot first, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Error("expected snapshot message on registration")
	}
}

func TestHub_ClientUnregistration(t *testing.T) {
	hub := newTestHub()

	client := &Client{
		hub:  hub,
		send: make(chan models.WSMessage, 256),
	}
	hub.register <- client
	waitForClients(t, hub, 1)

	hub.unregister <- client
	waitForClients(t, hub, 0)

	// Drain anything delivered before the close
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-client.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("expected send channel to be closed")
		}
	}
}

func TestHub_MultipleInstances_NoGlobalState(t *testing.T) {
	hub1 := newTestHub()
	hub2 := newTestHub()

	client := &Client{hub: hub1, send: make(chan models.WSMessage, 256)}
	hub1.register <- client
	waitForClients(t, hub1, 1)

	if hub2.ClientCount() != 0 {
		t.Errorf("expected hub2 to have no clients, got %d", hub2.ClientCount())
	}
}

// ==================== WebSocket Integration Tests ====================

func TestServeWs_SendsSnapshotOnConnect(t *testing.T) {
	hub := newTestHub(
		competition.View{ID: "c1", Name: "Spring", Status: competition.StatusOpen},
		competition.View{ID: "c2", Name: "Summer", Status: competition.StatusOpen},
	)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "")
	defer ws.Close()

	msg := readMessage(t, ws)
	if msg.Type != MessageSnapshot {
		t.Fatalf("expected snapshot, got %q", msg.Type)
	}
	views, ok := msg.Payload.([]interface{})
	if !ok || len(views) != 2 {
		t.Errorf("expected two open competitions, got %v", msg.Payload)
	}
}

func TestServeWs_SnapshotRespectsFilter(t *testing.T) {
	hub := newTestHub(
		competition.View{ID: "c1", Status: competition.StatusOpen},
		competition.View{ID: "c2", Status: competition.StatusOpen},
	)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "?competition=c2")
	defer ws.Close()

	msg := readMessage(t, ws)
	views, ok := msg.Payload.([]interface{})
	if !ok || len(views) != 1 {
		t.Fatalf("expected one competition, got %v", msg.Payload)
	}
	first := views[0].(map[string]interface{})
	if first["id"] != "c2" {
		t.Errorf("expected c2, got %v", first["id"])
	}
}

func TestServeWs_BroadcastEventToClient(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "")
	defer ws.Close()
	readMessage(t, ws) // snapshot

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hub.BroadcastEvent(competition.Event{
		Type:          competition.EventTicketsMinted,
		CompetitionID: "c1",
		Seq:           4,
		At:            at,
		Payload:       competition.TicketsMinted{Buyer: "alice", FirstTicket: 1, Count: 3, Paid: 300},
		State:         &competition.View{ID: "c1", Status: competition.StatusOpen},
	})

	msg := readMessage(t, ws)
	if msg.Type != string(competition.EventTicketsMinted) {
		t.Fatalf("expected %s, got %q", competition.EventTicketsMinted, msg.Type)
	}
	payload := msg.Payload.(map[string]interface{})
	if payload["competition_id"] != "c1" {
		t.Errorf("expected competition_id c1, got %v", payload["competition_id"])
	}
	if payload["seq"] != float64(4) {
		t.Errorf("expected seq 4, got %v", payload["seq"])
	}
	data := payload["data"].(map[string]interface{})
	if data["buyer"] != "alice" || data["count"] != float64(3) {
		t.Errorf("unexpected event data: %v", data)
	}
	state := payload["state"].(map[string]interface{})
	if state["status"] != string(competition.StatusOpen) {
		t.Errorf("expected state snapshot, got %v", state)
	}
}

func TestServeWs_FilterSkipsOtherCompetitions(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "?competition=c2")
	defer ws.Close()
	readMessage(t, ws) // snapshot

	hub.BroadcastEvent(competition.Event{Type: competition.EventStarted, CompetitionID: "c1", Seq: 1})
	hub.BroadcastEvent(competition.Event{Type: competition.EventStarted, CompetitionID: "c2", Seq: 1})

	msg := readMessage(t, ws)
	payload := msg.Payload.(map[string]interface{})
	if payload["competition_id"] != "c2" {
		t.Errorf("expected only c2 events, got %v", payload["competition_id"])
	}

	// Untagged messages reach filtered clients
	hub.BroadcastMessage("notice", "maintenance")
	if msg := readMessage(t, ws); msg.Type != "notice" {
		t.Errorf("expected notice, got %q", msg.Type)
	}
}

func TestServeWs_ClientDisconnect(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "")
	waitForClients(t, hub, 1)

	ws.Close()
	waitForClients(t, hub, 0)
}

func TestServeWs_MultipleClients(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	var clients []*websocket.Conn
	for i := 0; i < 3; i++ {
		ws := dial(t, server, "")
		defer ws.Close()
		readMessage(t, ws) // snapshot
		clients = append(clients, ws)
	}
	waitForClients(t, hub, 3)

	hub.BroadcastMessage("notice", map[string]string{"key": "value"})

	for i, ws := range clients {
		msg := readMessage(t, ws)
		if msg.Type != "notice" {
			t.Errorf("client %d: expected notice, got %q", i, msg.Type)
		}
	}
}

func TestReadPump_IncomingMessageIsIgnored(t *testing.T) {
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	ws := dial(t, server, "")
	defer ws.Close()
	readMessage(t, ws) // snapshot

	if err := ws.WriteJSON(models.WSMessage{Type: "hello"}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	// The connection stays registered after client chatter
	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("expected client to stay connected, got %d", hub.ClientCount())
	}
}

func TestServeWs_UpgradeError(t *testing.T) {
	hub := newTestHub()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	hub.ServeWs(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-upgrade request, got %d", w.Code)
	}
}
