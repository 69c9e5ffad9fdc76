package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/models"
)

// MessageSnapshot is sent to every new client with the open competitions
const MessageSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Snapshotter lists the competitions a new client should see first
type Snapshotter interface {
	Open() []competition.View
}

// EventPayload is the payload of a broadcast competition event
type EventPayload struct {
	CompetitionID string            `json:"competition_id"`
	Seq           uint64            `json:"seq"`
	At            time.Time         `json:"at"`
	Data          any               `json:"data"`
	State         *competition.View `json:"state,omitempty"`
}

type outbound struct {
	competitionID string
	message       models.WSMessage
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	snapshots  Snapshotter
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
	// competition restricts event delivery to one competition when set
	competition string
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, snapshots Snapshotter) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshots:  snapshots,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total, "competition", client.competition)

			// Send the open competitions to the new client
			go h.sendSnapshot(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case out := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if client.competition != "" && out.competitionID != "" && client.competition != out.competitionID {
					continue
				}
				select {
				case client.send <- out.message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) sendSnapshot(client *Client) {
	views := []competition.View{}
	if h.snapshots != nil {
		for _, v := range h.snapshots.Open() {
			if client.competition == "" || client.competition == v.ID {
				views = append(views, v)
			}
		}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return // disconnected before the snapshot was ready
	}
	select {
	case client.send <- models.WSMessage{Type: MessageSnapshot, Payload: views}:
	default:
	}
}

// BroadcastMessage sends a message to all connected clients. Messages are
// dropped rather than blocking the caller when the hub falls behind.
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.enqueue(outbound{message: models.WSMessage{Type: msgType, Payload: payload}})
}

// BroadcastEvent implements services.Broadcaster
func (h *Hub) BroadcastEvent(e competition.Event) {
	h.enqueue(outbound{
		competitionID: e.CompetitionID,
		message: models.WSMessage{
			Type: string(e.Type),
			Payload: EventPayload{
				CompetitionID: e.CompetitionID,
				Seq:           e.Seq,
				At:            e.At,
				Data:          e.Payload,
				State:         e.State,
			},
		},
	})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.broadcast <- out:
	default:
		h.log.Warn("WebSocket broadcast queue full, dropping message", "type", out.message.Type)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// The stream is one-way; client messages are only logged
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode WebSocket message", "type", message.Type, "error", err)
				continue
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients. The optional
// competition query parameter limits events to one competition.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan models.WSMessage, 256),
		competition: r.URL.Query().Get("competition"),
	}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
