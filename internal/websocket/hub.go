package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/netopt/optiview/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 16,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served same-origin; cross-origin clients are
		// read-only view consumers anyway.
		return true
	},
}

// Client represents a connected dashboard client.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	id       string
	lastPing time.Time
}

// Hub maintains the set of dashboard clients and broadcasts view-model
// updates to them. It is the engine's Presenter: each Render* call becomes a
// typed panel message pushed to every client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	getState   func() models.DashboardView
}

// Message is one websocket frame: a panel (or control) type plus its data.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub creates a hub. getState supplies the full dashboard view pushed to
// newly connected clients.
func NewHub(getState func() models.DashboardView) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		getState:   getState,
	}
}

// SetStateGetter sets the initial-state supplier; used when the hub has to
// exist before the engine that feeds it.
func (h *Hub) SetStateGetter(getState func() models.DashboardView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.getState = getState
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			getState := h.getState
			h.mu.Unlock()
			log.Info().Str("client", client.id).Msg("Dashboard client connected")

			if getState != nil {
				initial := Message{Type: "initialState", Data: getState()}
				if data, err := json.Marshal(initial); err == nil {
					select {
					case client.send <- data:
					default:
						log.Warn().Str("client", client.id).Msg("Client send buffer full, skipping initial state")
					}
				} else {
					log.Error().Err(err).Str("client", client.id).Msg("Failed to marshal initial state")
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Info().Str("client", client.id).Msg("Dashboard client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, drop it
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
					h.mu.Unlock()
				}
			}

		case <-pingTicker.C:
			h.broadcastMessage(Message{
				Type: "ping",
				Data: map[string]int64{"timestamp": time.Now().Unix()},
			})
		}
	}
}

// HandleWebSocket handles websocket upgrade requests.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		id:       fmt.Sprintf("client-%d", time.Now().UnixNano()),
		lastPing: time.Now(),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Presenter implementation: each panel gets its own message type.

func (h *Hub) RenderConnection(v models.ConnectionView) {
	h.broadcastMessage(Message{Type: "connection", Data: v})
}

func (h *Hub) RenderHealthRing(v models.HealthRingView) {
	h.broadcastMessage(Message{Type: "healthRing", Data: v})
}

func (h *Hub) RenderMetricBars(v []models.MetricBarView) {
	h.broadcastMessage(Message{Type: "metricBars", Data: v})
}

func (h *Hub) RenderNodeGrid(v models.NodeGridView) {
	h.broadcastMessage(Message{Type: "nodeGrid", Data: v})
}

func (h *Hub) RenderAgents(v models.AgentStatusView) {
	h.broadcastMessage(Message{Type: "agents", Data: v})
}

func (h *Hub) RenderCycle(v models.CycleView) {
	h.broadcastMessage(Message{Type: "cycle", Data: v})
}

func (h *Hub) RenderActivities(v models.ActivityFeedView) {
	h.broadcastMessage(Message{Type: "activities", Data: v})
}

func (h *Hub) RenderDecisions(v models.DecisionListView) {
	h.broadcastMessage(Message{Type: "decisions", Data: v})
}

func (h *Hub) RenderToasts(v models.ToastStackView) {
	h.broadcastMessage(Message{Type: "toasts", Data: v})
}

func (h *Hub) broadcastMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal websocket message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Warn().Str("type", msg.Type).Msg("Websocket broadcast channel full")
	}
}

// readPump handles incoming messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.lastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("client", c.id).Msg("Websocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Error().Err(err).Str("client", c.id).Msg("Failed to unmarshal websocket message")
			continue
		}

		switch msg.Type {
		case "ping":
			pong := Message{
				Type: "pong",
				Data: map[string]int64{"timestamp": time.Now().Unix()},
			}
			if data, err := json.Marshal(pong); err == nil {
				c.send <- data
			}
		case "requestState":
			c.hub.mu.RLock()
			getState := c.hub.getState
			c.hub.mu.RUnlock()
			if getState != nil {
				state := Message{Type: "initialState", Data: getState()}
				if data, err := json.Marshal(state); err == nil {
					c.send <- data
				}
			}
		default:
			log.Debug().Str("client", c.id).Str("type", msg.Type).Msg("Received websocket message")
		}
	}
}

// writePump handles outgoing messages to the client.
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush any queued messages in the same wake-up
			n := len(c.send)
			for i := 0; i < n; i++ {
				select {
				case msg := <-c.send:
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
