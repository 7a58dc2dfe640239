package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventsHub manages WebSocket connections for real-time engine events
type EventsHub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound messages to all clients
	broadcast chan []byte

	// Stop channel
	stopChan chan struct{}

	logger *logrus.Logger
	mu     sync.RWMutex
}

// Client represents a WebSocket client connection
type Client struct {
	// The WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Client metadata
	clientID string

	// Hub reference
	hub *EventsHub

	// Last ping time
	lastPing time.Time
}

// EventMessage represents a message sent over WebSocket
type EventMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// NewEventsHub creates a new events hub
func NewEventsHub(logger *logrus.Logger) *EventsHub {
	return &EventsHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stopChan:   make(chan struct{}),
		logger:     logger,
	}
}

// Start runs the events hub
func (h *EventsHub) Start() {
	h.logger.Info("Starting events hub")

	// Start cleanup routine
	go h.cleanupRoutine()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.stopChan:
			h.logger.Info("Events hub stopping")
			return
		}
	}
}

// Stop stops the events hub
func (h *EventsHub) Stop() {
	close(h.stopChan)

	// Close all client connections
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
}

// Publish broadcasts an engine event to every connected client. It never
// blocks: when the broadcast channel is full the message is dropped.
func (h *EventsHub) Publish(eventType string, payload interface{}) {
	message := &EventMessage{
		Type:      eventType,
		Data:      payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Errorf("Failed to marshal event message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast channel full, dropping event")
	}
}

// HandleWebSocket handles WebSocket connection requests
func (h *EventsHub) HandleWebSocket(w http.ResponseWriter, r *http.Request, clientID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		clientID: clientID,
		hub:      h,
		lastPing: time.Now(),
	}

	// Register client
	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// registerClient registers a new client
func (h *EventsHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Infof("WebSocket client connected: client=%s", client.clientID)

	// Send welcome message
	welcomeMsg := &EventMessage{
		Type:      "connected",
		Data:      map[string]interface{}{"client_id": client.clientID},
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(welcomeMsg); err == nil {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// unregisterClient unregisters a client
func (h *EventsHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Infof("WebSocket client disconnected: client=%s", client.clientID)
	}
}

// broadcastMessage broadcasts a message to all clients. Clients whose send
// buffer is full are dropped, so the map is mutated here and the write lock
// is required.
func (h *EventsHub) broadcastMessage(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// cleanupRoutine periodically cleans up inactive connections
func (h *EventsHub) cleanupRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.cleanupInactiveClients()
		case <-h.stopChan:
			return
		}
	}
}

// cleanupInactiveClients removes clients that haven't pinged recently
func (h *EventsHub) cleanupInactiveClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-5 * time.Minute)

	for client := range h.clients {
		if client.lastPing.Before(cutoff) {
			h.logger.Infof("Cleaning up inactive WebSocket client: client=%s", client.clientID)
			close(client.send)
			client.conn.Close()
			delete(h.clients, client)
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *EventsHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client methods

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.lastPing = time.Now()
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming client messages
func (c *Client) handleMessage(message []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Debugf("Ignoring malformed client message: %v", err)
		return
	}

	if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
		c.lastPing = time.Now()
		pong := &EventMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		}
		if data, err := json.Marshal(pong); err == nil {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}
