package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages queued before notifications are dropped.
	broadcastBuffer = 256
)

// Outbound event names
const (
	EventSnapshot = "snapshot"
	EventPuzzle   = "event"
	EventError    = "error"
)

// Inbound message types
const (
	MessagePointer = "pointer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins, the puzzle carries no credentials
		return true
	},
}

var _ service.Notifier = (*Hub)(nil)

// Message is sent to clients of a session
type Message struct {
	SessionID string           `json:"session_id"`
	Event     string           `json:"event"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Data      any              `json:"data,omitempty"`
}

// InboundMessage is what clients send. Only pointer events are understood.
type InboundMessage struct {
	Type    string               `json:"type"`
	Pointer *engine.PointerInput `json:"pointer,omitempty"`
}

// InboundHandler receives pointer events from a session's clients
type InboundHandler func(sessionID string, in engine.PointerInput) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type envelope struct {
	sessionID string
	data      []byte
	to        *Client // nil for every client of the session
}

type countRequest struct {
	sessionID string
	reply     chan int
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID, owned by Run
	sessions map[string]map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger

	mu      sync.RWMutex
	inbound InboundHandler
}

// Option configures a Hub
type Option func(*Hub)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetInboundHandler routes client pointer events to fn
func (h *Hub) SetInboundHandler(fn InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inbound = fn
}

func (h *Hub) inboundHandler() InboundHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inbound
}

// Run starts the hub's event loop and returns after Stop
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			for _, clients := range h.sessions {
				for client := range clients {
					close(client.send)
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)

		case req := <-h.counts:
			req.reply <- len(h.sessions[req.sessionID])
		}
	}
}

// Stop ends Run and disconnects every client. Use Wait to block until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Wait blocks until Run has returned
func (h *Hub) Wait() {
	<-h.stopped
}

// ClientCount reports how many clients follow a session
func (h *Hub) ClientCount(sessionID string) int {
	req := countRequest{sessionID: sessionID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades the request and follows sessionID on the new connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// NotifySnapshot sends the puzzle snapshot to every client of the session
func (h *Hub) NotifySnapshot(sessionID string, snap *engine.Snapshot) {
	h.publish(nil, &Message{SessionID: sessionID, Event: EventSnapshot, Snapshot: snap})
}

// NotifyEvent sends a puzzle event to every client of the session
func (h *Hub) NotifyEvent(sessionID string, ev engine.Event) {
	h.publish(nil, &Message{SessionID: sessionID, Event: EventPuzzle, Data: ev})
}

// publish never blocks the caller, the frame loop notifies while holding a session
func (h *Hub) publish(to *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Str("session", message.SessionID).Msg("failed to marshal websocket message")
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: message.SessionID, data: data, to: to}:
	case <-h.done:
	default:
		h.logger.Warn().Str("session", message.SessionID).Str("event", message.Event).Msg("websocket queue full, dropping message")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.Debug().Str("session", client.sessionID).Int("clients", len(h.sessions[client.sessionID])).Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.Debug().Str("session", client.sessionID).Int("clients", len(clients)).Msg("client unregistered")
}

// deliver sends an envelope to its session, dropping clients that cannot keep up
func (h *Hub) deliver(env envelope) {
	clients, ok := h.sessions[env.sessionID]
	if !ok {
		return
	}
	for client := range clients {
		if env.to != nil && env.to != client {
			continue
		}
		select {
		case client.send <- env.data:
		default:
			// Client's send channel is full, close it
			h.unregisterClient(client)
		}
	}
}

// handleInbound decodes one client message and passes pointer events on
func (c *Client) handleInbound(raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(fmt.Sprintf("invalid message: %v", err))
		return
	}
	if msg.Type != MessagePointer || msg.Pointer == nil {
		c.reply(fmt.Sprintf("unsupported message type %q", msg.Type))
		return
	}
	if err := msg.Pointer.Validate(); err != nil {
		c.reply(err.Error())
		return
	}

	handler := c.hub.inboundHandler()
	if handler == nil {
		return
	}
	if err := handler(c.sessionID, *msg.Pointer); err != nil {
		c.reply(err.Error())
	}
}

func (c *Client) reply(text string) {
	c.hub.publish(c, &Message{SessionID: c.sessionID, Event: EventError, Data: text})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("session", c.sessionID).Msg("websocket read error")
			}
			break
		}
		c.handleInbound(raw)
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
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame so clients can parse each message
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
