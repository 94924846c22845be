// Package realtime is the change-notification bus: a websocket hub with
// table-scoped client subscriptions plus in-process listeners.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"phrasedesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer   = 256
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth is the token; origins are enforced by CORS on the API
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Verifier resolves a websocket token to a session
type Verifier interface {
	Verify(token string) (*session.Session, error)
}

// Client represents a single connected WebSocket client
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	tables  map[string]bool // empty means every table
	session *session.Session
}

func (c *Client) wants(table string) bool {
	return len(c.tables) == 0 || c.tables[table]
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex  // guards clients for ClientCount

	lmu       sync.RWMutex
	listeners map[string][]Listener // "" subscribes to every table
}

// NewHub initializes a new hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Event, 1024),
		register:   make(chan *Client),
		done:       make(chan struct{}),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		listeners:  make(map[string][]Listener),
	}
}

// Subscribe registers an in-process listener for table, or all tables when empty
func (h *Hub) Subscribe(table string, l Listener) {
	h.lmu.Lock()
	h.listeners[table] = append(h.listeners[table], l)
	h.lmu.Unlock()
}

// Publish delivers ev to in-process listeners and queues it for websocket clients
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.lmu.RLock()
	ls := append(append([]Listener(nil), h.listeners[ev.Table]...), h.listeners[""]...)
	h.lmu.RUnlock()
	for _, l := range ls {
		l(ev)
	}

	select {
	case h.broadcast <- ev:
	default:
		log.Warn().Str("table", ev.Table).Msg("realtime broadcast queue full, event dropped")
	}
}

// ClientCount is the number of connected websocket clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run starts the core dispatch loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Str("username", client.session.Username).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Debug().Str("username", client.session.Username).Msg("websocket client disconnected")
			}
			h.mu.Unlock()
		case ev := <-h.broadcast:
			frame, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("table", ev.Table).Msg("failed to encode realtime event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(ev.Table) {
					continue
				}
				select {
				case client.send <- frame:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing frames from the hub to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(frame)

			// Fast track writing queued frames
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

// readPump keeps the connection alive; clients never send data frames
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. The token comes from the token
// query parameter or the access_token cookie; tables narrows the subscription.
func ServeWs(hub *Hub, verifier Verifier, c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString, _ = c.Cookie("access_token")
	}
	if tokenString == "" {
		log.Debug().Msg("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sess, err := verifier.Verify(tokenString)
	if err != nil {
		log.Debug().Err(err).Msg("websocket connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		tables:  ParseTables(c.Query("tables")),
		session: sess,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ParseTables splits a comma separated table list
func ParseTables(raw string) map[string]bool {
	tables := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables[t] = true
		}
	}
	return tables
}
