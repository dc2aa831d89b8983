// Package realtime streams notification events to connected browsers over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"kavyalok/auth"
	"kavyalok/logger"
	"kavyalok/models"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Event is the envelope of every frame sent to a client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type envelope struct {
	email  string
	client *Client // when set, only this connection receives data
	data   []byte
}

type Client struct {
	conn  *websocket.Conn
	email string
	send  chan []byte
	hub   *Hub
}

// Hub tracks connected clients by email. All map access happens on the Run
// goroutine.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan envelope
	count      chan chan int
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan envelope, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[string]map[*Client]bool{}
			return

		case client := <-h.register:
			set, ok := h.clients[client.email]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.email] = set
			}
			set[client] = true
			logger.Log.WithField("email", client.email).Debug("WebSocket client registered")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.deliver:
			for client := range h.clients[msg.email] {
				if msg.client != nil && msg.client != client {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					logger.Log.WithField("email", client.email).Warn("Dropping slow WebSocket client")
					h.remove(client)
				}
			}

		case reply := <-h.count:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.email]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.email)
	}
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Publish queues event for every connection of email.
func (h *Hub) Publish(ctx context.Context, email string, event Event) error {
	return h.enqueue(ctx, envelope{email: email}, event)
}

func (h *Hub) enqueue(ctx context.Context, msg envelope, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal websocket event")
	}
	msg.data = data
	select {
	case h.deliver <- msg:
		return nil
	case <-h.done:
		return errors.New("realtime hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver publishes a notification event. It lets the hub act as one of the
// live notification channels.
func (h *Hub) Deliver(ctx context.Context, email string, n models.NotificationView) error {
	return h.Publish(ctx, email, Event{Type: "notification", Payload: n})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades requests authenticated with ?token= and attaches them to
// the hub under the token's email.
func Handler(h *Hub, verifier auth.Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}
		identity, err := verifier.Verify(r.Context(), token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		client := &Client{
			conn:  conn,
			email: identity.Email,
			send:  make(chan []byte, sendBuffer),
			hub:   h,
		}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		welcome := Event{
			Type:    "connected",
			Payload: map[string]interface{}{"email": identity.Email, "time": time.Now().Unix()},
		}
		if err := h.enqueue(r.Context(), envelope{email: client.email, client: client}, welcome); err != nil {
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithError(err).Debug("WebSocket read error")
			}
			return
		}

		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		if frame.Type == "ping" {
			pong := Event{Type: "pong", Payload: map[string]int64{"time": time.Now().Unix()}}
			if err := c.hub.enqueue(context.Background(), envelope{email: c.email, client: c}, pong); err != nil {
				return
			}
		}
	}
}

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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
