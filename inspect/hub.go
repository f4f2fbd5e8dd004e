package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/lixenwraith/muffle/parameter"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// broadcastBuffer is the hub inbound queue; reports beyond it are dropped
	broadcastBuffer = 64
)

// client is one websocket subscriber
// Only writePump writes to conn
type client struct {
	id   string
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(h *hub, conn *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, parameter.InspectClientBuffer),
	}
}

// readPump discards inbound frames and detects disconnection
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(parameter.InspectWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(parameter.InspectWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// hub fans tick reports out to subscribers
// Thread-Safety:
//   - broadcast: any goroutine, never blocks
//   - join, leave: websocket handler goroutines
//   - run: single goroutine owning the client set
type hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	inbound    chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		inbound:    make(chan []byte, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// run owns the client set until ctx ends, then closes every client queue
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("inspector client connected", "client", c.id, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("inspector client disconnected", "client", c.id, "clients", n)

		case msg := <-h.inbound:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("inspector dropped slow client", "client", c.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join registers c; it reports false once the hub stopped
func (h *hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// broadcast queues a pre-encoded message, dropping it when the hub lags
func (h *hub) broadcast(msg []byte) bool {
	select {
	case h.inbound <- msg:
		return true
	default:
		return false
	}
}

// broadcastJSON encodes v and queues it
func (h *hub) broadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !h.broadcast(data) {
		h.logger.Debug("inspector broadcast queue full, report dropped")
	}
	return nil
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
