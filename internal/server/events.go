package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/woozymasta/dzpool/internal/session"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendChSize = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Hub fans click events out to websocket subscribers. Broadcast never blocks:
// a subscriber whose queue is full misses the event.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*client]struct{}
	mu       sync.Mutex
	closed   bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Broadcast queues ev for every connected subscriber.
func (h *Hub) Broadcast(ev session.ClickEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode click event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("Subscriber queue full, event dropped")
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// HandleEvents upgrades the request and streams click events as JSON text
// messages until the peer goes away.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendChSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("Event subscriber connected")

	go c.writeLoop()
	c.readLoop()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Event subscriber disconnected")
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop discards inbound messages; it only tracks pongs and disconnects.
func (c *client) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("Websocket write failed")
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) write(kind int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, data)
}
