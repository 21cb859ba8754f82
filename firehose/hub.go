// Package firehose publishes accepted ledger mutations as an event stream,
// both to in-process subscribers (the archive) and to websocket clients.
// Publishing never blocks a mutation: slow consumers are dropped.
package firehose

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const subscriberBufferSize = 1024
const clientBufferSize = 256
const clientWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one websocket consumer. Events flow through its buffered send
// channel to a dedicated writer goroutine, so a stalled connection only
// ever fills its own buffer.
type client struct {
	conn *websocket.Conn
	send chan Event
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	clients     map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		clients:     make(map[*client]struct{}),
	}
}

// Subscribe registers an in-process consumer. The returned channel is
// buffered; events overflowing the buffer are dropped for that consumer.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBufferSize)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish fans the event out to every subscriber and websocket client.
// Sends are non-blocking; a client whose buffer is full is dropped.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			log.Warnf("Dropping event %s for slow subscriber", event.ID)
		}
	}
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			log.Infof("Dropping stalled firehose client")
			h.removeClientLocked(c)
		}
	}
}

// ServeWs upgrades the request to a websocket and streams events to it.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading firehose connection: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, clientBufferSize),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
		if err := c.conn.WriteJSON(event); err != nil {
			log.Infof("Dropping firehose client: %v", err)
			h.removeClient(c)
			return
		}
	}
}

// readLoop drains reads so close frames are processed; clients are
// write-only.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.removeClient(c)
			return
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	h.removeClientLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeClientLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
