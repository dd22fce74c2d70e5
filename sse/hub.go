package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/diarscribe/logger"
)

const clientBuffer = 64

// Client is one connected event stream.
type Client struct {
	id     string
	events chan Event
}

// NewClient creates a client with a buffered event channel.
func NewClient(id string) *Client {
	return &Client{id: id, events: make(chan Event, clientBuffer)}
}

// ID returns the client identifier used for pattern matching.
func (c *Client) ID() string { return c.id }

// Events returns the channel the handler drains.
func (c *Client) Events() <-chan Event { return c.events }

// send drops the event when the client is not keeping up.
func (c *Client) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

type message struct {
	pattern string
	event   Event
}

// Hub routes published events to registered clients. All client channel
// sends and closes happen on the Run goroutine.
type Hub struct {
	log *logger.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[string]*Client
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run to start routing.
func NewHub() *Hub {
	return &Hub{
		log:        logger.Get("sse"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
	}
}

// Run routes events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				close(old.events)
			}
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				close(c.events)
			}
			h.mu.Unlock()
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements Broadcaster. Events published after Stop are dropped.
func (h *Hub) Publish(pattern string, ev Event) {
	select {
	case h.broadcast <- message{pattern: pattern, event: ev}:
	case <-h.done:
	}
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		matched, err := filepath.Match(m.pattern, id)
		if err != nil {
			h.log.Error("Bad event pattern", logger.Fields("pattern", m.pattern, "error", err.Error()))
			return
		}
		if matched && !c.send(m.event) {
			h.log.Warn("Client too slow, event dropped", logger.Fields("client_id", id, "event", m.event.Type))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
