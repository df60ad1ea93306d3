package dashboard

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/search"
)

const (
	eventState    = "state"
	eventSearch   = "search"
	eventReply    = "reply"
	eventError    = "error"
	eventCollapse = "collapse_panel"

	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// event is the outgoing websocket message format.
type event struct {
	Type    string       `json:"type"`
	Session *sessionView `json:"session,omitempty"`
	Search  *search.View `json:"search,omitempty"`
	Reply   *chat.Reply  `json:"reply,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Hub fans events out to connected views. Sends never block the caller; a
// view that falls behind is disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// Count returns the number of connected views.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected view.
func (h *Hub) Broadcast(ev event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.enqueue(msg) {
			h.logger.Warn("dropping slow view")
			delete(h.clients, c)
			c.stop()
		}
	}
}

// Close disconnects every view.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// client is one websocket connection. Only writePump writes to conn.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newClient(conn *websocket.Conn, logger *zap.Logger) *client {
	return &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// direct sends an event to this view only.
func (c *client) direct(ev event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("encoding event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		c.stop()
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write", zap.Error(err))
				c.stop()
				return
			}
		}
	}
}

// Viewport tracks the last width reported by the view so the render adapter
// can tell whether an orientation change should collapse the side panel.
type Viewport struct {
	narrowWidth int64
	width       atomic.Int64
	released    atomic.Bool
	hub         *Hub
}

// NewViewport creates a viewport that counts as narrow at or below
// narrowWidth pixels.
func NewViewport(narrowWidth int, hub *Hub) *Viewport {
	return &Viewport{narrowWidth: int64(narrowWidth), hub: hub}
}

// SetWidth records the reported viewport width. Non-positive widths are
// ignored.
func (v *Viewport) SetWidth(w int) {
	if w > 0 && !v.released.Load() {
		v.width.Store(int64(w))
	}
}

// IsNarrow reports whether the last reported width is at or below the
// breakpoint. An unknown width is not narrow.
func (v *Viewport) IsNarrow() bool {
	w := v.width.Load()
	return w > 0 && w <= v.narrowWidth
}

// Collapse tells every view to collapse its side panel.
func (v *Viewport) Collapse() {
	if v.released.Load() {
		return
	}
	v.hub.Broadcast(event{Type: eventCollapse})
}

// Release detaches the viewport from the surface. Register it with
// render.Adapter.Observe so disposal stops width tracking and collapses.
func (v *Viewport) Release() {
	v.released.Store(true)
	v.width.Store(0)
}
