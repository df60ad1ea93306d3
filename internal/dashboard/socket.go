package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketRequest is the incoming websocket message format. Which fields are
// read depends on Type.
type socketRequest struct {
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	ID        string `json:"id,omitempty"`
	Text      string `json:"text,omitempty"`
	Example   string `json:"example,omitempty"`
	Style     string `json:"style,omitempty"`
	Width     int    `json:"width,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := newClient(conn, d.logger)
	if !d.hub.add(c) {
		conn.Close()
		return
	}
	go c.writePump()
	defer func() {
		d.hub.remove(c)
		c.stop()
	}()

	opts := append([]search.Option{}, d.deps.SearchOptions...)
	opts = append(opts,
		search.WithLogger(d.logger),
		search.WithOnChange(func(v search.View) {
			c.direct(event{Type: eventSearch, Search: &v})
		}))
	var dropdown *search.Controller
	if d.deps.Search != nil {
		dropdown = search.New(d.deps.Search, d.deps.Session, opts...)
		defer dropdown.Stop()
	}

	initial := newSessionView(d.deps.Session.State())
	c.direct(event{Type: eventState, Session: &initial})

	// Work started from the socket outlives the upgrade request.
	ctx := context.WithoutCancel(r.Context())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Debug("websocket read", zap.Error(err))
			}
			return
		}

		var req socketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.direct(event{Type: eventError, Error: "invalid message format"})
			continue
		}
		d.dispatch(ctx, c, dropdown, req)
	}
}

func (d *Dashboard) dispatch(ctx context.Context, c *client, dropdown *search.Controller, req socketRequest) {
	switch req.Type {
	case "search_input", "search_select", "search_close":
		if dropdown == nil {
			c.direct(event{Type: eventError, Error: "search " + errUnavailable.Error()})
			return
		}
		switch req.Type {
		case "search_input":
			dropdown.Input(req.Query)
		case "search_select":
			go func() { d.report(c, dropdown.Select(ctx, req.ID)) }()
		default:
			dropdown.Close()
		}

	case "load":
		lr := loadRequest{ID: req.ID, Text: req.Text, Example: req.Example}
		go func() { d.report(c, d.load(ctx, lr)) }()

	case "style":
		kind, err := chainstyle.ParseKind(req.Style)
		if err != nil {
			c.direct(event{Type: eventError, Error: err.Error()})
			return
		}
		d.report(c, d.deps.Session.SetStyle(kind))

	case "resize":
		d.viewport.SetWidth(req.Width)
		d.report(c, d.deps.Session.Resize())

	case "orientation":
		d.viewport.SetWidth(req.Width)
		d.report(c, d.deps.Session.OrientationChanged())

	case "chat":
		if d.deps.Chat == nil {
			c.direct(event{Type: eventError, Error: "chat " + errUnavailable.Error()})
			return
		}
		go func() {
			reply, err := d.deps.Chat.Ask(ctx, req.SessionID, req.Content)
			if err != nil {
				c.direct(event{Type: eventError, Error: err.Error()})
				return
			}
			c.direct(event{Type: eventReply, Reply: reply})
		}()

	default:
		c.direct(event{Type: eventError, Error: "unknown message type: " + req.Type})
	}
}

// report sends err to the view. Superseded loads are not errors from the
// user's point of view.
func (d *Dashboard) report(c *client, err error) {
	if err == nil || errors.Is(err, session.ErrSuperseded) {
		return
	}
	c.direct(event{Type: eventError, Error: err.Error()})
}
