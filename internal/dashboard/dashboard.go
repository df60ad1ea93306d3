// Package dashboard is the browser-facing view layer: a JSON API over the
// session plus a websocket that pushes every published state and search
// dropdown change.
package dashboard

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/history"
	"github.com/ziadkadry99/molscope/internal/rcsb"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

// Session is the coordinator surface the dashboard drives.
type Session interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
	LoadByID(ctx context.Context, id string) error
	LoadFromText(ctx context.Context, text string) error
	SetStyle(kind chainstyle.Kind) error
	Resize() error
	OrientationChanged() error
}

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*chat.Reply, error)
	Transcript(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)
}

// HistoryReader lists recent loads.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are the collaborators behind the dashboard. Chat, History and
// Examples may be nil; their endpoints then report they are unavailable.
type Deps struct {
	Session  Session
	Search   search.Backend
	Chat     Asker
	History  HistoryReader
	Examples *examples.Catalog
	Hub      *Hub
	Viewport *Viewport

	// SearchOptions configure each view's dropdown controller.
	SearchOptions  []search.Option
	MinQueryLength int
}

// Dashboard serves the view layer.
type Dashboard struct {
	deps        Deps
	hub         *Hub
	viewport    *Viewport
	logger      *zap.Logger
	unsubscribe func()
}

// New creates a Dashboard and subscribes it to the session.
func New(deps Deps, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("dashboard")
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	vp := deps.Viewport
	if vp == nil {
		vp = NewViewport(0, hub)
	}
	d := &Dashboard{
		deps:     deps,
		hub:      hub,
		viewport: vp,
		logger:   logger,
	}
	d.unsubscribe = deps.Session.Subscribe(d.publishState)
	return d
}

// Close unsubscribes from the session and disconnects every view.
func (d *Dashboard) Close() {
	d.unsubscribe()
	d.hub.Close()
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", d.handleSession)
		r.Post("/session/load", d.handleLoad)
		r.Post("/session/style", d.handleStyle)
		r.Post("/session/resize", d.handleResize)
		r.Post("/session/orientation", d.handleOrientation)
		r.Get("/search", d.handleSearch)
		r.Post("/chat", d.handleChat)
		r.Get("/chat/{sessionID}", d.handleTranscript)
		r.Get("/history", d.handleHistory)
		r.Get("/examples", d.handleExamples)
	})
	r.Get("/ws", d.handleWebSocket)
}

// sessionView is a published state plus the style rules the browser
// applies to its own surface.
type sessionView struct {
	session.State
	Rules         []chainstyle.Rule   `json:"rules"`
	SequenceLines []rcsb.SequenceLine `json:"sequence_lines,omitempty"`
}

func newSessionView(st session.State) sessionView {
	return sessionView{
		State:         st,
		Rules:         chainstyle.FromAssignments(st.Chains).Rules(st.Style),
		SequenceLines: st.Sequence.Lines(),
	}
}

func (d *Dashboard) publishState(st session.State) {
	v := newSessionView(st)
	d.hub.Broadcast(event{Type: eventState, Session: &v})
}
