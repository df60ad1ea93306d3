package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/history"
	"github.com/ziadkadry99/molscope/internal/render"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

var (
	errEmptyLoad   = errors.New("one of id, text or example is required")
	errNoExamples  = errors.New("example catalog not configured")
	errUnavailable = errors.New("not configured")
)

// loadRequest selects what to load. The first non-empty field wins, in the
// order example, id, text.
type loadRequest struct {
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
	Example string `json:"example,omitempty"`
}

type styleRequest struct {
	Style string `json:"style"`
}

type viewportRequest struct {
	Width int `json:"width"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

func (d *Dashboard) load(ctx context.Context, req loadRequest) error {
	switch {
	case strings.TrimSpace(req.Example) != "":
		if d.deps.Examples == nil {
			return errNoExamples
		}
		return d.deps.Examples.Load(ctx, d.deps.Session, strings.TrimSpace(req.Example))
	case strings.TrimSpace(req.ID) != "":
		return d.deps.Session.LoadByID(ctx, req.ID)
	case strings.TrimSpace(req.Text) != "":
		return d.deps.Session.LoadFromText(ctx, req.Text)
	default:
		return errEmptyLoad
	}
}

// loadStatus maps a load error to an HTTP status.
func loadStatus(err error) int {
	switch {
	case errors.Is(err, errEmptyLoad):
		return http.StatusBadRequest
	case errors.Is(err, examples.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case render.IsDisposed(err), errors.Is(err, errNoExamples):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (d *Dashboard) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(d.deps.Session.State()))
}

func (d *Dashboard) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := d.load(r.Context(), req); err != nil {
		d.logger.Debug("load failed", zap.Error(err))
		writeError(w, loadStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(d.deps.Session.State()))
}

func (d *Dashboard) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := chainstyle.ParseKind(req.Style)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.deps.Session.SetStyle(kind); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(d.deps.Session.State()))
}

func (d *Dashboard) handleResize(w http.ResponseWriter, r *http.Request) {
	d.handleViewport(w, r, d.deps.Session.Resize)
}

func (d *Dashboard) handleOrientation(w http.ResponseWriter, r *http.Request) {
	d.handleViewport(w, r, d.deps.Session.OrientationChanged)
}

func (d *Dashboard) handleViewport(w http.ResponseWriter, r *http.Request, notify func() error) {
	var req viewportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	d.viewport.SetWidth(req.Width)
	if err := notify(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (d *Dashboard) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if d.deps.Search == nil {
		writeError(w, http.StatusServiceUnavailable, "search "+errUnavailable.Error())
		return
	}
	minLen := d.deps.MinQueryLength
	if minLen <= 0 {
		minLen = search.DefaultMinQueryLength
	}
	if len(q) < minLen {
		writeJSON(w, http.StatusOK, []search.Result{})
		return
	}
	results, err := search.Query(r.Context(), d.deps.Search, q)
	if err != nil {
		d.logger.Warn("search failed", zap.String("query", q), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (d *Dashboard) handleChat(w http.ResponseWriter, r *http.Request) {
	if d.deps.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat "+errUnavailable.Error())
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := d.deps.Chat.Ask(r.Context(), req.SessionID, req.Content)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (d *Dashboard) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if d.deps.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat "+errUnavailable.Error())
		return
	}
	turns, err := d.deps.Chat.Transcript(r.Context(), chi.URLParam(r, "sessionID"), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (d *Dashboard) handleHistory(w http.ResponseWriter, r *http.Request) {
	if d.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history "+errUnavailable.Error())
		return
	}
	entries, err := d.deps.History.Recent(r.Context(), queryLimit(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (d *Dashboard) handleExamples(w http.ResponseWriter, r *http.Request) {
	if d.deps.Examples == nil {
		writeJSON(w, http.StatusOK, examples.Builtin)
		return
	}
	list, err := d.deps.Examples.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
