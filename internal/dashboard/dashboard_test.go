package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/db"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/history"
	"github.com/ziadkadry99/molscope/internal/llm"
	"github.com/ziadkadry99/molscope/internal/normalize"
	"github.com/ziadkadry99/molscope/internal/rcsb"
	"github.com/ziadkadry99/molscope/internal/render"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

const twoChains = `ATOM      1  CA  ALA A   1       0.000   0.000   0.000  1.00  0.00           C
ATOM      2  CA  GLY B   1       1.000   0.000   0.000  1.00  0.00           C
`

// fakeRCSB serves both the session and the search dropdown.
type fakeRCSB struct{}

func (fakeRCSB) FetchEntry(_ context.Context, id string) (*rcsb.Entry, error) {
	e := &rcsb.Entry{ID: id}
	e.Struct.Title = "Entry " + id
	return e, nil
}

func (fakeRCSB) FetchSequence(_ context.Context, id string) *rcsb.SequenceRecord {
	return &rcsb.SequenceRecord{EntityID: 1, Sequence: "MVLSPADKTN", Type: "polypeptide(L)", Chains: []string{"A"}}
}

func (fakeRCSB) FetchStructure(_ context.Context, id string) (string, error) {
	if id == "0BAD" {
		return "", &rcsb.NetworkError{URL: "download/" + id, StatusCode: 404}
	}
	return twoChains, nil
}

func (fakeRCSB) Search(_ context.Context, query string) ([]string, error) {
	return []string{"4HHB", "2HHB"}, nil
}

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.CompletionResponse{Content: "**echo** " + last.Content, Model: "echo-1"}, nil
}

type harness struct {
	dash    *Dashboard
	coord   *session.Coordinator
	history *history.Store
	router  chi.Router
}

func setupTest(t *testing.T, withChat bool) *harness {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	hub := NewHub(nil)
	vp := NewViewport(768, hub)
	adapter := render.NewAdapter(
		render.WithFrameScheduler(&render.ManualScheduler{}),
		render.WithSettleDelay(10*time.Millisecond),
		render.WithNarrowViewport(vp.IsNarrow, vp.Collapse))
	if err := adapter.Attach(render.NewHeadlessSurface()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := adapter.Observe(vp.Release); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	coord := session.New(fakeRCSB{}, normalize.PDB{}, adapter)
	t.Cleanup(func() { coord.Teardown() })

	store := history.NewStore(database, nil)
	coord.Subscribe(store.Observe)

	deps := Deps{
		Session:       coord,
		Search:        fakeRCSB{},
		History:       store,
		Examples:      examples.New(t.TempDir(), nil),
		Hub:           hub,
		Viewport:      vp,
		SearchOptions: []search.Option{search.WithDebounce(5 * time.Millisecond)},
	}
	if withChat {
		deps.Chat = chat.NewService(echoProvider{}, coord, store, 0, nil)
	}
	d := New(deps, nil)
	t.Cleanup(d.Close)

	r := chi.NewRouter()
	d.RegisterRoutes(r)
	return &harness{dash: d, coord: coord, history: store, router: r}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// viewJSON mirrors the wire form of a session view.
type viewJSON struct {
	Phase       string `json:"phase"`
	StructureID string `json:"structure_id"`
	Style       string `json:"style"`
	Error       string `json:"error"`
	Rules       []struct {
		Selector struct {
			Chain string `json:"chain"`
		} `json:"selector"`
		Style struct {
			Kind  string `json:"kind"`
			Color string `json:"color"`
		} `json:"style"`
	} `json:"rules"`
	SequenceLines []rcsb.SequenceLine `json:"sequence_lines"`
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) viewJSON {
	t.Helper()
	var v viewJSON
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding session view: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestSessionEndpointIdle(t *testing.T) {
	h := setupTest(t, false)

	w := h.do(t, "GET", "/api/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"phase":"idle"`) {
		t.Errorf("expected idle phase, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"rules":[]`) {
		t.Errorf("expected empty rules, got %s", w.Body.String())
	}
}

func TestLoadTextEndpoint(t *testing.T) {
	h := setupTest(t, false)

	body, _ := json.Marshal(loadRequest{Text: twoChains})
	w := h.do(t, "POST", "/api/session/load", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.Phase != "ready" {
		t.Fatalf("phase = %q, want ready", v.Phase)
	}
	if len(v.Rules) != 2 || v.Rules[0].Style.Color != "red" || v.Rules[1].Style.Color != "green" {
		t.Errorf("unexpected rules: %+v", v.Rules)
	}
}

func TestLoadByIDEndpoint(t *testing.T) {
	h := setupTest(t, false)

	w := h.do(t, "POST", "/api/session/load", `{"id":"4hhb"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.StructureID != "4HHB" {
		t.Errorf("structure id = %q, want 4HHB", v.StructureID)
	}
	if len(v.SequenceLines) != 1 || v.SequenceLines[0].Text != "MVLSPADKTN" {
		t.Errorf("unexpected sequence lines: %+v", v.SequenceLines)
	}
}

func TestLoadEndpointErrors(t *testing.T) {
	h := setupTest(t, false)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"nothing to load", `{}`, http.StatusBadRequest},
		{"unknown example", `{"example":"9ZZZ"}`, http.StatusNotFound},
		{"missing structure", `{"id":"0BAD"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, "POST", "/api/session/load", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	if st := h.coord.State(); st.Phase != session.Error {
		t.Errorf("phase after failed load = %v, want error", st.Phase)
	}
}

func TestStyleEndpoint(t *testing.T) {
	h := setupTest(t, false)
	h.do(t, "POST", "/api/session/load", `{"example":"1crn"}`)

	if w := h.do(t, "POST", "/api/session/style", `{"style":"ribbon"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown style, got %d", w.Code)
	}

	w := h.do(t, "POST", "/api/session/style", `{"style":"sphere"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.Style != "sphere" {
		t.Errorf("style = %q, want sphere", v.Style)
	}
	for _, r := range v.Rules {
		if r.Style.Kind != "sphere" {
			t.Errorf("rule %s kind = %q, want sphere", r.Selector.Chain, r.Style.Kind)
		}
	}
}

func TestViewportEndpoints(t *testing.T) {
	h := setupTest(t, false)

	if w := h.do(t, "POST", "/api/session/resize", `{"width":1200}`); w.Code != http.StatusAccepted {
		t.Fatalf("resize: expected 202, got %d", w.Code)
	}
	if h.dash.viewport.IsNarrow() {
		t.Error("1200px viewport should not be narrow")
	}
	if w := h.do(t, "POST", "/api/session/orientation", `{"width":600}`); w.Code != http.StatusAccepted {
		t.Fatalf("orientation: expected 202, got %d", w.Code)
	}
	if !h.dash.viewport.IsNarrow() {
		t.Error("600px viewport should be narrow")
	}
	if w := h.do(t, "POST", "/api/session/resize", ""); w.Code != http.StatusAccepted {
		t.Errorf("resize without body: expected 202, got %d", w.Code)
	}
}

func TestTeardownReleasesViewport(t *testing.T) {
	h := setupTest(t, false)
	h.dash.viewport.SetWidth(600)
	if !h.dash.viewport.IsNarrow() {
		t.Fatal("600px viewport should be narrow")
	}

	c := &client{send: make(chan []byte, 4), done: make(chan struct{})}
	h.dash.hub.add(c)
	if err := h.coord.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	if h.dash.viewport.IsNarrow() {
		t.Error("released viewport should forget its width")
	}
	h.dash.viewport.SetWidth(500)
	h.dash.viewport.Collapse()
	if h.dash.viewport.IsNarrow() || len(c.send) != 0 {
		t.Errorf("released viewport still active: narrow=%v queued=%d", h.dash.viewport.IsNarrow(), len(c.send))
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := setupTest(t, false)

	w := h.do(t, "GET", "/api/search?q=h", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("short query: got %d %s", w.Code, w.Body.String())
	}

	w = h.do(t, "GET", "/api/search?q=hemoglobin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var results []search.Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 2 || results[0].Title != "Entry 4HHB" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestChatEndpoint(t *testing.T) {
	h := setupTest(t, false)
	if w := h.do(t, "POST", "/api/chat", `{"content":"hi"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without chat, got %d", w.Code)
	}

	h = setupTest(t, true)
	if w := h.do(t, "POST", "/api/chat", `{"content":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty question, got %d", w.Code)
	}

	w := h.do(t, "POST", "/api/chat", `{"content":"what is this?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reply chat.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.SessionID == "" || !strings.Contains(reply.HTML, "<strong>echo</strong>") {
		t.Errorf("unexpected reply: %+v", reply)
	}

	w = h.do(t, "GET", "/api/chat/"+reply.SessionID, "")
	var turns []chat.Turn
	if err := json.Unmarshal(w.Body.Bytes(), &turns); err != nil {
		t.Fatalf("unmarshal transcript: %v", err)
	}
	if len(turns) != 2 {
		t.Errorf("expected 2 turns, got %d", len(turns))
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := setupTest(t, false)

	w := h.do(t, "GET", "/api/history", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty history, got %s", w.Body.String())
	}

	h.do(t, "POST", "/api/session/load", `{"id":"1UBQ"}`)
	w = h.do(t, "GET", "/api/history?limit=5", "")
	var entries []history.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 || entries[0].StructureID != "1UBQ" {
		t.Errorf("unexpected history: %+v", entries)
	}
}

func TestExamplesEndpoint(t *testing.T) {
	h := setupTest(t, false)

	w := h.do(t, "GET", "/api/examples", "")
	var list []examples.Example
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != len(examples.Builtin) {
		t.Errorf("expected %d examples, got %d", len(examples.Builtin), len(list))
	}
}

func TestServeIndex(t *testing.T) {
	h := setupTest(t, false)
	w := h.do(t, "GET", "/", "")
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "/ws") {
		t.Error("index page should open the websocket")
	}
}

// wsConn dials the dashboard websocket on a test server.
func wsConn(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireEvent struct {
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session"`
	Search  *search.View    `json:"search"`
	Reply   *chat.Reply     `json:"reply"`
	Error   string          `json:"error"`
}

// readUntil reads events until ok accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(wireEvent) bool) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ok(ev) {
			return ev
		}
	}
}

func TestWebSocketPushesState(t *testing.T) {
	h := setupTest(t, false)
	conn := wsConn(t, h)

	readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventState && strings.Contains(string(ev.Session), `"phase":"idle"`)
	})

	if err := conn.WriteJSON(socketRequest{Type: "load", ID: "4HHB"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventState && strings.Contains(string(ev.Session), `"phase":"loading"`)
	})
	ev := readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventState && strings.Contains(string(ev.Session), `"phase":"ready"`)
	})
	if !strings.Contains(string(ev.Session), `"structure_id":"4HHB"`) {
		t.Errorf("ready state missing structure id: %s", ev.Session)
	}
}

func TestWebSocketSearchDropdown(t *testing.T) {
	h := setupTest(t, false)
	conn := wsConn(t, h)

	conn.WriteJSON(socketRequest{Type: "search_input", Query: "hemo"})
	ev := readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventSearch && !ev.Search.Searching && len(ev.Search.Results) > 0
	})
	if ev.Search.Results[0].ID != "4HHB" {
		t.Errorf("unexpected results: %+v", ev.Search.Results)
	}

	conn.WriteJSON(socketRequest{Type: "search_select", ID: "2HHB"})
	readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventSearch && !ev.Search.Open
	})
	readUntil(t, conn, func(ev wireEvent) bool {
		return ev.Type == eventState && strings.Contains(string(ev.Session), `"structure_id":"2HHB"`) &&
			strings.Contains(string(ev.Session), `"phase":"ready"`)
	})
}

func TestWebSocketErrors(t *testing.T) {
	h := setupTest(t, false)
	conn := wsConn(t, h)

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	ev := readUntil(t, conn, func(ev wireEvent) bool { return ev.Type == eventError })
	if ev.Error != "invalid message format" {
		t.Errorf("unexpected error %q", ev.Error)
	}

	conn.WriteJSON(socketRequest{Type: "teleport"})
	ev = readUntil(t, conn, func(ev wireEvent) bool { return ev.Type == eventError })
	if !strings.Contains(ev.Error, "teleport") {
		t.Errorf("unexpected error %q", ev.Error)
	}

	conn.WriteJSON(socketRequest{Type: "chat", Content: "hi"})
	ev = readUntil(t, conn, func(ev wireEvent) bool { return ev.Type == eventError })
	if !strings.Contains(ev.Error, "chat") {
		t.Errorf("unexpected error %q", ev.Error)
	}
}

func TestWebSocketOrientationCollapsesNarrowPanel(t *testing.T) {
	h := setupTest(t, false)
	conn := wsConn(t, h)

	conn.WriteJSON(socketRequest{Type: "orientation", Width: 500})
	readUntil(t, conn, func(ev wireEvent) bool { return ev.Type == eventCollapse })
}

func TestWebSocketChat(t *testing.T) {
	h := setupTest(t, true)
	conn := wsConn(t, h)

	conn.WriteJSON(socketRequest{Type: "chat", Content: "describe it"})
	ev := readUntil(t, conn, func(ev wireEvent) bool { return ev.Type == eventReply })
	if !strings.Contains(ev.Reply.Content, "describe it") {
		t.Errorf("unexpected reply %+v", ev.Reply)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	hub.add(c)

	hub.Broadcast(event{Type: eventCollapse})
	hub.Broadcast(event{Type: eventCollapse})

	if hub.Count() != 0 {
		t.Errorf("slow client should be dropped, %d remain", hub.Count())
	}
	select {
	case <-c.done:
	default:
		t.Error("dropped client should be stopped")
	}
}
