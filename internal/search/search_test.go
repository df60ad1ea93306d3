package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/molscope/internal/rcsb"
)

// fakeBackend records queries and can hold a query until released.
type fakeBackend struct {
	mu      sync.Mutex
	queries []string
	gates   map[string]chan struct{}
	started chan string
	results map[string][]string
	err     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
		results: make(map[string][]string),
	}
}

func (b *fakeBackend) hold(query string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[query] = ch
	return ch
}

func (b *fakeBackend) Search(_ context.Context, query string) ([]string, error) {
	b.mu.Lock()
	b.queries = append(b.queries, query)
	gate := b.gates[query]
	ids := b.results[query]
	err := b.err
	b.mu.Unlock()

	b.started <- query
	if gate != nil {
		<-gate
	}
	return ids, err
}

func (b *fakeBackend) FetchEntry(_ context.Context, id string) (*rcsb.Entry, error) {
	if id == "NOTITLE" {
		return nil, errors.New("entry unavailable")
	}
	e := &rcsb.Entry{ID: id}
	e.Struct.Title = "Title of " + id
	return e, nil
}

func (b *fakeBackend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

type fakeLoader struct {
	mu  sync.Mutex
	ids []string
}

func (l *fakeLoader) LoadByID(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
	return nil
}

// views collects every published View.
type views struct {
	ch chan View
}

func newViews() *views { return &views{ch: make(chan View, 64)} }

func (v *views) record(view View) { v.ch <- view }

// waitFor returns the first view satisfying ok.
func (v *views) waitFor(t *testing.T, ok func(View) bool) View {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case view := <-v.ch:
			if ok(view) {
				return view
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}

func waitStarted(t *testing.T, b *fakeBackend, want string) {
	t.Helper()
	select {
	case got := <-b.started:
		if got != want {
			t.Fatalf("search started for %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("search for %q never started", want)
	}
}

func TestDebounceIssuesOnlyLastQuery(t *testing.T) {
	b := newFakeBackend()
	b.results["hemo"] = []string{"4HHB"}
	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(30*time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("he")
	c.Input("hem")
	c.Input("hemo")

	got := v.waitFor(t, func(view View) bool { return !view.Searching && len(view.Results) > 0 })
	if got.Results[0].ID != "4HHB" || got.Results[0].Title != "Title of 4HHB" {
		t.Errorf("results = %+v", got.Results)
	}
	if q := b.Queries(); len(q) != 1 || q[0] != "hemo" {
		t.Errorf("queries = %v, want only [hemo]", q)
	}
}

func TestShortQueryClearsWithoutNetwork(t *testing.T) {
	b := newFakeBackend()
	b.results["hem"] = []string{"4HHB"}
	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(5*time.Millisecond), WithMinQueryLength(3), WithOnChange(v.record))
	defer c.Stop()

	c.Input("hem")
	v.waitFor(t, func(view View) bool { return len(view.Results) == 1 })

	c.Input("he")
	got := v.waitFor(t, func(view View) bool { return view.Query == "he" })
	if len(got.Results) != 0 || got.Open {
		t.Errorf("short query view = %+v, want cleared and closed", got)
	}

	time.Sleep(30 * time.Millisecond)
	if q := b.Queries(); len(q) != 1 {
		t.Errorf("queries = %v, want only the first search", q)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	b := newFakeBackend()
	b.results["hem"] = []string{"1HEM"}
	b.results["hemoglobin"] = []string{"4HHB", "2HHB"}
	releaseHem := b.hold("hem")
	releaseFull := b.hold("hemoglobin")

	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("hem")
	waitStarted(t, b, "hem")
	c.Input("hemoglobin")
	waitStarted(t, b, "hemoglobin")

	close(releaseFull)
	v.waitFor(t, func(view View) bool { return len(view.Results) == 2 })

	close(releaseHem)
	time.Sleep(30 * time.Millisecond)

	got := c.View()
	if len(got.Results) != 2 || got.Results[0].ID != "4HHB" {
		t.Errorf("results = %+v, want the hemoglobin results kept", got.Results)
	}
	if got.Query != "hemoglobin" {
		t.Errorf("query = %q, want hemoglobin", got.Query)
	}
}

func TestCloseDoesNotAbortInFlightSearch(t *testing.T) {
	b := newFakeBackend()
	b.results["lysozyme"] = []string{"1LYZ"}
	release := b.hold("lysozyme")

	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("lysozyme")
	waitStarted(t, b, "lysozyme")
	c.Close()
	if c.View().Open {
		t.Fatal("dropdown should be closed")
	}

	close(release)
	time.Sleep(30 * time.Millisecond)

	got := c.View()
	if got.Open || len(got.Results) != 0 {
		t.Errorf("closed dropdown was repopulated: %+v", got)
	}
	if q := b.Queries(); len(q) != 1 {
		t.Errorf("queries = %v, want the in-flight search to have completed once", q)
	}
}

func TestSearchFailureShowsEmptyResults(t *testing.T) {
	b := newFakeBackend()
	b.err = errors.New("service unavailable")
	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("kinase")
	got := v.waitFor(t, func(view View) bool { return view.Open && !view.Searching })
	if len(got.Results) != 0 {
		t.Errorf("results = %+v, want none", got.Results)
	}
}

func TestUnknownTitleFallback(t *testing.T) {
	b := newFakeBackend()
	b.results["odd"] = []string{"NOTITLE", "1ABC"}
	v := newViews()
	c := New(b, &fakeLoader{}, WithDebounce(time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("odd")
	got := v.waitFor(t, func(view View) bool { return len(view.Results) == 2 })
	if got.Results[0].Title != "Unknown structure" {
		t.Errorf("title = %q, want fallback", got.Results[0].Title)
	}
	if got.Results[1].ID != "1ABC" {
		t.Errorf("result order changed: %+v", got.Results)
	}
}

func TestSelectLoadsOnceAndClears(t *testing.T) {
	b := newFakeBackend()
	b.results["crambin"] = []string{"1CRN"}
	loader := &fakeLoader{}
	v := newViews()
	c := New(b, loader, WithDebounce(time.Millisecond), WithOnChange(v.record))
	defer c.Stop()

	c.Input("crambin")
	v.waitFor(t, func(view View) bool { return len(view.Results) == 1 })

	if err := c.Select(context.Background(), "1CRN"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := c.View()
	if got.Open || len(got.Results) != 0 {
		t.Errorf("view after select = %+v, want cleared", got)
	}
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if len(loader.ids) != 1 || loader.ids[0] != "1CRN" {
		t.Errorf("LoadByID calls = %v, want exactly [1CRN]", loader.ids)
	}
}

func TestQueryResolvesTitlesInOrder(t *testing.T) {
	b := newFakeBackend()
	b.results["kinase"] = []string{"1ABC", "NOTITLE", "2XYZ"}

	got, err := Query(t.Context(), b, "kinase")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []Result{
		{ID: "1ABC", Title: "Title of 1ABC"},
		{ID: "NOTITLE", Title: unknownTitle},
		{ID: "2XYZ", Title: "Title of 2XYZ"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
