// Package search implements the debounced structure search behind the
// search dropdown.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/molscope/internal/rcsb"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultMinQueryLength = 2
	unknownTitle          = "Unknown structure"
)

// Backend runs queries and resolves result titles.
type Backend interface {
	Search(ctx context.Context, query string) ([]string, error)
	FetchEntry(ctx context.Context, id string) (*rcsb.Entry, error)
}

// Loader loads a selected structure.
type Loader interface {
	LoadByID(ctx context.Context, id string) error
}

// Result is one dropdown row.
type Result struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// View is the dropdown state handed to the view layer.
type View struct {
	Query     string   `json:"query"`
	Results   []Result `json:"results"`
	Open      bool     `json:"open"`
	Searching bool     `json:"searching"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the keystroke debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithMinQueryLength sets the length below which no search is issued.
func WithMinQueryLength(n int) Option {
	return func(c *Controller) { c.minLen = n }
}

// WithOnChange registers a callback invoked with every new View.
func WithOnChange(fn func(View)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller debounces keystrokes into searches and discards responses that
// belong to anything but the latest issued query.
type Controller struct {
	backend  Backend
	loader   Loader
	debounce time.Duration
	minLen   int
	onChange func(View)
	logger   *zap.Logger

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	view  View
}

// New creates a Controller.
func New(backend Backend, loader Loader, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		loader:   loader,
		debounce: DefaultDebounce,
		minLen:   DefaultMinQueryLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// View returns the current dropdown state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() View {
	v := c.view
	v.Results = append([]Result(nil), c.view.Results...)
	return v
}

// Input handles one keystroke. It resets the debounce timer; queries shorter
// than the minimum clear the results without a network call.
func (c *Controller) Input(query string) {
	query = strings.TrimSpace(query)

	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.view.Query = query
	if len(query) < c.minLen {
		c.view.Results = nil
		c.view.Open = false
		c.view.Searching = false
		v := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(v)
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() { c.run(gen, query) })
	c.mu.Unlock()
}

func (c *Controller) run(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.view.Searching = true
	c.view.Open = true
	v := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(v)

	// Searches are never aborted; a response that is no longer current is
	// dropped when it arrives.
	ctx := context.Background()
	results, err := Query(ctx, c.backend, query)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search response", zap.String("query", query))
		return
	}
	if err != nil {
		c.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		results = nil
	}
	c.view.Results = results
	c.view.Searching = false
	v = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(v)
}

// Query runs one search and resolves a title for every hit. Titles that
// cannot be fetched fall back to a placeholder.
func Query(ctx context.Context, backend Backend, query string) ([]Result, error) {
	ids, err := backend.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(4)
	for i, id := range ids {
		results[i] = Result{ID: id, Title: unknownTitle}
		g.Go(func() error {
			entry, err := backend.FetchEntry(ctx, id)
			if err != nil {
				return nil
			}
			if title := entry.Title(); title != "" {
				results[i].Title = title
			}
			return nil
		})
	}
	g.Wait()
	return results, nil
}

// Select clears the dropdown and loads the chosen structure exactly once.
func (c *Controller) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	c.view.Results = nil
	c.view.Open = false
	c.view.Searching = false
	v := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(v)

	return c.loader.LoadByID(ctx, id)
}

// Close hides the dropdown after an outside click or blur. An in-flight
// search still completes; its response is discarded as stale.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	c.view.Results = nil
	c.view.Open = false
	c.view.Searching = false
	v := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(v)
}

// Stop cancels any pending debounce timer.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) notify(v View) {
	if c.onChange != nil {
		c.onChange(v)
	}
}
