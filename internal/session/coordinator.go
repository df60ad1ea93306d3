// Package session owns the current structure session. It sequences loads,
// drives the render surface and publishes the resulting State.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/normalize"
	"github.com/ziadkadry99/molscope/internal/rcsb"
	"github.com/ziadkadry99/molscope/internal/render"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load was started before it finished.
var ErrSuperseded = errors.New("session: load superseded by a newer request")

// DataSource provides the three fetches behind a load by ID.
type DataSource interface {
	FetchEntry(ctx context.Context, id string) (*rcsb.Entry, error)
	FetchSequence(ctx context.Context, id string) *rcsb.SequenceRecord
	FetchStructure(ctx context.Context, id string) (string, error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStyle sets the initial style.
func WithStyle(k chainstyle.Kind) Option {
	return func(c *Coordinator) { c.state.Style = k }
}

// WithFormat sets the model format handed to the surface. Defaults to "pdb".
func WithFormat(format string) Option {
	return func(c *Coordinator) { c.format = format }
}

// WithLogger sets the coordinator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator is the single writer of the session State.
//
// Every load takes a new generation. A load only installs its model and
// publishes when its generation is still the latest; otherwise it returns
// ErrSuperseded and leaves the surface untouched.
type Coordinator struct {
	source     DataSource
	normalizer normalize.Normalizer
	adapter    *render.Adapter
	format     string
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	gen     uint64
	state   State
	table   chainstyle.Table
	subs    map[int]func(State)
	nextSub int
	closed  bool

	pending  []State
	draining bool
}

// New creates a Coordinator in the Idle phase. The adapter should already
// have a surface attached.
func New(source DataSource, normalizer normalize.Normalizer, adapter *render.Adapter, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:     source,
		normalizer: normalizer,
		adapter:    adapter,
		format:     "pdb",
		now:        time.Now,
		subs:       make(map[int]func(State)),
		state:      State{Style: chainstyle.KindStick, Phase: Idle},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.normalizer == nil {
		c.normalizer = normalize.Passthrough
	}
	c.state.UpdatedAt = c.now()
	return c
}

// State returns the current published state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Chains returns the color table of the last style application.
func (c *Coordinator) Chains() chainstyle.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}

// Subscribe registers fn to receive every published State in publish order.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// staged is a load result assembled off to the side before installation.
type staged struct {
	id       string
	title    string
	raw      string
	info     *rcsb.Entry
	sequence *rcsb.SequenceRecord
}

// LoadFromText renders pasted structure text. Blank input is ignored.
func (c *Coordinator) LoadFromText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	gen, err := c.begin("text")
	if err != nil {
		return err
	}
	return c.install(ctx, gen, staged{raw: text})
}

// LoadByID fetches entry metadata, sequence and structure text concurrently
// and renders the structure. Only a failed structure fetch fails the load;
// missing metadata or sequence leave those fields empty.
func (c *Coordinator) LoadByID(ctx context.Context, id string) error {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil
	}
	gen, err := c.begin(id)
	if err != nil {
		return err
	}

	var (
		entry    *rcsb.Entry
		sequence *rcsb.SequenceRecord
		raw      string
		g        errgroup.Group
	)
	g.Go(func() error {
		e, err := c.source.FetchEntry(ctx, id)
		if err != nil {
			c.logger.Warn("entry metadata unavailable", zap.String("id", id), zap.Error(err))
			return nil
		}
		entry = e
		return nil
	})
	g.Go(func() error {
		sequence = c.source.FetchSequence(ctx, id)
		return nil
	})
	g.Go(func() error {
		text, err := c.source.FetchStructure(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching structure %s: %w", id, err)
		}
		raw = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return c.fail(gen, err)
	}

	return c.install(ctx, gen, staged{
		id:       id,
		title:    entry.Title(),
		raw:      raw,
		info:     entry,
		sequence: sequence,
	})
}

// begin takes a new generation and publishes the Loading phase. The previous
// structure stays on screen and in State until the new one is installed.
func (c *Coordinator) begin(what string) (uint64, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, &render.DisposedSurfaceError{Op: "load"}
	}
	c.gen++
	gen := c.gen
	c.state.Phase = Loading
	c.state.Error = ""
	c.state.UpdatedAt = c.now()
	next := c.state.clone()
	c.publishLocked(next)
	c.logger.Debug("load started", zap.String("source", what), zap.Uint64("generation", gen))
	return gen, nil
}

// install normalizes the staged text and swaps it onto the surface together
// with the current style, then publishes Ready.
func (c *Coordinator) install(ctx context.Context, gen uint64, s staged) error {
	if !c.current(gen) {
		return ErrSuperseded
	}

	normalized, err := c.normalizer.Normalize(ctx, s.raw)
	if err != nil {
		return c.fail(gen, fmt.Errorf("normalizing structure: %w", err))
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded load", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	table, err := c.adapter.Install(normalized, c.format, c.state.Style)
	if err != nil {
		c.mu.Unlock()
		return c.fail(gen, fmt.Errorf("rendering structure: %w", err))
	}
	c.table = table
	c.state = State{
		StructureID:  s.id,
		Title:        s.title,
		RawText:      s.raw,
		RenderedText: normalized,
		Info:         s.info,
		Sequence:     s.sequence,
		Style:        c.state.Style,
		Phase:        Ready,
		Chains:       table.Assignments(),
		Generation:   gen,
		UpdatedAt:    c.now(),
	}
	next := c.state.clone()
	c.publishLocked(next)

	c.logger.Info("structure loaded",
		zap.String("id", s.id),
		zap.Int("chains", table.Len()),
		zap.Uint64("generation", gen))
	return nil
}

// fail publishes the Error phase for gen, keeping the last good structure.
func (c *Coordinator) fail(gen uint64, err error) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state.Phase = Error
	c.state.Error = err.Error()
	c.state.Generation = gen
	c.state.UpdatedAt = c.now()
	next := c.state.clone()
	c.publishLocked(next)
	c.logger.Warn("load failed", zap.Uint64("generation", gen), zap.Error(err))
	return err
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// SetStyle restyles the live model without refetching. With no model loaded
// the kind is only remembered for the next load. A rejected style leaves both
// the surface and State on the previous kind.
func (c *Coordinator) SetStyle(kind chainstyle.Kind) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &render.DisposedSurfaceError{Op: "set style"}
	}
	table, err := c.adapter.ApplyStyle(kind)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("applying %s style: %w", kind, err)
	}
	c.state.Style = kind
	if table.Len() > 0 {
		c.table = table
		c.state.Chains = table.Assignments()
	}
	c.state.UpdatedAt = c.now()
	next := c.state.clone()
	c.publishLocked(next)
	return nil
}

// Resize forwards a container resize to the surface.
func (c *Coordinator) Resize() error {
	return c.adapter.NotifyResize()
}

// OrientationChanged forwards a device orientation change to the surface.
func (c *Coordinator) OrientationChanged() error {
	return c.adapter.NotifyOrientationChange()
}

// Teardown drops all subscribers, discards in-flight loads and disposes the
// surface. It is safe to call more than once.
func (c *Coordinator) Teardown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	c.subs = make(map[int]func(State))
	c.mu.Unlock()

	if err := c.adapter.Dispose(); err != nil && !render.IsDisposed(err) {
		return fmt.Errorf("disposing surface: %w", err)
	}
	c.logger.Debug("session torn down")
	return nil
}

// publishLocked queues next for the subscribers. It must be called with c.mu
// held and returns with c.mu released. Whichever caller finds the queue idle
// drains it, so deliveries keep publish order and run without c.mu held.
func (c *Coordinator) publishLocked(next State) {
	c.pending = append(c.pending, next)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		subs := make([]func(State), 0, len(c.subs))
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, st := range batch {
			for _, fn := range subs {
				fn(st)
			}
		}
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}
