package render

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
)

// State is the adapter lifecycle state.
type State int

const (
	Uninitialized State = iota
	Attached
	ModelLoaded
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Attached:
		return "attached"
	case ModelLoaded:
		return "model_loaded"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// DefaultSettleDelay is how long an orientation change is left to settle
// before the surface is resized.
const DefaultSettleDelay = 300 * time.Millisecond

// Option configures an Adapter.
type Option func(*Adapter)

// WithFrameScheduler sets the scheduler resize work is coalesced onto.
func WithFrameScheduler(f FrameScheduler) Option {
	return func(a *Adapter) { a.frames = f }
}

// WithSettleDelay overrides the orientation-change settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(a *Adapter) { a.settle = d }
}

// WithNarrowViewport installs the check that decides whether an orientation
// change collapses the side panel, and the callback that collapses it.
func WithNarrowViewport(isNarrow func() bool, collapse func()) Option {
	return func(a *Adapter) {
		a.isNarrow = isNarrow
		a.collapse = collapse
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter owns a Surface and drives it through
// Uninitialized -> Attached -> ModelLoaded -> Disposed.
type Adapter struct {
	mu       sync.Mutex
	surface  Surface
	format   string
	state    State
	model    Model
	frames   FrameScheduler
	settle   time.Duration
	isNarrow func() bool
	collapse func()
	logger   *zap.Logger

	// applied is the rule set last painted successfully, restored when a
	// later paint fails part way.
	applied []chainstyle.Rule

	resizePending bool
	settleTimer   *time.Timer
	observers     []func()
}

// NewAdapter creates an unattached adapter.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{settle: DefaultSettleDelay}
	for _, opt := range opts {
		opt(a)
	}
	if a.frames == nil {
		a.frames = NewTickerScheduler(0)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Attach binds the surface. It may only be called once.
func (a *Adapter) Attach(s Surface) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Disposed {
		return &DisposedSurfaceError{Op: "attach"}
	}
	if a.state != Uninitialized {
		return nil
	}
	a.surface = s
	a.state = Attached
	a.logger.Debug("surface attached")
	return nil
}

// Observe registers a release function run exactly once on Dispose. Use it for
// resize observers and other listeners tied to the surface's lifetime.
func (a *Adapter) Observe(release func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Disposed {
		return &DisposedSurfaceError{Op: "observe"}
	}
	a.observers = append(a.observers, release)
	return nil
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// HasModel reports whether a model is currently installed.
func (a *Adapter) HasModel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model != nil
}

// SwapModel replaces the current model. The new model is added before the old
// one is removed, so a failed add leaves the previous model in place.
func (a *Adapter) SwapModel(data, format string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.swapLocked(data, format)
}

// ApplyStyle rescans the live model's atoms, assigns chain colors and applies
// one style rule per chain. Without a model it does nothing.
func (a *Adapter) ApplyStyle(kind chainstyle.Kind) (chainstyle.Table, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.styleLocked(kind)
}

// Install adds the new model and styles it in one step, so resize frames
// never observe an unstyled model. The previous model is only removed once
// styling succeeds; on failure the new model is dropped and the previous
// rules are repainted.
func (a *Adapter) Install(data, format string, kind chainstyle.Kind) (chainstyle.Table, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case Disposed:
		return chainstyle.Table{}, &DisposedSurfaceError{Op: "install"}
	case Uninitialized:
		return chainstyle.Table{}, ErrNotAttached
	}

	next, err := a.surface.AddModel(data, format)
	if err != nil {
		return chainstyle.Table{}, err
	}
	table := chainstyle.Assign(next.Atoms())
	rules := table.Rules(kind)
	if err := a.paintLocked(rules); err != nil {
		a.surface.RemoveModel(next)
		a.restoreLocked()
		return chainstyle.Table{}, err
	}

	if a.model != nil {
		a.surface.RemoveModel(a.model)
	}
	a.model = next
	a.format = format
	a.state = ModelLoaded
	a.applied = rules
	a.surface.ZoomTo()
	a.surface.Render()
	return table, nil
}

func (a *Adapter) swapLocked(data, format string) error {
	switch a.state {
	case Disposed:
		return &DisposedSurfaceError{Op: "swap model"}
	case Uninitialized:
		return ErrNotAttached
	}

	next, err := a.surface.AddModel(data, format)
	if err != nil {
		return err
	}
	if a.model != nil {
		a.surface.RemoveModel(a.model)
	}
	a.model = next
	a.format = format
	a.state = ModelLoaded
	return nil
}

func (a *Adapter) styleLocked(kind chainstyle.Kind) (chainstyle.Table, error) {
	switch a.state {
	case Disposed:
		return chainstyle.Table{}, &DisposedSurfaceError{Op: "apply style"}
	case Uninitialized:
		return chainstyle.Table{}, ErrNotAttached
	}
	if a.model == nil {
		return chainstyle.Table{}, nil
	}

	table := chainstyle.Assign(a.model.Atoms())
	rules := table.Rules(kind)
	if err := a.paintLocked(rules); err != nil {
		a.restoreLocked()
		return chainstyle.Table{}, err
	}
	a.applied = rules
	a.surface.Render()
	return table, nil
}

// paintLocked replaces every style on the surface with rules.
func (a *Adapter) paintLocked(rules []chainstyle.Rule) error {
	a.surface.ClearStyles()
	for _, rule := range rules {
		if err := a.surface.SetStyle(rule.Selector, rule.Style); err != nil {
			return err
		}
	}
	return nil
}

// restoreLocked repaints the last successful rule set after a failed paint.
func (a *Adapter) restoreLocked() {
	if err := a.paintLocked(a.applied); err != nil {
		a.logger.Warn("restoring previous styles", zap.Error(err))
	}
	a.surface.Render()
}

// NotifyResize records a geometry change. Notifications arriving before the
// next frame collapse into a single resize and render.
func (a *Adapter) NotifyResize() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Disposed {
		return &DisposedSurfaceError{Op: "resize"}
	}
	if a.resizePending {
		return nil
	}
	a.resizePending = true
	a.frames.RequestFrame(a.onFrame)
	return nil
}

func (a *Adapter) onFrame() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resizePending = false
	if a.state == Disposed || a.state == Uninitialized {
		return
	}
	a.surface.Resize()
	if a.model != nil {
		a.surface.ZoomTo()
	}
	a.surface.Render()
}

// NotifyOrientationChange waits for the settle delay, collapses the side
// panel on narrow viewports, then schedules a coalesced resize. A change
// arriving while another is still settling restarts the delay.
func (a *Adapter) NotifyOrientationChange() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Disposed {
		return &DisposedSurfaceError{Op: "orientation change"}
	}
	if a.settleTimer != nil {
		a.settleTimer.Stop()
	}
	a.settleTimer = time.AfterFunc(a.settle, func() {
		if a.State() == Disposed {
			return
		}
		if a.isNarrow != nil && a.collapse != nil && a.isNarrow() {
			a.collapse()
		}
		if err := a.NotifyResize(); err != nil {
			a.logger.Debug("orientation resize dropped", zap.Error(err))
		}
	})
	return nil
}

// Dispose releases every observer, stops pending timers and clears the
// surface. Later calls, including a second Dispose, fail with
// DisposedSurfaceError.
func (a *Adapter) Dispose() error {
	a.mu.Lock()
	if a.state == Disposed {
		a.mu.Unlock()
		return &DisposedSurfaceError{Op: "dispose"}
	}
	prev := a.state
	a.state = Disposed
	observers := a.observers
	a.observers = nil
	settle := a.settleTimer
	a.settleTimer = nil
	a.applied = nil
	surface := a.surface
	model := a.model
	a.model = nil
	a.mu.Unlock()

	if settle != nil {
		settle.Stop()
	}
	for _, release := range observers {
		release()
	}
	if prev != Uninitialized && surface != nil {
		if model != nil {
			surface.RemoveModel(model)
		}
		surface.Clear()
	}
	a.frames.Stop()
	a.logger.Debug("surface disposed", zap.Int("observers", len(observers)))
	return nil
}
