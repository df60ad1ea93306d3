package render

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
)

const twoChains = `ATOM      1  N   GLY A   1       0.000   0.000   0.000  1.00  0.00           N
ATOM      2  CA  GLY A   1       1.458   0.000   0.000  1.00  0.00           C
ATOM      3  N   ALA B   1       3.000   0.000   0.000  1.00  0.00           N
`

const oneChain = `ATOM      1  N   GLY C   1       0.000   0.000   0.000  1.00  0.00           N
`

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, *HeadlessSurface, *ManualScheduler) {
	t.Helper()
	frames := &ManualScheduler{}
	opts = append([]Option{WithFrameScheduler(frames)}, opts...)
	a := NewAdapter(opts...)
	surface := NewHeadlessSurface()
	if err := a.Attach(surface); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return a, surface, frames
}

func TestAdapterLifecycle(t *testing.T) {
	a := NewAdapter(WithFrameScheduler(&ManualScheduler{}))
	if a.State() != Uninitialized {
		t.Fatalf("initial state = %v, want uninitialized", a.State())
	}
	if err := a.SwapModel(twoChains, "pdb"); !errors.Is(err, ErrNotAttached) {
		t.Errorf("SwapModel before Attach = %v, want ErrNotAttached", err)
	}

	surface := NewHeadlessSurface()
	if err := a.Attach(surface); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if a.State() != Attached {
		t.Errorf("state = %v, want attached", a.State())
	}

	if err := a.SwapModel(twoChains, "pdb"); err != nil {
		t.Fatalf("SwapModel: %v", err)
	}
	if a.State() != ModelLoaded {
		t.Errorf("state = %v, want model_loaded", a.State())
	}

	if err := a.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if a.State() != Disposed {
		t.Errorf("state = %v, want disposed", a.State())
	}
	if surface.Snapshot().Models != 0 {
		t.Error("Dispose should clear the surface")
	}
}

func TestAdapterDisposedRejectsCalls(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if err := a.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	calls := map[string]error{
		"swap":        a.SwapModel(twoChains, "pdb"),
		"resize":      a.NotifyResize(),
		"orientation": a.NotifyOrientationChange(),
		"observe":     a.Observe(func() {}),
		"attach":      a.Attach(NewHeadlessSurface()),
		"dispose":     a.Dispose(),
	}
	_, styleErr := a.ApplyStyle(chainstyle.KindStick)
	calls["style"] = styleErr

	for name, err := range calls {
		if !IsDisposed(err) {
			t.Errorf("%s after Dispose = %v, want DisposedSurfaceError", name, err)
		}
	}
}

func TestAdapterDisposeReleasesObservers(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	var released int32
	for i := 0; i < 3; i++ {
		if err := a.Observe(func() { atomic.AddInt32(&released, 1) }); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	a.Dispose()
	a.Dispose()
	if n := atomic.LoadInt32(&released); n != 3 {
		t.Errorf("released %d observers, want 3 (each exactly once)", n)
	}
}

func TestAdapterResizeCoalescing(t *testing.T) {
	a, surface, frames := newTestAdapter(t)
	if err := a.SwapModel(twoChains, "pdb"); err != nil {
		t.Fatalf("SwapModel: %v", err)
	}
	before := surface.Snapshot()

	for i := 0; i < 5; i++ {
		if err := a.NotifyResize(); err != nil {
			t.Fatalf("NotifyResize: %v", err)
		}
	}
	if frames.Pending() != 1 {
		t.Fatalf("pending frames = %d, want 1", frames.Pending())
	}
	frames.Flush()

	after := surface.Snapshot()
	if after.Resizes-before.Resizes != 1 {
		t.Errorf("resizes = %d, want 1", after.Resizes-before.Resizes)
	}
	if after.Renders-before.Renders != 1 {
		t.Errorf("renders = %d, want 1", after.Renders-before.Renders)
	}

	// A new notification after the frame schedules a new frame.
	a.NotifyResize()
	if frames.Pending() != 1 {
		t.Errorf("pending frames after flush = %d, want 1", frames.Pending())
	}
}

func TestAdapterFrameAfterDisposeIsNoop(t *testing.T) {
	a, surface, frames := newTestAdapter(t)
	a.NotifyResize()
	a.Dispose()
	frames.Flush()
	if surface.Snapshot().Resizes != 0 {
		t.Error("frame that fires after Dispose must not touch the surface")
	}
}

func TestAdapterSwapFailureKeepsPreviousModel(t *testing.T) {
	a, surface, _ := newTestAdapter(t)
	if _, err := a.Install(twoChains, "pdb", chainstyle.KindStick); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := a.SwapModel("garbage", "pdb"); err == nil {
		t.Fatal("expected swap of unparseable data to fail")
	}
	snap := surface.Snapshot()
	if snap.Models != 1 || snap.Atoms != 3 {
		t.Errorf("surface = %d models / %d atoms, want previous model kept", snap.Models, snap.Atoms)
	}
	if len(snap.Styles) != 2 {
		t.Errorf("styles = %d, want previous 2 kept", len(snap.Styles))
	}
}

func TestAdapterInstallReplacesModel(t *testing.T) {
	a, surface, _ := newTestAdapter(t)
	if _, err := a.Install(twoChains, "pdb", chainstyle.KindStick); err != nil {
		t.Fatalf("Install: %v", err)
	}
	table, err := a.Install(oneChain, "pdb", chainstyle.KindSphere)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	snap := surface.Snapshot()
	if snap.Models != 1 {
		t.Errorf("models = %d, want 1", snap.Models)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d chains, want 1", table.Len())
	}
	if c, _ := table.Color("C"); c != "red" {
		t.Errorf("chain C color = %q, want red (fresh table per model)", c)
	}
	if len(snap.Styles) != 1 || snap.Styles[0].Style.Kind != chainstyle.KindSphere {
		t.Errorf("styles = %+v", snap.Styles)
	}
}

var errRejected = errors.New("style rejected")

// rejectingSurface fails SetStyle while reject is set.
type rejectingSurface struct {
	*HeadlessSurface
	reject atomic.Bool
}

func (s *rejectingSurface) SetStyle(sel chainstyle.Selector, style chainstyle.Style) error {
	if s.reject.Load() {
		return errRejected
	}
	return s.HeadlessSurface.SetStyle(sel, style)
}

func TestAdapterInstallStyleFailureRestoresPrevious(t *testing.T) {
	a := NewAdapter(WithFrameScheduler(&ManualScheduler{}))
	surface := &rejectingSurface{HeadlessSurface: NewHeadlessSurface()}
	if err := a.Attach(surface); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := a.Install(twoChains, "pdb", chainstyle.KindStick); err != nil {
		t.Fatalf("Install: %v", err)
	}
	before := surface.Snapshot()

	surface.reject.Store(true)
	if _, err := a.Install(oneChain, "pdb", chainstyle.KindSphere); !errors.Is(err, errRejected) {
		t.Fatalf("Install err = %v, want the rejected style", err)
	}

	after := surface.Snapshot()
	if after.Models != 1 || after.Atoms != before.Atoms || after.Data != before.Data {
		t.Errorf("surface = %d models / %d atoms, want the previous model", after.Models, after.Atoms)
	}
	if len(after.Styles) != len(before.Styles) {
		t.Fatalf("styles = %d, want previous %d", len(after.Styles), len(before.Styles))
	}
	for i := range before.Styles {
		if after.Styles[i].Selector != before.Styles[i].Selector || after.Styles[i].Style.Kind != chainstyle.KindStick {
			t.Errorf("style %d = %+v, want %+v", i, after.Styles[i], before.Styles[i])
		}
	}

	surface.reject.Store(false)
	if _, err := a.ApplyStyle(chainstyle.KindLine); err != nil {
		t.Fatalf("ApplyStyle: %v", err)
	}
	if got := surface.Snapshot().Atoms; got != before.Atoms {
		t.Errorf("live model has %d atoms, want the previous %d", got, before.Atoms)
	}
}

func TestAdapterApplyStyleFailureRestoresPrevious(t *testing.T) {
	a := NewAdapter(WithFrameScheduler(&ManualScheduler{}))
	surface := &rejectingSurface{HeadlessSurface: NewHeadlessSurface()}
	a.Attach(surface)
	if _, err := a.Install(twoChains, "pdb", chainstyle.KindCartoon); err != nil {
		t.Fatalf("Install: %v", err)
	}

	surface.reject.Store(true)
	if _, err := a.ApplyStyle(chainstyle.KindSphere); !errors.Is(err, errRejected) {
		t.Fatalf("ApplyStyle err = %v", err)
	}
	styles := surface.Snapshot().Styles
	if len(styles) != 2 || styles[0].Style.Kind != chainstyle.KindCartoon {
		t.Errorf("styles = %+v, want the previous cartoon rules", styles)
	}
}

func TestAdapterApplyStyleWithoutModel(t *testing.T) {
	a, surface, _ := newTestAdapter(t)
	table, err := a.ApplyStyle(chainstyle.KindCartoon)
	if err != nil {
		t.Fatalf("ApplyStyle: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("table has %d chains, want 0", table.Len())
	}
	if surface.Snapshot().Renders != 0 {
		t.Error("ApplyStyle without a model should not render")
	}
}

func TestAdapterApplyStyleIdempotent(t *testing.T) {
	a, surface, _ := newTestAdapter(t)
	a.SwapModel(twoChains, "pdb")

	first, err := a.ApplyStyle(chainstyle.KindLine)
	if err != nil {
		t.Fatalf("ApplyStyle: %v", err)
	}
	styles := surface.Snapshot().Styles
	second, _ := a.ApplyStyle(chainstyle.KindLine)

	if !first.Equal(second) {
		t.Error("repeated ApplyStyle produced different tables")
	}
	again := surface.Snapshot().Styles
	if len(again) != len(styles) {
		t.Fatalf("style count changed from %d to %d", len(styles), len(again))
	}
	for i := range styles {
		if styles[i].Selector != again[i].Selector || styles[i].Style.Color != again[i].Style.Color {
			t.Errorf("rule %d changed: %+v -> %+v", i, styles[i], again[i])
		}
	}
}

func TestAdapterOrientationChange(t *testing.T) {
	collapsed := make(chan struct{}, 1)
	a, surface, frames := newTestAdapter(t,
		WithSettleDelay(5*time.Millisecond),
		WithNarrowViewport(func() bool { return true }, func() { collapsed <- struct{}{} }),
	)

	if err := a.NotifyOrientationChange(); err != nil {
		t.Fatalf("NotifyOrientationChange: %v", err)
	}
	select {
	case <-collapsed:
	case <-time.After(2 * time.Second):
		t.Fatal("side panel was not collapsed after the settle delay")
	}

	deadline := time.Now().Add(2 * time.Second)
	for frames.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	frames.Flush()
	if surface.Snapshot().Resizes != 1 {
		t.Errorf("resizes = %d, want 1", surface.Snapshot().Resizes)
	}
}

func TestAdapterOrientationWideViewport(t *testing.T) {
	var collapsed int32
	a, _, frames := newTestAdapter(t,
		WithSettleDelay(time.Millisecond),
		WithNarrowViewport(func() bool { return false }, func() { atomic.AddInt32(&collapsed, 1) }),
	)
	a.NotifyOrientationChange()

	deadline := time.Now().Add(2 * time.Second)
	for frames.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt32(&collapsed) != 0 {
		t.Error("wide viewport should not collapse the side panel")
	}
}

func TestAdapterDisposeStopsOrientationTimer(t *testing.T) {
	var collapsed int32
	a, _, frames := newTestAdapter(t,
		WithSettleDelay(20*time.Millisecond),
		WithNarrowViewport(func() bool { return true }, func() { atomic.AddInt32(&collapsed, 1) }),
	)
	a.NotifyOrientationChange()
	a.Dispose()

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&collapsed) != 0 {
		t.Error("orientation callback ran after Dispose")
	}
	if frames.Pending() != 0 {
		t.Error("orientation change scheduled a frame after Dispose")
	}
}

func TestAdapterOrientationChangesShareOneTimer(t *testing.T) {
	var collapsed int32
	a, _, frames := newTestAdapter(t,
		WithSettleDelay(20*time.Millisecond),
		WithNarrowViewport(func() bool { return true }, func() { atomic.AddInt32(&collapsed, 1) }),
	)
	for i := 0; i < 5; i++ {
		if err := a.NotifyOrientationChange(); err != nil {
			t.Fatalf("NotifyOrientationChange: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for frames.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&collapsed); got != 1 {
		t.Errorf("collapsed %d times, want 1 for a burst of changes", got)
	}
	if frames.Pending() != 1 {
		t.Errorf("pending frames = %d, want 1", frames.Pending())
	}
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(time.Millisecond)
	defer s.Stop()

	done := make(chan struct{})
	s.RequestFrame(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback never ran")
	}
}
