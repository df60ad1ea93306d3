package render

import (
	"sync"
	"time"
)

// FrameScheduler defers work to the next animation frame.
type FrameScheduler interface {
	RequestFrame(fn func())
	Stop()
}

// TickerScheduler runs queued callbacks on a fixed frame interval.
type TickerScheduler struct {
	mu      sync.Mutex
	pending []func()
	stop    chan struct{}
	once    sync.Once
}

// NewTickerScheduler starts a scheduler firing every interval. A non-positive
// interval defaults to ~60 frames per second.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	s := &TickerScheduler{stop: make(chan struct{})}
	go s.loop(interval)
	return s
}

func (s *TickerScheduler) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			for _, fn := range batch {
				fn()
			}
		}
	}
}

func (s *TickerScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *TickerScheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// ManualScheduler only runs callbacks when Flush is called.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *ManualScheduler) RequestFrame(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *ManualScheduler) Stop() {}

// Flush runs every queued callback as one frame and returns how many ran.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of callbacks waiting for the next frame.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
