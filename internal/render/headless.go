package render

import (
	"fmt"
	"sync"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/pdb"
)

// HeadlessSurface is an in-process Surface. It parses coordinate records to
// provide the atom enumeration and keeps the applied styles so they can be
// mirrored to a remote viewer.
type HeadlessSurface struct {
	mu      sync.Mutex
	models  []*headlessModel
	styles  []chainstyle.Rule
	nextID  int
	resizes int
	renders int
	zooms   int
}

type headlessModel struct {
	id     int
	format string
	data   string
	atoms  []Atom
}

func (m *headlessModel) Atoms() []Atom {
	out := make([]Atom, len(m.atoms))
	copy(out, m.atoms)
	return out
}

// NewHeadlessSurface returns an empty surface.
func NewHeadlessSurface() *HeadlessSurface {
	return &HeadlessSurface{}
}

func (s *HeadlessSurface) AddModel(data, format string) (Model, error) {
	if format != "pdb" {
		return nil, fmt.Errorf("headless surface: unsupported format %q", format)
	}
	parsed, err := pdb.Parse(data, false)
	if err != nil {
		return nil, fmt.Errorf("headless surface: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := &headlessModel{id: s.nextID, format: format, data: data, atoms: parsed.Atoms}
	s.models = append(s.models, m)
	return m, nil
}

func (s *HeadlessSurface) RemoveModel(m Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.models {
		if Model(existing) == m {
			s.models = append(s.models[:i], s.models[i+1:]...)
			return
		}
	}
}

func (s *HeadlessSurface) ClearStyles() {
	s.mu.Lock()
	s.styles = nil
	s.mu.Unlock()
}

func (s *HeadlessSurface) SetStyle(sel chainstyle.Selector, style chainstyle.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles = append(s.styles, chainstyle.Rule{Selector: sel, Style: style})
	return nil
}

func (s *HeadlessSurface) Resize() {
	s.mu.Lock()
	s.resizes++
	s.mu.Unlock()
}

func (s *HeadlessSurface) ZoomTo() {
	s.mu.Lock()
	s.zooms++
	s.mu.Unlock()
}

func (s *HeadlessSurface) Render() {
	s.mu.Lock()
	s.renders++
	s.mu.Unlock()
}

func (s *HeadlessSurface) Clear() {
	s.mu.Lock()
	s.models = nil
	s.styles = nil
	s.mu.Unlock()
}

// Snapshot is a copy of the surface's visible configuration.
type Snapshot struct {
	Models  int               `json:"models"`
	Atoms   int               `json:"atoms"`
	Data    string            `json:"-"`
	Styles  []chainstyle.Rule `json:"styles"`
	Resizes int               `json:"resizes"`
	Renders int               `json:"renders"`
	Zooms   int               `json:"zooms"`
}

// Snapshot returns the current models and styles.
func (s *HeadlessSurface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Models:  len(s.models),
		Styles:  append([]chainstyle.Rule(nil), s.styles...),
		Resizes: s.resizes,
		Renders: s.renders,
		Zooms:   s.zooms,
	}
	if len(s.models) > 0 {
		last := s.models[len(s.models)-1]
		snap.Atoms = len(last.atoms)
		snap.Data = last.data
	}
	return snap
}
