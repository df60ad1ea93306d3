// Package render wraps a stateful, externally owned 3D rendering surface
// behind a lifecycle adapter. Only the adapter calls the surface's mutation
// methods.
package render

import (
	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/pdb"
)

// Atom is one entry of a surface's atom enumeration.
type Atom = pdb.Atom

// Model is a structure loaded into a surface.
type Model interface {
	// Atoms returns the flat atom enumeration in the surface's own order.
	Atoms() []Atom
}

// Surface is the rendering collaborator. Implementations are not required to
// be safe for concurrent use; the Adapter serializes every call.
type Surface interface {
	AddModel(data, format string) (Model, error)
	RemoveModel(m Model)
	// ClearStyles resets every atom to the empty style.
	ClearStyles()
	SetStyle(sel chainstyle.Selector, style chainstyle.Style) error
	Resize()
	ZoomTo()
	Render()
	// Clear drops all models and styles.
	Clear()
}
