package session

import (
	"time"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/rcsb"
)

// Phase is the load phase of the session.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is the published session. It is replaced wholesale on every publish
// and must be treated as read-only by subscribers.
type State struct {
	StructureID  string                  `json:"structure_id,omitempty"`
	Title        string                  `json:"title,omitempty"`
	RawText      string                  `json:"raw_text,omitempty"`
	// RenderedText is RawText after normalization, as handed to the surface.
	RenderedText string                  `json:"rendered_text,omitempty"`
	Info         *rcsb.Entry             `json:"info,omitempty"`
	Sequence     *rcsb.SequenceRecord    `json:"sequence,omitempty"`
	Style        chainstyle.Kind         `json:"style"`
	Phase        Phase                   `json:"phase"`
	Error        string                  `json:"error,omitempty"`
	Chains       []chainstyle.Assignment `json:"chains,omitempty"`
	Generation   uint64                  `json:"generation"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Loaded reports whether a structure is on screen.
func (s State) Loaded() bool {
	return s.RenderedText != ""
}

// clone copies the slices so subscribers cannot alias coordinator state.
func (s State) clone() State {
	s.Chains = append([]chainstyle.Assignment(nil), s.Chains...)
	return s
}
