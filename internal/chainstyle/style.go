package chainstyle

import (
	"fmt"
	"strings"
)

// Kind is a rendering representation.
type Kind string

const (
	KindStick   Kind = "stick"
	KindLine    Kind = "line"
	KindCross   Kind = "cross"
	KindSphere  Kind = "sphere"
	KindCartoon Kind = "cartoon"
)

// Kinds lists every supported representation in display order.
var Kinds = []Kind{KindStick, KindLine, KindCross, KindSphere, KindCartoon}

// ParseKind validates a user-supplied style name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown style %q: must be one of stick, line, cross, sphere, cartoon", s)
}

// Selector picks a subset of atoms. An empty Chain with All unset selects
// the atoms whose chain identifier is empty.
type Selector struct {
	All   bool   `json:"all,omitempty"`
	Chain string `json:"chain"`
}

// Style is the descriptor handed to a surface for one selector.
type Style struct {
	Kind    Kind               `json:"kind"`
	Color   string             `json:"color,omitempty"`
	Options map[string]float64 `json:"options,omitempty"`
}

// Rule pairs a selector with the style applied to it.
type Rule struct {
	Selector Selector `json:"selector"`
	Style    Style    `json:"style"`
}

// options returns the per-representation parameters. Unknown kinds render
// as sticks.
func options(k Kind) (Kind, map[string]float64) {
	switch k {
	case KindStick:
		return k, map[string]float64{"radius": 0.15}
	case KindLine:
		return k, nil
	case KindCross:
		return k, map[string]float64{"lineWidth": 2}
	case KindSphere:
		return k, map[string]float64{"radius": 0.8}
	case KindCartoon:
		return k, nil
	default:
		return KindStick, map[string]float64{"radius": 0.15}
	}
}

// Rules expands the table into one rule per chain, in first-seen order.
func (t Table) Rules(k Kind) []Rule {
	kind, opts := options(k)
	rules := make([]Rule, 0, len(t.order))
	for _, a := range t.order {
		var o map[string]float64
		if opts != nil {
			o = make(map[string]float64, len(opts))
			for key, v := range opts {
				o[key] = v
			}
		}
		rules = append(rules, Rule{
			Selector: Selector{Chain: a.Chain},
			Style:    Style{Kind: kind, Color: a.Color, Options: o},
		})
	}
	return rules
}
