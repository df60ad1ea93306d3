// Package chainstyle maps an atom enumeration to a stable per-chain color table
// and turns that table into the selector/style pairs a render surface applies.
package chainstyle

// Palette is the fixed ordered list of chain colors. Chains beyond the tenth
// wrap around to the start.
var Palette = [10]string{
	"red",
	"green",
	"blue",
	"orange",
	"purple",
	"cyan",
	"magenta",
	"yellow",
	"lime",
	"pink",
}

// Atom is the minimal view of an atom needed for chain coloring.
type Atom interface {
	ChainID() string
}

// Assignment is one chain -> color entry.
type Assignment struct {
	Chain string `json:"chain"`
	Color string `json:"color"`
}

// Table is a chain -> color mapping that remembers first-seen order.
type Table struct {
	order []Assignment
	index map[string]int
}

// Assign scans atoms once and gives each newly seen chain the next palette
// color. The result depends only on the order of first occurrence.
func Assign[A Atom](atoms []A) Table {
	t := Table{index: make(map[string]int)}
	for _, a := range atoms {
		chain := a.ChainID()
		if _, ok := t.index[chain]; ok {
			continue
		}
		t.index[chain] = len(t.order)
		t.order = append(t.order, Assignment{
			Chain: chain,
			Color: Palette[len(t.order)%len(Palette)],
		})
	}
	return t
}

// FromAssignments rebuilds a table from published entries. Later duplicates
// of a chain are ignored.
func FromAssignments(entries []Assignment) Table {
	t := Table{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, ok := t.index[e.Chain]; ok {
			continue
		}
		t.index[e.Chain] = len(t.order)
		t.order = append(t.order, e)
	}
	return t
}

// Color returns the color assigned to chain.
func (t Table) Color(chain string) (string, bool) {
	i, ok := t.index[chain]
	if !ok {
		return "", false
	}
	return t.order[i].Color, true
}

// Len returns the number of distinct chains.
func (t Table) Len() int { return len(t.order) }

// Assignments returns the entries in first-seen order.
func (t Table) Assignments() []Assignment {
	out := make([]Assignment, len(t.order))
	copy(out, t.order)
	return out
}

// Equal reports whether two tables hold the same entries in the same order.
func (t Table) Equal(o Table) bool {
	if len(t.order) != len(o.order) {
		return false
	}
	for i := range t.order {
		if t.order[i] != o.order[i] {
			return false
		}
	}
	return true
}
