// Package normalize turns raw structure text into renderer-ready text.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/molscope/internal/pdb"
)

// Normalizer is the boundary to the structure-normalization step. Any error
// it returns is fatal to the load that invoked it.
type Normalizer interface {
	Normalize(ctx context.Context, raw string) (string, error)
}

// Error is the typed failure returned when input is rejected.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize: %s: %v", e.Reason, e.Err)
	}
	return "normalize: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Func adapts an ordinary function to the Normalizer interface.
type Func func(ctx context.Context, raw string) (string, error)

func (f Func) Normalize(ctx context.Context, raw string) (string, error) { return f(ctx, raw) }

// Passthrough returns the input unchanged apart from rejecting blank text.
var Passthrough = Func(func(_ context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &Error{Reason: "empty input"}
	}
	return raw, nil
})

// PDB re-emits the coordinate records of a PDB text in canonical fixed-column
// form, terminated by a TER record. Non-coordinate records are dropped.
type PDB struct {
	// Strict rejects the whole input on the first malformed coordinate record
	// instead of skipping it.
	Strict bool
}

func (n PDB) Normalize(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", &Error{Reason: "empty input"}
	}

	s, err := pdb.Parse(raw, n.Strict)
	if err != nil {
		return "", &Error{Reason: "parsing coordinates", Err: err}
	}

	var b strings.Builder
	b.Grow(len(s.Atoms) * 81)
	model := 0
	for i, a := range s.Atoms {
		if a.Model != model {
			if model != 0 {
				b.WriteString("ENDMDL\n")
			}
			if a.Model != 0 {
				fmt.Fprintf(&b, "MODEL     %4d\n", a.Model)
			}
			model = a.Model
		}
		b.WriteString(pdb.FormatAtom(a))
		b.WriteByte('\n')
		if i == len(s.Atoms)-1 {
			b.WriteString(pdb.FormatTer(a))
			b.WriteByte('\n')
		}
	}
	if model != 0 {
		b.WriteString("ENDMDL\n")
	}
	b.WriteString("END\n")
	return b.String(), nil
}
