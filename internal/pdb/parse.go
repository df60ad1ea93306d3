package pdb

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoAtoms is returned when the input holds no ATOM or HETATM records.
var ErrNoAtoms = errors.New("atoms not found")

// ParseError reports a malformed coordinate record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Structure is the parsed coordinate content of a PDB text.
type Structure struct {
	Atoms  []Atom
	Models []int
}

// Chains returns the chain identifiers in first-seen order.
func (s *Structure) Chains() []string {
	seen := make(map[string]bool)
	var chains []string
	for _, a := range s.Atoms {
		if !seen[a.Chain] {
			seen[a.Chain] = true
			chains = append(chains, a.Chain)
		}
	}
	return chains
}

// Parse reads ATOM, HETATM, MODEL and ENDMDL records. Other records are
// ignored. Unparseable coordinate records are skipped unless strict is set.
func Parse(raw string, strict bool) (*Structure, error) {
	s := &Structure{}
	model := 0

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "MODEL "):
			if len(line) >= 14 {
				if id, err := strconv.Atoi(strings.TrimSpace(line[10:14])); err == nil {
					model = id
					s.Models = append(s.Models, id)
				}
			}
		case strings.HasPrefix(line, "ENDMDL"):
			model = 0
		case strings.HasPrefix(line, "ATOM  "), strings.HasPrefix(line, "HETATM"):
			atom, err := ParseAtomLine(line)
			if err != nil {
				if strict {
					return nil, &ParseError{Line: lineNo, Err: err}
				}
				continue
			}
			atom.Model = model
			s.Atoms = append(s.Atoms, atom)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	if len(s.Atoms) == 0 {
		return nil, ErrNoAtoms
	}
	return s, nil
}
