// Package pdb reads and writes the fixed-column ATOM/HETATM records of the
// PDB coordinate format.
package pdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Atom represents a single atom in the structure.
// It contains the columns of an ATOM or HETATM record.
type Atom struct {
	Serial        int
	Name          string
	AltLoc        string
	Residue       string
	Chain         string
	ResidueNumber int
	InsCode       string
	X             float64
	Y             float64
	Z             float64
	Occupancy     float64
	BFactor       float64
	Element       string
	Het           bool
	Model         int
}

// ChainID returns the chain identifier, satisfying chainstyle.Atom.
func (a Atom) ChainID() string { return a.Chain }

// ParseAtomLine parses a single ATOM or HETATM record. Lines shorter than the
// coordinate columns are rejected.
func ParseAtomLine(line string) (Atom, error) {
	var atom Atom
	if len(line) < 54 {
		return atom, fmt.Errorf("record too short (%d columns)", len(line))
	}

	// https://www.wwpdb.org/documentation/file-format-content/format33/sect9.html#ATOM
	var err error
	atom.Het = strings.HasPrefix(line, "HETATM")
	if atom.Serial, err = strconv.Atoi(strings.TrimSpace(line[6:11])); err != nil {
		return atom, fmt.Errorf("serial: %w", err)
	}
	atom.Name = strings.TrimSpace(line[12:16])
	atom.AltLoc = strings.TrimSpace(line[16:17])
	atom.Residue = strings.TrimSpace(line[17:20])
	atom.Chain = strings.TrimSpace(line[21:22])
	if atom.ResidueNumber, err = strconv.Atoi(strings.TrimSpace(line[22:26])); err != nil {
		return atom, fmt.Errorf("residue number: %w", err)
	}
	atom.InsCode = strings.TrimSpace(line[26:27])
	if atom.X, err = strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64); err != nil {
		return atom, fmt.Errorf("x: %w", err)
	}
	if atom.Y, err = strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64); err != nil {
		return atom, fmt.Errorf("y: %w", err)
	}
	if atom.Z, err = strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64); err != nil {
		return atom, fmt.Errorf("z: %w", err)
	}

	atom.Occupancy = 1.0
	if len(line) >= 60 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[54:60]), 64); err == nil {
			atom.Occupancy = v
		}
	}
	if len(line) >= 66 {
		atom.BFactor, _ = strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64)
	}
	if len(line) >= 78 {
		atom.Element = strings.TrimSpace(line[76:78])
	}
	if atom.Element == "" {
		atom.Element = InferElement(atom.Name)
	}

	return atom, nil
}

// InferElement guesses the element symbol from an atom name when the element
// columns are blank.
func InferElement(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "X"
	}
	switch name {
	case "CA", "CB", "CG", "CD", "CE", "CZ":
		return "C"
	case "N", "NZ", "NH1", "NH2":
		return "N"
	case "O", "OG", "OD1", "OD2", "OE1", "OE2":
		return "O"
	case "SD", "SG":
		return "S"
	}
	switch name[0] {
	case 'H', 'C', 'N', 'O', 'S', 'P', 'F', 'K', 'B':
		return name[:1]
	}
	return "X"
}

// FormatAtom writes the atom back as a fixed-column record.
func FormatAtom(a Atom) string {
	record := "ATOM"
	if a.Het {
		record = "HETATM"
	}
	altLoc := pad1(a.AltLoc)
	insCode := pad1(a.InsCode)
	chain := pad1(a.Chain)
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, a.Serial, a.Name, altLoc, a.Residue, chain, a.ResidueNumber, insCode,
		a.X, a.Y, a.Z, a.Occupancy, a.BFactor, a.Element)
}

// FormatTer writes the chain terminator that follows atom a.
func FormatTer(a Atom) string {
	return fmt.Sprintf("TER   %5d      %3s %1s%4d%1s",
		a.Serial+1, a.Residue, pad1(a.Chain), a.ResidueNumber, pad1(a.InsCode))
}

func pad1(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}
