package rcsb

import (
	"fmt"
	"strings"
)

// Entry is the subset of the RCSB core entry document the viewer uses.
type Entry struct {
	ID     string `json:"rcsb_id"`
	Struct struct {
		Title string `json:"title"`
	} `json:"struct"`
	Info struct {
		PolymerEntityCount *int      `json:"polymer_entity_count"`
		DepositedAtomCount int       `json:"deposited_atom_count"`
		MolecularWeight    float64   `json:"molecular_weight"`
		Resolution         []float64 `json:"resolution_combined"`
		ExperimentalMethod string    `json:"experimental_method"`
	} `json:"rcsb_entry_info"`
	Keywords struct {
		Text string `json:"text"`
	} `json:"struct_keywords"`
}

// Title returns the structure title, or an empty string when absent.
func (e *Entry) Title() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Struct.Title)
}

// EntityCount returns the declared polymer entity count.
func (e *Entry) EntityCount() (int, bool) {
	if e == nil || e.Info.PolymerEntityCount == nil || *e.Info.PolymerEntityCount == 0 {
		return 0, false
	}
	return *e.Info.PolymerEntityCount, true
}

// polymerEntity is the wire shape of a polymer entity document.
type polymerEntity struct {
	EntityPoly struct {
		Sequence string `json:"pdbx_seq_one_letter_code"`
		Type     string `json:"type"`
	} `json:"entity_poly"`
	PolymerEntity struct {
		Identifiers *containerIdentifiers `json:"rcsb_polymer_entity_container_identifiers"`
	} `json:"rcsb_polymer_entity"`
	Identifiers *containerIdentifiers `json:"rcsb_polymer_entity_container_identifiers"`
}

type containerIdentifiers struct {
	AuthAsymIDs []string `json:"auth_asym_ids"`
}

func (p *polymerEntity) chains() []string {
	for _, ids := range []*containerIdentifiers{p.PolymerEntity.Identifiers, p.Identifiers} {
		if ids != nil && len(ids.AuthAsymIDs) > 0 {
			return append([]string(nil), ids.AuthAsymIDs...)
		}
	}
	return []string{"A"}
}

// SequenceRecord is the sequence of one polymer entity. An empty Sequence is
// the explicit "no data" sentinel.
type SequenceRecord struct {
	EntityID int      `json:"entity_id"`
	Sequence string   `json:"sequence"`
	Type     string   `json:"type"`
	Chains   []string `json:"chains"`
}

// noSequence is returned when the entry itself cannot be read.
func noSequence() *SequenceRecord {
	return &SequenceRecord{EntityID: 1, Sequence: "", Type: "Unknown"}
}

// SequenceLine is one row of a formatted sequence display.
type SequenceLine struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Lines formats the sequence 50 residues per line in groups of 10.
func (r *SequenceRecord) Lines() []SequenceLine {
	if r == nil {
		return nil
	}
	var lines []SequenceLine
	seq := r.Sequence
	for i := 0; i < len(seq); i += 50 {
		end := i + 50
		if end > len(seq) {
			end = len(seq)
		}
		chunk := seq[i:end]
		var groups []string
		for j := 0; j < len(chunk); j += 10 {
			k := j + 10
			if k > len(chunk) {
				k = len(chunk)
			}
			groups = append(groups, chunk[j:k])
		}
		lines = append(lines, SequenceLine{Start: i + 1, End: end, Text: strings.Join(groups, " ")})
	}
	return lines
}

// NetworkError reports a transport failure or a non-2xx response.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request %s: HTTP status code %d", e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DataShapeError reports a response missing an expected field.
type DataShapeError struct {
	URL   string
	Field string
	Err   error
}

func (e *DataShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("decode %s: missing %s", e.URL, e.Field)
}

func (e *DataShapeError) Unwrap() error { return e.Err }
