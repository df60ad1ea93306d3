// Package chat answers questions about the loaded structure through a chat
// completion provider.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/molscope/internal/llm"
	"github.com/ziadkadry99/molscope/internal/session"
)

// DefaultMaxTurns is how many previous turns are sent with a new question.
const DefaultMaxTurns = 10

// sequencePreview caps the residues quoted in the system message.
const sequencePreview = 300

// Turn is one message of a chat transcript.
type Turn struct {
	Role    llm.Role  `json:"role"`
	Content string    `json:"content"`
	HTML    string    `json:"html,omitempty"`
	At      time.Time `json:"at"`
}

// SystemPrompt describes the current session for the model.
func SystemPrompt(st session.State) string {
	var b strings.Builder
	b.WriteString("You are a structural biology assistant embedded in a 3D molecule viewer. ")
	b.WriteString("Answer concisely. You may use **bold**, *italic*, `code`, code blocks and lists; do not use HTML, links or headings.\n\n")

	if !st.Loaded() {
		b.WriteString("No structure is currently loaded.")
		return b.String()
	}

	b.WriteString("Current structure:\n")
	if st.StructureID != "" {
		fmt.Fprintf(&b, "- PDB ID: %s\n", st.StructureID)
	} else {
		b.WriteString("- Source: pasted coordinates\n")
	}
	if st.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", st.Title)
	}
	if st.Info != nil {
		if st.Info.Info.ExperimentalMethod != "" {
			fmt.Fprintf(&b, "- Method: %s\n", st.Info.Info.ExperimentalMethod)
		}
		if len(st.Info.Info.Resolution) > 0 {
			fmt.Fprintf(&b, "- Resolution: %.2f Å\n", st.Info.Info.Resolution[0])
		}
		if n, ok := st.Info.EntityCount(); ok {
			fmt.Fprintf(&b, "- Polymer entities: %d\n", n)
		}
		if st.Info.Keywords.Text != "" {
			fmt.Fprintf(&b, "- Keywords: %s\n", st.Info.Keywords.Text)
		}
	}
	if len(st.Chains) > 0 {
		ids := make([]string, len(st.Chains))
		for i, c := range st.Chains {
			ids[i] = c.Chain
		}
		fmt.Fprintf(&b, "- Chains: %s\n", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&b, "- Display style: %s\n", st.Style)
	if seq := st.Sequence; seq != nil && seq.Sequence != "" {
		residues := seq.Sequence
		if len(residues) > sequencePreview {
			residues = residues[:sequencePreview] + "..."
		}
		fmt.Fprintf(&b, "- Entity %d (%s, chains %s, %d residues): %s\n",
			seq.EntityID, seq.Type, strings.Join(seq.Chains, ","), len(seq.Sequence), residues)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildMessages assembles a completion request: one system message from the
// session, at most maxTurns of the most recent history, then the question.
func BuildMessages(st session.State, history []Turn, question string, maxTurns int) []llm.Message {
	if maxTurns < 0 {
		maxTurns = 0
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(st)})
	for _, t := range history {
		if t.Role != llm.RoleUser && t.Role != llm.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
	return msgs
}
