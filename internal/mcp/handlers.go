package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

func (s *Server) handleLoadStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	text := request.GetString("text", "")
	example := strings.TrimSpace(request.GetString("example", ""))

	var err error
	switch {
	case example != "":
		if s.examples == nil {
			return mcp.NewToolResultError("example catalog is not configured"), nil
		}
		err = s.examples.Load(ctx, s.session, example)
	case id != "":
		err = s.session.LoadByID(ctx, id)
	case strings.TrimSpace(text) != "":
		err = s.session.LoadFromText(ctx, text)
	default:
		return mcp.NewToolResultError("one of id, text or example is required"), nil
	}

	if err != nil {
		switch {
		case errors.Is(err, session.ErrSuperseded):
			return mcp.NewToolResultError("load was superseded by a newer request"), nil
		case errors.Is(err, examples.ErrUnknown):
			return mcp.NewToolResultError(fmt.Sprintf("%v. Call list_examples for valid ids.", err)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(formatSession(s.session.State())), nil
}

func (s *Server) handleSearchStructures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	if s.search == nil {
		return mcp.NewToolResultError("search is not configured"), nil
	}
	query = strings.TrimSpace(query)
	if len(query) < s.minQuery {
		return mcp.NewToolResultError(fmt.Sprintf("query must be at least %d characters", s.minQuery)), nil
	}

	results, err := search.Query(ctx, s.search, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No structures found for %q.", query)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d structure(s):\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s: %s\n", r.ID, r.Title)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSetStyle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("style")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: style"), nil
	}
	kind, err := chainstyle.ParseKind(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.session.SetStyle(kind); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("set style failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Style set to %s.", kind)), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatSession(s.session.State())), nil
}

func (s *Server) handleAskAboutStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	if s.chat == nil {
		return mcp.NewToolResultError("chat is not configured"), nil
	}

	reply, err := s.chat.Ask(ctx, request.GetString("session_id", ""), question)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			return mcp.NewToolResultError("question must not be empty"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n(session_id: %s)", reply.Content, reply.SessionID)), nil
}

func (s *Server) handleListExamples(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := examples.Builtin
	if s.examples != nil {
		var err error
		list, err = s.examples.List()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing examples: %v", err)), nil
		}
	}

	var sb strings.Builder
	for _, ex := range list {
		fmt.Fprintf(&sb, "- %s: %s", ex.ID, ex.Name)
		if ex.Description != "" {
			fmt.Fprintf(&sb, " (%s)", ex.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSession renders the session for agent consumption.
func formatSession(st session.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Phase: %s\n", st.Phase)
	if st.Error != "" {
		fmt.Fprintf(&sb, "Last error: %s\n", st.Error)
	}
	if !st.Loaded() {
		sb.WriteString("No structure is loaded.\n")
		return sb.String()
	}

	if st.StructureID != "" {
		fmt.Fprintf(&sb, "Structure: %s\n", st.StructureID)
	}
	if st.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", st.Title)
	}
	fmt.Fprintf(&sb, "Style: %s\n", st.Style)
	if len(st.Chains) > 0 {
		sb.WriteString("Chains:")
		for _, c := range st.Chains {
			label := c.Chain
			if label == "" {
				label = "(blank)"
			}
			fmt.Fprintf(&sb, " %s=%s", label, c.Color)
		}
		sb.WriteString("\n")
	}
	if lines := st.Sequence.Lines(); len(lines) > 0 {
		fmt.Fprintf(&sb, "\nSequence (entity %d, %s):\n", st.Sequence.EntityID, st.Sequence.Type)
		for _, l := range lines {
			fmt.Fprintf(&sb, "%5d %s %d\n", l.Start, l.Text, l.End)
		}
	}
	return sb.String()
}
