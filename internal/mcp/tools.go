package mcp

import "github.com/mark3labs/mcp-go/mcp"

var loadStructureTool = mcp.NewTool("load_structure",
	mcp.WithDescription("Load a molecular structure into the viewer session, either by PDB ID, from raw PDB text, or from the example catalog. Exactly one argument should be given."),
	mcp.WithString("id",
		mcp.Description("Four-character PDB identifier, e.g. 4HHB"),
	),
	mcp.WithString("text",
		mcp.Description("Raw PDB-format coordinate text"),
	),
	mcp.WithString("example",
		mcp.Description("Example catalog id as returned by list_examples"),
	),
)

var searchStructuresTool = mcp.NewTool("search_structures",
	mcp.WithDescription("Full-text search of the Protein Data Bank. Returns matching PDB IDs with their titles."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search text, at least two characters"),
	),
)

var setStyleTool = mcp.NewTool("set_style",
	mcp.WithDescription("Change the representation of the loaded structure. Chain colors are preserved."),
	mcp.WithString("style",
		mcp.Required(),
		mcp.Description("Representation to apply"),
		mcp.Enum("stick", "line", "cross", "sphere", "cartoon"),
	),
)

var getSessionTool = mcp.NewTool("get_session",
	mcp.WithDescription("Describe the current session: load phase, structure metadata, chain colors, style and sequence."),
)

var askAboutStructureTool = mcp.NewTool("ask_about_structure",
	mcp.WithDescription("Ask the configured chat model a question about the loaded structure."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to ask"),
	),
	mcp.WithString("session_id",
		mcp.Description("Chat session id from a previous answer, to continue that conversation"),
	),
)

var listExamplesTool = mcp.NewTool("list_examples",
	mcp.WithDescription("List the example structures that load_structure accepts through its example argument."),
)
