// Package markup renders assistant chat replies to HTML using a restricted
// markdown subset: paragraphs, bold, italic, inline code, code blocks and
// ordered or unordered lists. Raw HTML, links, images, headings and quotes are
// not recognized, so every angle bracket in the input reaches the output
// escaped.
package markup

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Renderer converts chat text to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer. Fenced code blocks are highlighted with the given
// chroma style; an empty style uses "github".
func New(style string) *Renderer {
	if style == "" {
		style = "github"
	}
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewCodeBlockParser(), 500),
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
	)
	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	return &Renderer{md: md}
}

// Render converts text to an HTML fragment.
func (r *Renderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markup: %w", err)
	}
	return buf.String(), nil
}
