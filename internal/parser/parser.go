// Package parser translates between serialized text (Markdown or HTML) and
// the ordered block sequence, and renders blocks to live elements.
package parser

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/inline"
)

// Parser is bound to a block registry so that custom kinds take part in
// rendering and serialization.
type Parser struct {
	reg *block.Registry
}

// New returns a parser backed by reg. A nil registry uses the built-in types.
func New(reg *block.Registry) *Parser {
	if reg == nil {
		reg = block.NewRegistry()
	}
	return &Parser{reg: reg}
}

// Registry returns the registry the parser resolves kinds with.
func (p *Parser) Registry() *block.Registry {
	return p.reg
}

// Markdown serializes blocks separated by blank lines.
func (p *Parser) Markdown(blocks []*block.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, p.reg.Kind(b.Type).Markdown(b))
	}
	return strings.Join(parts, "\n\n")
}

// HTML serializes blocks as a sequence of top-level elements. The markup is
// recomputed from each block's state rather than taken from its HTML field.
func (p *Parser) HTML(blocks []*block.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, p.reg.Kind(b.Type).HTML(b))
	}
	return strings.Join(parts, "\n")
}

// Render builds the live element for b.
func (p *Parser) Render(b *block.Block) *html.Node {
	return p.reg.Kind(b.Type).Render(b)
}

// Read derives the block list from the block wrappers directly under root.
// Non-block children are ignored.
func (p *Parser) Read(root *html.Node) []*block.Block {
	out := make([]*block.Block, 0)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if block.IsBlock(c) {
			out = append(out, p.reg.KindOf(c).Read(c))
		}
	}
	return out
}

// Title returns the plain text of the first level-one heading, or "".
func Title(blocks []*block.Block) string {
	for _, b := range blocks {
		if b.Type == block.H1 {
			return strings.TrimSpace(inline.Plain(b.Content))
		}
	}
	return ""
}

var std = New(nil)

// ParseMarkdown parses text with the built-in block types.
func ParseMarkdown(text string) []*block.Block { return std.ParseMarkdown(text) }

// ParseHTML parses text with the built-in block types.
func ParseHTML(text string) []*block.Block { return std.ParseHTML(text) }

// Markdown serializes blocks with the built-in block types.
func Markdown(blocks []*block.Block) string { return std.Markdown(blocks) }

// HTML serializes blocks with the built-in block types.
func HTML(blocks []*block.Block) string { return std.HTML(blocks) }
