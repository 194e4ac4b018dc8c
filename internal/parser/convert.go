package parser

import (
	"fmt"
	"strings"

	"github.com/starford/berkana/internal/block"
)

// Format names a serialization of a block sequence.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name or a common alias such as "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("parser: unknown format %q", s)
}

// Parse reads text in format f.
func (p *Parser) Parse(text string, f Format) ([]*block.Block, error) {
	switch f {
	case FormatMarkdown:
		return p.ParseMarkdown(text), nil
	case FormatHTML:
		return p.ParseHTML(text), nil
	}
	return nil, fmt.Errorf("parser: unknown format %q", f)
}

// Serialize writes blocks in format f.
func (p *Parser) Serialize(blocks []*block.Block, f Format) (string, error) {
	switch f {
	case FormatMarkdown:
		return p.Markdown(blocks), nil
	case FormatHTML:
		return p.HTML(blocks), nil
	}
	return "", fmt.Errorf("parser: unknown format %q", f)
}

// Convert parses text as from and serializes the blocks as to.
func (p *Parser) Convert(text string, from, to Format) (string, []*block.Block, error) {
	blocks, err := p.Parse(text, from)
	if err != nil {
		return "", nil, err
	}
	out, err := p.Serialize(blocks, to)
	if err != nil {
		return "", nil, err
	}
	return out, blocks, nil
}

// Convert converts text with the built-in block types.
func Convert(text string, from, to Format) (string, []*block.Block, error) {
	return std.Convert(text, from, to)
}
