package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/berkana/internal/block"
)

// Document is a Markdown file split into its YAML header and blocks.
type Document struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Blocks      []*block.Block
}

// ParseDocument extracts frontmatter and parses the body into blocks. The
// title is the frontmatter "title" if present, otherwise the first H1.
func (p *Parser) ParseDocument(data []byte) (*Document, error) {
	fm, body, err := SplitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	blocks := p.ParseMarkdown(body)
	return &Document{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, blocks),
		Blocks:      blocks,
	}, nil
}

// ParseDocument parses data with the built-in block types.
func ParseDocument(data []byte) (*Document, error) { return std.ParseDocument(data) }

// SplitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func SplitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) && !bytes.HasPrefix(trimmed, []byte(delim+"\r\n")) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole input is body, so a leading rule survives
		// as a delimiter block.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// JoinFrontmatter prepends fm as a YAML header to body. A nil or empty map
// returns body unchanged.
func JoinFrontmatter(fm map[string]interface{}, body string) ([]byte, error) {
	if len(fm) == 0 {
		return []byte(body), nil
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func deriveTitle(fm map[string]interface{}, blocks []*block.Block) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	return Title(blocks)
}
