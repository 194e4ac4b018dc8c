package block

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/inline"
)

// paragraph is the default block. The wrapper itself is the editable node.
type paragraph struct{}

func (paragraph) Type() Type                { return Paragraph }
func (paragraph) Triggers() []Trigger       { return nil }
func (paragraph) DisabledButtons() []string { return nil }

func (paragraph) Transform(el *html.Node) *html.Node {
	reset(el, Paragraph, true)
	return el
}

func (paragraph) Lines(el *html.Node) []*html.Node {
	return []*html.Node{el}
}

func (p paragraph) Render(b *Block) *html.Node {
	el := wrapper(Paragraph, true)
	fill(el, b.Content)
	return el
}

func (p paragraph) Read(el *html.Node) *Block {
	b := &Block{Type: Paragraph, Content: inline.FromNode(el)}
	b.HTML = p.HTML(b)
	return b
}

func (paragraph) Markdown(b *Block) string {
	lines := strings.Split(b.Content, "\n")
	for i, l := range lines {
		lines[i] = escapeLeading(l)
	}
	return strings.Join(lines, "\\\n")
}

func (paragraph) HTML(b *Block) string {
	return "<p>" + inline.ToHTML(b.Content) + "</p>"
}
