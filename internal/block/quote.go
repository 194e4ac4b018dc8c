package block

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

type quote struct{}

func (quote) Type() Type                { return Quote }
func (quote) Triggers() []Trigger       { return []Trigger{{Text: "> "}} }
func (quote) DisabledButtons() []string { return listButtons }

func (quote) Transform(el *html.Node) *html.Node {
	reset(el, Quote, true)
	bq := dom.Element("blockquote")
	el.AppendChild(bq)
	return bq
}

func (quote) Lines(el *html.Node) []*html.Node {
	if bq := dom.QueryOne(el, "blockquote"); bq != nil {
		return []*html.Node{bq}
	}
	return nil
}

func (q quote) Render(b *Block) *html.Node {
	el := wrapper(Quote, true)
	fill(q.Transform(el), b.Content)
	return el
}

func (q quote) Read(el *html.Node) *Block {
	b := &Block{Type: Quote}
	if lines := q.Lines(el); len(lines) > 0 {
		b.Content = inline.FromNode(lines[0])
	}
	b.HTML = q.HTML(b)
	return b
}

func (quote) Markdown(b *Block) string {
	lines := strings.Split(b.Content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}

func (quote) HTML(b *Block) string {
	return "<blockquote>" + inline.ToHTML(b.Content) + "</blockquote>"
}
