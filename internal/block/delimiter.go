package block

import (
	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
)

type delimiter struct{}

func (delimiter) Type() Type { return Delimiter }

func (delimiter) Triggers() []Trigger {
	return []Trigger{{Text: "---", OnEnter: true}, {Text: "***", OnEnter: true}, {Text: "___", OnEnter: true}}
}

func (delimiter) DisabledButtons() []string {
	out := append([]string(nil), InlineActions...)
	out = append(out, headingButtons...)
	return append(out, listButtons...)
}

func (delimiter) Transform(el *html.Node) *html.Node {
	reset(el, Delimiter, false)
	el.AppendChild(dom.Element("hr"))
	return nil
}

func (delimiter) Lines(*html.Node) []*html.Node { return nil }

func (d delimiter) Render(*Block) *html.Node {
	el := wrapper(Delimiter, false)
	d.Transform(el)
	return el
}

func (d delimiter) Read(*html.Node) *Block {
	b := &Block{Type: Delimiter}
	b.HTML = d.HTML(b)
	return b
}

func (delimiter) Markdown(*Block) string { return "---" }
func (delimiter) HTML(*Block) string     { return "<hr>" }
