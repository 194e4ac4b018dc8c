package block

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

// heading places contenteditable on the inner hN element and keeps the
// wrapper non-editable so the .block element stays stable for selection
// handling.
type heading struct {
	level int
}

func (h heading) Type() Type { return HeadingType(h.level) }

func (h heading) tag() string { return "h" + strconv.Itoa(h.level) }

func (h heading) Triggers() []Trigger {
	return []Trigger{{Text: strings.Repeat("#", h.level) + " "}}
}

func (heading) DisabledButtons() []string {
	out := append([]string(nil), InlineActions...)
	return append(out, listButtons...)
}

func (h heading) Transform(el *html.Node) *html.Node {
	reset(el, h.Type(), false)
	inner := dom.Element(h.tag(), EditableAttr, "true")
	el.AppendChild(inner)
	return inner
}

func (h heading) Lines(el *html.Node) []*html.Node {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c, headingButtons...) {
			return []*html.Node{c}
		}
	}
	return nil
}

func (h heading) Render(b *Block) *html.Node {
	el := wrapper(h.Type(), false)
	inner := h.Transform(el)
	fill(inner, b.Content)
	return el
}

func (h heading) Read(el *html.Node) *Block {
	b := &Block{Type: h.Type(), Level: h.level}
	if lines := h.Lines(el); len(lines) > 0 {
		b.Content = inline.FromNode(lines[0])
	}
	b.HTML = h.HTML(b)
	return b
}

func (h heading) Markdown(b *Block) string {
	return strings.Repeat("#", h.level) + " " + strings.ReplaceAll(b.Content, "\n", " ")
}

func (h heading) HTML(b *Block) string {
	return "<" + h.tag() + ">" + inline.ToHTML(b.Content) + "</" + h.tag() + ">"
}

// HandleEnterKey moves the text after the cursor into a new paragraph.
func (h heading) HandleEnterKey(s Surface, ev *KeyEvent) bool {
	el := s.CurrentBlock()
	lines := h.Lines(el)
	if len(lines) == 0 {
		return false
	}
	off, ok := cursorOffset(s, lines[0])
	if !ok {
		return false
	}
	ev.PreventDefault()
	tail := SplitLine(lines[0], off)
	next := s.InsertBlockAfter(el, &Block{Type: Paragraph})
	dom.Append(next, tail...)
	s.Changed(el)
	s.RequestFrame(func() { s.FocusStart(next) })
	return true
}
