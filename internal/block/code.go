package block

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
)

const languagePrefix = "language-"

type code struct{}

func (code) Type() Type { return Code }

func (code) Triggers() []Trigger {
	return []Trigger{{Text: "```", OnEnter: true}, {Text: "~~~", OnEnter: true}}
}

func (code) DisabledButtons() []string {
	return append([]string(nil), InlineActions...)
}

func (code) Transform(el *xhtml.Node) *xhtml.Node {
	reset(el, Code, true)
	pre := dom.Element("pre")
	c := dom.Element("code")
	pre.AppendChild(c)
	el.AppendChild(pre)
	return c
}

func (code) element(el *xhtml.Node) *xhtml.Node {
	return dom.QueryOne(el, "pre > code")
}

func (c code) Lines(el *xhtml.Node) []*xhtml.Node {
	if n := c.element(el); n != nil {
		return []*xhtml.Node{n}
	}
	return nil
}

// SetInfo records the fence language on the block.
func (c code) SetInfo(el *xhtml.Node, info string) {
	n := c.element(el)
	if n == nil || info == "" {
		return
	}
	dom.SetAttr(n, "class", languagePrefix+info)
	dom.SetAttr(el, LanguageAttr, info)
}

func (c code) Render(b *Block) *xhtml.Node {
	el := wrapper(Code, true)
	n := c.Transform(el)
	if b.Content != "" {
		n.AppendChild(dom.NewText(b.Content))
	}
	c.SetInfo(el, b.Language)
	return el
}

func (c code) Read(el *xhtml.Node) *Block {
	b := &Block{Type: Code}
	if n := c.element(el); n != nil {
		b.Content = dom.Text(n)
		b.Language = LanguageOf(n)
	}
	if b.Language == "" {
		b.Language = dom.Attr(el, LanguageAttr)
	}
	b.HTML = c.HTML(b)
	return b
}

// LanguageOf extracts X from a class="language-X" attribute.
func LanguageOf(n *xhtml.Node) string {
	for _, cls := range strings.Fields(dom.Attr(n, "class")) {
		if strings.HasPrefix(cls, languagePrefix) {
			return strings.TrimPrefix(cls, languagePrefix)
		}
	}
	return ""
}

func (code) Markdown(b *Block) string {
	fence := "```"
	for strings.Contains(b.Content, fence) {
		fence += "`"
	}
	return fence + b.Language + "\n" + b.Content + "\n" + fence
}

func (code) HTML(b *Block) string {
	open := "<pre><code>"
	if b.Language != "" {
		open = `<pre><code class="` + languagePrefix + html.EscapeString(b.Language) + `">`
	}
	return open + html.EscapeString(b.Content) + "</code></pre>"
}

// HandleKeyPress inserts a literal tab.
func (code) HandleKeyPress(s Surface, ev *KeyEvent, _ string) bool {
	if ev.Key != KeyTab || ev.Shift {
		return false
	}
	ev.PreventDefault()
	insertAtCursor(s, "\t")
	return true
}

// HandleEnterKey inserts a newline; Ctrl/Meta+Enter leaves the block.
func (code) HandleEnterKey(s Surface, ev *KeyEvent) bool {
	ev.PreventDefault()
	el := s.CurrentBlock()
	if ev.Command() {
		next := s.InsertBlockAfter(el, &Block{Type: Paragraph})
		s.RequestFrame(func() { s.FocusStart(next) })
		return true
	}
	insertAtCursor(s, "\n")
	s.Changed(el)
	return true
}

func insertAtCursor(s Surface, text string) {
	sel := s.Selection()
	if !sel.Valid() {
		return
	}
	s.SetCursor(dom.InsertText(sel.Start, text))
}
