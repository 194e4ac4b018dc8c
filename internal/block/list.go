package block

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/inline"
)

// list covers unordered, ordered and task lists; typ selects the variant.
type list struct {
	typ Type
}

func (l list) Type() Type { return l.typ }

func (l list) Triggers() []Trigger {
	switch l.typ {
	case OrderedList:
		return []Trigger{{Text: "1. "}, {Text: "1) "}}
	case TaskList:
		return []Trigger{{Text: "- [ ] "}, {Text: "- [x] "}, {Text: "[ ] "}, {Text: "[] "}, {Text: "[x] "}}
	}
	return []Trigger{{Text: "- "}, {Text: "* "}, {Text: "+ "}}
}

func (list) DisabledButtons() []string { return nil }

func (l list) tag() string {
	if l.typ == OrderedList {
		return "ol"
	}
	return "ul"
}

func (l list) newItem(checked bool) *html.Node {
	if l.typ != TaskList {
		return dom.Element("li")
	}
	return dom.Element("li", "class", TaskItemClass, CheckedAttr, strconv.FormatBool(checked))
}

func (l list) Transform(el *html.Node) *html.Node {
	reset(el, l.typ, true)
	container := dom.Element(l.tag())
	if l.typ == TaskList {
		dom.SetAttr(container, "class", "task-list")
	}
	el.AppendChild(container)
	li := l.newItem(false)
	container.AppendChild(li)
	return li
}

func (l list) container(el *html.Node) *html.Node {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c, "ul", "ol") {
			return c
		}
	}
	return nil
}

func (l list) Lines(el *html.Node) []*html.Node {
	c := l.container(el)
	if c == nil {
		return nil
	}
	var out []*html.Node
	for li := c.FirstChild; li != nil; li = li.NextSibling {
		if dom.IsElement(li, "li") {
			out = append(out, li)
		}
	}
	return out
}

// AddLine inserts an empty item after the given one, or at the end.
func (l list) AddLine(el, after *html.Node) *html.Node {
	c := l.container(el)
	if c == nil {
		return l.Transform(el)
	}
	li := l.newItem(false)
	if after != nil && after.Parent == c {
		c.InsertBefore(li, after.NextSibling)
	} else {
		c.AppendChild(li)
	}
	return li
}

func (l list) Render(b *Block) *html.Node {
	el := wrapper(l.typ, true)
	l.Transform(el)
	c := l.container(el)
	dom.RemoveChildren(c)
	for i, item := range l.items(b) {
		li := l.newItem(i < len(b.Checked) && b.Checked[i])
		fill(li, item)
		c.AppendChild(li)
	}
	return el
}

func (l list) items(b *Block) []string {
	if b.Content == "" {
		return []string{""}
	}
	return strings.Split(b.Content, "\n")
}

func (l list) Read(el *html.Node) *Block {
	b := &Block{Type: l.typ}
	var items []string
	for _, li := range l.Lines(el) {
		items = append(items, strings.ReplaceAll(inline.FromNode(li), "\n", " "))
		if l.typ == TaskList {
			b.Checked = append(b.Checked, dom.Attr(li, CheckedAttr) == "true")
		}
	}
	b.Content = strings.Join(items, "\n")
	b.HTML = l.HTML(b)
	return b
}

func (l list) Markdown(b *Block) string {
	items := l.items(b)
	out := make([]string, len(items))
	for i, item := range items {
		switch l.typ {
		case OrderedList:
			out[i] = strconv.Itoa(i+1) + ". " + item
		case TaskList:
			box := "[ ]"
			if i < len(b.Checked) && b.Checked[i] {
				box = "[x]"
			}
			out[i] = "- " + box + " " + item
		default:
			out[i] = "- " + item
		}
	}
	return strings.Join(out, "\n")
}

func (l list) HTML(b *Block) string {
	var sb strings.Builder
	if l.typ == TaskList {
		sb.WriteString(`<ul class="task-list">`)
	} else {
		sb.WriteString("<" + l.tag() + ">")
	}
	for i, item := range l.items(b) {
		if l.typ == TaskList {
			checked := i < len(b.Checked) && b.Checked[i]
			sb.WriteString(`<li class="task-item"><input type="checkbox" disabled`)
			if checked {
				sb.WriteString(" checked")
			}
			sb.WriteString(">")
		} else {
			sb.WriteString("<li>")
		}
		sb.WriteString(inline.ToHTML(item))
		sb.WriteString("</li>")
	}
	sb.WriteString("</" + l.tag() + ">")
	return sb.String()
}

// HandleEnterKey creates a sibling item, or leaves the list when Enter is
// pressed on an empty item.
func (l list) HandleEnterKey(s Surface, ev *KeyEvent) bool {
	el := s.CurrentBlock()
	lines := l.Lines(el)
	li, idx := lineAt(s, lines)
	if li == nil {
		return false
	}
	ev.PreventDefault()
	if dom.IsBlank(li) {
		l.exit(s, el, li, lines[idx+1:])
		return true
	}
	off, ok := cursorOffset(s, li)
	if !ok {
		off = dom.TextLen(li)
	}
	tail := SplitLine(li, off)
	next := l.AddLine(el, li)
	dom.Append(next, tail...)
	s.SetCursor(dom.Position{Node: next})
	s.Changed(el)
	return true
}

// exit removes the empty item li and continues with a paragraph after the
// list. Items after li move into a new list of the same type.
func (l list) exit(s Surface, el, li *html.Node, rest []*html.Node) {
	dom.Detach(li)
	if len(l.Lines(el)) == 0 && len(rest) == 0 {
		paragraph{}.Transform(el)
		s.Changed(el)
		s.FocusStart(el)
		return
	}
	next := s.InsertBlockAfter(el, &Block{Type: Paragraph})
	if len(rest) > 0 {
		tail := s.InsertBlockAfter(next, &Block{Type: l.typ})
		c := l.container(tail)
		dom.RemoveChildren(c)
		dom.Append(c, rest...)
	}
	if len(l.Lines(el)) == 0 {
		s.RemoveBlock(el)
	}
	s.Changed(next)
	s.RequestFrame(func() { s.FocusStart(next) })
}

// HandleBackspaceKey merges an item into its predecessor when the cursor
// sits at the start of it, and turns a single-item list back into a
// paragraph.
func (l list) HandleBackspaceKey(s Surface, ev *KeyEvent) bool {
	el := s.CurrentBlock()
	lines := l.Lines(el)
	li, idx := lineAt(s, lines)
	if li == nil {
		return false
	}
	off, ok := cursorOffset(s, li)
	if !ok || off != 0 {
		return false
	}
	if idx == 0 && len(lines) > 1 {
		return false
	}
	ev.PreventDefault()
	if idx == 0 {
		kids := dom.RemoveChildren(li)
		paragraph{}.Transform(el)
		dom.Append(el, kids...)
		s.SetCursor(dom.Position{Node: el})
		s.Changed(el)
		return true
	}
	prev := lines[idx-1]
	at := dom.TextLen(prev)
	dom.Append(prev, dom.RemoveChildren(li)...)
	dom.Detach(li)
	dom.Normalize(prev)
	s.SetCursor(dom.PositionAt(prev, at))
	s.Changed(el)
	return true
}

// ToggleItem flips the checked state of the i-th task item.
func ToggleItem(el *html.Node, i int) bool {
	if TypeOf(el) != TaskList {
		return false
	}
	lines := list{typ: TaskList}.Lines(el)
	if i < 0 || i >= len(lines) {
		return false
	}
	li := lines[i]
	dom.SetAttr(li, CheckedAttr, strconv.FormatBool(dom.Attr(li, CheckedAttr) != "true"))
	return true
}
