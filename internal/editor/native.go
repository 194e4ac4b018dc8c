package editor

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
)

// native applies the host's default action for a key no handler prevented.
func (e *Editor) native(ev *block.KeyEvent) {
	switch {
	case ev.Command():
		switch strings.ToLower(ev.Key) {
		case "b":
			e.toggleInline(block.ActionBold)
		case "i":
			e.toggleInline(block.ActionItalic)
		case "u":
			e.toggleInline(block.ActionUnderline)
		}
	case ev.Key == block.KeyEnter:
		e.softBreak()
	case ev.Key == block.KeyBackspace, ev.Key == block.KeyDelete:
		e.deleteChar(ev.Key == block.KeyBackspace)
	case ev.Printable():
		e.insertChar(ev.Key)
	}
}

// insertChar replaces any selection with s. A space typed at the end of a
// line is stored as a non-breaking space, as contenteditable hosts do.
func (e *Editor) insertChar(s string) {
	if !e.state.sel.Collapsed() {
		e.deleteSelection()
	}
	line, off, ok := e.cursorLine()
	if !ok {
		el := e.current()
		if el == nil {
			return
		}
		line = e.InsertBlockAfter(el, &block.Block{Type: block.Paragraph})
		off = 0
	}
	p := dom.PositionAt(line, off)
	if s == " " && e.atLineEnd() {
		s = dom.NBSP
	} else if s != " " {
		settleSpace(p)
	}
	e.SetCursor(dom.InsertText(p, s))
	e.input()
}

// settleSpace turns a trailing non-breaking space before p back into a
// plain space once text follows it.
func settleSpace(p dom.Position) {
	if p.Node.Type != html.TextNode || p.Offset == 0 {
		return
	}
	r := []rune(p.Node.Data)
	if p.Offset <= len(r) && r[p.Offset-1] == '\u00a0' {
		r[p.Offset-1] = ' '
		p.Node.Data = string(r)
	}
}

// softBreak inserts a line break inside the cursor line.
func (e *Editor) softBreak() {
	if !e.state.sel.Collapsed() {
		e.deleteSelection()
	}
	line, off, ok := e.cursorLine()
	if !ok {
		return
	}
	e.SetCursor(dom.InsertNode(dom.PositionAt(line, off), dom.Element("br")))
	e.state.dirty = true
}

// deleteChar removes one character next to the cursor, joining lines and
// blocks at their edges.
func (e *Editor) deleteChar(backward bool) {
	el := e.current()
	if el == nil {
		return
	}
	line, off, ok := e.cursorLine()
	if !ok {
		e.removeEmpty(el, backward)
		return
	}
	n := dom.TextLen(line)
	switch {
	case backward && off > 0:
		dom.DeleteText(line, off-1, off)
		dom.Normalize(line)
		e.SetCursor(dom.PositionAt(line, off-1))
	case backward:
		e.mergeBackward(el, line)
	case off < n:
		dom.DeleteText(line, off, off+1)
		dom.Normalize(line)
		e.SetCursor(dom.PositionAt(line, off))
	default:
		e.mergeForward(el, line)
	}
	e.input()
}

// selectedLine returns the single line holding the whole selection and the
// selection's offsets inside it.
func (e *Editor) selectedLine() (line *html.Node, from, to int, ok bool) {
	line, from, ok = e.cursorLine()
	if !ok {
		return nil, 0, 0, false
	}
	to, ok = dom.TextOffset(line, e.state.sel.End)
	if !ok {
		return nil, 0, 0, false
	}
	return line, from, to, true
}

// toggleInline wraps the selection in the action's element, or unwraps it
// when the selection already sits inside one. Selections spanning lines
// are left alone.
func (e *Editor) toggleInline(action string) bool {
	tag := block.InlineTag(action)
	if tag == "" || e.state.sel.Collapsed() {
		return false
	}
	el := e.current()
	if el == nil {
		return false
	}
	for _, d := range e.reg.DisabledButtons(block.TypeOf(el)) {
		if d == action {
			return false
		}
	}
	line, from, to, ok := e.selectedLine()
	if !ok || from == to {
		return false
	}
	if w := enclosing(line, from, to, tag); w != nil {
		for _, c := range dom.RemoveChildren(w) {
			w.Parent.InsertBefore(c, w)
		}
		dom.Detach(w)
	} else {
		wrap(line, from, to, tag)
	}
	dom.Normalize(line)
	e.Select(dom.Range{Start: dom.PositionAt(line, from), End: dom.PositionAt(line, to)})
	e.state.dirty = true
	return true
}

// enclosing returns the tag element inside line whose text covers the
// rune offsets [from, to).
func enclosing(line *html.Node, from, to int, tag string) *html.Node {
	for _, w := range dom.Query(line, tag) {
		start, ok := dom.TextOffset(line, dom.Before(w))
		if ok && start <= from && to <= start+dom.TextLen(w) {
			return w
		}
	}
	return nil
}

// wrap moves the content of line between the rune offsets into a new tag
// element.
func wrap(line *html.Node, from, to int, tag string) {
	mid := dom.Clone(line)
	dom.Truncate(mid, to)
	dom.TrimStart(mid, from)
	tail := dom.Clone(line)
	dom.TrimStart(tail, to)
	dom.Truncate(line, from)

	w := dom.Element(tag)
	dom.Append(w, dom.RemoveChildren(mid)...)
	line.AppendChild(w)
	dom.Append(line, dom.RemoveChildren(tail)...)
}
