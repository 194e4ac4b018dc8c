package editor

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
)

// boundary is one end of a selection resolved against block structure.
type boundary struct {
	block  *html.Node
	line   *html.Node
	offset int
	// whole means the selection covers this end's block entirely: the
	// position sat between blocks or on a block without editable lines.
	whole bool
}

// resolve maps p to a boundary. start selects which block a root-level
// position refers to: the one after it for a start, before it for an end.
func (e *Editor) resolve(p dom.Position, start bool) (boundary, bool) {
	if p.Node == nil {
		return boundary{}, false
	}
	if p.Node == e.root {
		var el *html.Node
		if start {
			for c := dom.ChildAt(e.root, p.Offset); c != nil; c = c.NextSibling {
				if block.IsBlock(c) {
					el = c
					break
				}
			}
		} else {
			for c := dom.ChildAt(e.root, p.Offset-1); c != nil; c = c.PrevSibling {
				if block.IsBlock(c) {
					el = c
					break
				}
			}
		}
		if el == nil {
			return boundary{}, false
		}
		return boundary{block: el, whole: true}, true
	}
	el := e.blockOf(p.Node)
	if el == nil {
		return boundary{}, false
	}
	for _, l := range e.reg.Lines(el) {
		if off, ok := dom.TextOffset(l, p); ok {
			return boundary{block: el, line: l, offset: off}, true
		}
	}
	return boundary{block: el, whole: true}, true
}

// deleteSelection removes the selected content by explicit block boundary
// analysis and leaves a collapsed cursor at the merge point. It never
// deletes across the tree in one sweep, so no fragment can end up directly
// under the root.
func (e *Editor) deleteSelection() {
	r := e.state.sel
	if r.Collapsed() {
		return
	}
	s, ok1 := e.resolve(r.Start, true)
	t, ok2 := e.resolve(r.End, false)
	if !ok1 || !ok2 {
		e.log.Warn("editor: selection outside blocks")
		e.SetCursor(r.Start)
		return
	}
	if e.IndexOf(s.block) > e.IndexOf(t.block) {
		// A root-level range between two blocks selects nothing.
		e.SetCursor(r.Start)
		return
	}
	e.trace("editor: delete selection",
		slog.Int("from", e.IndexOf(s.block)), slog.Int("to", e.IndexOf(t.block)),
		slog.Bool("start_whole", s.whole), slog.Bool("end_whole", t.whole))

	if s.block == t.block {
		e.deleteWithin(s, t)
		e.state.dirty = true
		return
	}

	for c := nextBlock(s.block); c != nil && c != t.block; {
		next := nextBlock(c)
		e.RemoveBlock(c)
		c = next
	}

	switch {
	case s.whole && t.whole:
		e.removeSpan(s.block, t.block)
	case s.whole:
		e.RemoveBlock(s.block)
		e.dropLinesBefore(t.block, t.line)
		dom.TrimStart(t.line, t.offset)
		e.SetCursor(dom.PositionAt(t.line, 0))
	case t.whole:
		dom.Truncate(s.line, s.offset)
		e.dropLinesAfter(s.block, s.line)
		e.RemoveBlock(t.block)
		e.SetCursor(dom.PositionAt(s.line, s.offset))
	default:
		e.mergeLines(s, t)
	}
	e.state.dirty = true
}

// removeSpan deletes first..last. The block before the span becomes
// current; a span that starts at the top of the document is replaced by a
// default block.
func (e *Editor) removeSpan(first, last *html.Node) {
	prev := prevBlock(first)
	after := nextBlock(last)
	e.RemoveBlock(first)
	if last != first {
		e.RemoveBlock(last)
	}
	if prev != nil {
		e.FocusEnd(prev)
		return
	}
	var el *html.Node
	if after != nil {
		el = e.insertBlockBefore(after, &block.Block{Type: block.Paragraph})
	} else {
		el = e.InsertBlockAfter(nil, &block.Block{Type: block.Paragraph})
	}
	e.FocusStart(el)
}

// deleteWithin handles a selection inside one block.
func (e *Editor) deleteWithin(s, t boundary) {
	el := s.block
	lines := e.reg.Lines(el)
	if len(lines) == 0 || s.whole && t.whole {
		e.removeSpan(el, el)
		return
	}
	if s.whole {
		s.line, s.offset = lines[0], 0
	}
	if t.whole {
		t.line = lines[len(lines)-1]
		t.offset = dom.TextLen(t.line)
	}
	if s.line == t.line {
		dom.DeleteText(s.line, s.offset, t.offset)
		dom.Normalize(s.line)
		e.SetCursor(dom.PositionAt(s.line, s.offset))
		return
	}
	e.mergeLines(s, t)
}

// mergeLines keeps the text before s and after t and joins them in s's
// line. Lines between the two are dropped; t's block is removed when it has
// no lines left.
func (e *Editor) mergeLines(s, t boundary) {
	dom.Truncate(s.line, s.offset)
	dom.TrimStart(t.line, t.offset)
	tail := dom.RemoveChildren(t.line)

	if s.block == t.block {
		e.dropLinesBetween(s.block, s.line, t.line)
		e.removeLine(s.block, t.line)
	} else {
		e.dropLinesAfter(s.block, s.line)
		e.dropLinesBefore(t.block, t.line)
		e.removeLine(t.block, t.line)
		if t.line == t.block || len(e.reg.Lines(t.block)) == 0 {
			e.RemoveBlock(t.block)
		}
	}
	dom.Append(s.line, tail...)
	dom.Normalize(s.line)
	e.SetCursor(dom.PositionAt(s.line, s.offset))
}

// removeLine drops one line of el. The wrapper itself is never detached
// here; a paragraph's only line is its wrapper.
func (e *Editor) removeLine(el, line *html.Node) {
	if line == el {
		return
	}
	if r, ok := e.reg.KindOf(el).(block.LineRemover); ok {
		r.RemoveLine(el, line)
		return
	}
	dom.Detach(line)
}

func (e *Editor) dropLinesAfter(el, line *html.Node) {
	after := false
	for _, l := range e.reg.Lines(el) {
		if after {
			e.removeLine(el, l)
		}
		if l == line {
			after = true
		}
	}
}

func (e *Editor) dropLinesBefore(el, line *html.Node) {
	for _, l := range e.reg.Lines(el) {
		if l == line {
			return
		}
		e.removeLine(el, l)
	}
}

func (e *Editor) dropLinesBetween(el, from, to *html.Node) {
	inside := false
	for _, l := range e.reg.Lines(el) {
		switch {
		case l == from:
			inside = true
		case l == to:
			return
		case inside:
			e.removeLine(el, l)
		}
	}
}

// removeEmpty deletes an empty block and moves to a neighbour: the
// previous one for Backspace, the next one for Delete, falling back to the
// other side. The last block is never removed; a lone empty block of
// another type reverts to a paragraph instead.
func (e *Editor) removeEmpty(el *html.Node, backward bool) {
	prev, next := prevBlock(el), nextBlock(el)
	if prev == nil && next == nil {
		if block.TypeOf(el) != block.Paragraph {
			e.applyType(el, e.reg.Kind(block.Paragraph))
		}
		return
	}
	e.RemoveBlock(el)
	switch {
	case backward && prev != nil:
		e.FocusEnd(prev)
	case !backward && next != nil:
		e.FocusStart(next)
	case prev != nil:
		e.FocusEnd(prev)
	default:
		e.FocusStart(next)
	}
}

// mergeBackward joins the cursor line into the line before it, which may
// belong to the previous block. A previous block without lines is removed
// instead.
func (e *Editor) mergeBackward(el, line *html.Node) {
	lines := e.reg.Lines(el)
	for i, l := range lines {
		if l == line && i > 0 {
			e.joinAt(lines[i-1], line)
			return
		}
	}
	prev := prevBlock(el)
	if prev == nil {
		if block.TypeOf(el) != block.Paragraph {
			e.applyType(el, e.reg.Kind(block.Paragraph))
			e.FocusStart(el)
		}
		return
	}
	prevLines := e.reg.Lines(prev)
	if len(prevLines) == 0 {
		e.RemoveBlock(prev)
		e.FocusStart(el)
		return
	}
	e.joinAt(prevLines[len(prevLines)-1], line)
}

// mergeForward joins the next line into the cursor line.
func (e *Editor) mergeForward(el, line *html.Node) {
	lines := e.reg.Lines(el)
	for i, l := range lines {
		if l == line && i+1 < len(lines) {
			e.joinAt(line, lines[i+1])
			return
		}
	}
	next := nextBlock(el)
	if next == nil {
		return
	}
	nextLines := e.reg.Lines(next)
	if len(nextLines) == 0 {
		e.RemoveBlock(next)
		return
	}
	e.joinAt(line, nextLines[0])
}

// joinAt merges line b onto the end of line a through the selection
// deletion path.
func (e *Editor) joinAt(a, b *html.Node) {
	e.Select(dom.Range{
		Start: dom.PositionAt(a, dom.TextLen(a)),
		End:   dom.Position{Node: b},
	})
	e.deleteSelection()
}
