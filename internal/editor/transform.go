package editor

import (
	"log/slog"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
)

// Input runs the input handling for the current block: trigger detection
// and change notification.
func (e *Editor) Input() {
	e.turn(e.input)
}

func (e *Editor) input() {
	el := e.current()
	if el == nil {
		return
	}
	e.checkTransformation(el)
	e.state.dirty = true
}

// checkTransformation converts a paragraph whose stripped text starts with
// a typing trigger. Only paragraphs convert, and only to another type, so
// running it again on the converted block does nothing.
func (e *Editor) checkTransformation(el *html.Node) bool {
	if el == nil || block.TypeOf(el) != block.Paragraph {
		return false
	}
	kind, trigger, ok := e.reg.MatchTrigger(dom.StrippedText(el))
	if !ok || kind.Type() == block.Paragraph {
		return false
	}
	lead := leadingSpace(dom.Text(el))
	dom.TrimStart(el, lead+utf8.RuneCountInString(trigger))
	e.trace("editor: trigger matched", slog.String("trigger", trigger), slog.String("type", string(kind.Type())))
	e.applyType(el, kind)
	return true
}

// leadingSpace counts the whitespace runes StrippedText trims.
func leadingSpace(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n', '\u00a0':
			n++
		default:
			return n
		}
	}
	return n
}

// ConvertCurrentBlockOrCreate converts the current block to t, creating a
// default block first when there is none. It reports whether a conversion
// happened.
func (e *Editor) ConvertCurrentBlockOrCreate(t block.Type) bool {
	converted := false
	e.turn(func() {
		if !e.reg.Has(t) {
			return
		}
		el := e.CurrentBlock()
		if el == nil {
			blocks := e.Blocks()
			var last *html.Node
			if len(blocks) > 0 {
				last = blocks[len(blocks)-1]
			}
			el = e.InsertBlockAfter(last, &block.Block{Type: block.Paragraph})
			e.FocusStart(el)
		}
		if block.TypeOf(el) == t {
			return
		}
		e.applyType(el, e.reg.Kind(t))
		converted = true
	})
	return converted
}

// applyType rewrites el in place as kind, carrying the content of its lines
// into the new structure. The wrapper keeps its identity.
func (e *Editor) applyType(el *html.Node, kind block.Kind) {
	from := block.TypeOf(el)
	var contents [][]*html.Node
	for _, l := range e.reg.Lines(el) {
		contents = append(contents, dom.RemoveChildren(l))
	}
	editable := kind.Transform(el)

	adder, multi := kind.(block.LineAdder)
	switch {
	case editable == nil:
		next := e.InsertBlockAfter(el, &block.Block{Type: block.Paragraph})
		dom.Append(next, joinLines(contents)...)
		if dom.IsBlank(next) {
			dom.RemoveChildren(next)
		}
		e.RequestFrame(func() { e.FocusEnd(next) })
		e.SetCursor(dom.Position{Node: el})
	case multi && len(contents) > 1:
		line := editable
		dom.Append(line, contents[0]...)
		for _, c := range contents[1:] {
			line = adder.AddLine(el, line)
			dom.Append(line, c...)
		}
		dom.Normalize(el)
		e.SetCursor(dom.PositionAt(line, dom.TextLen(line)))
	default:
		dom.Append(editable, joinLines(contents)...)
		dom.Normalize(editable)
		e.SetCursor(dom.PositionAt(editable, dom.TextLen(editable)))
	}

	e.trace("editor: block converted", slog.String("from", string(from)), slog.String("to", string(kind.Type())))
	e.bus.Emit(events.BlockTypeChanged, events.TypeChange{Index: e.IndexOf(el), From: string(from), To: string(kind.Type())})
	e.state.dirty = true
}

// joinLines flattens line contents with <br> between lines.
func joinLines(contents [][]*html.Node) []*html.Node {
	var out []*html.Node
	for i, c := range contents {
		if i > 0 {
			out = append(out, dom.Element("br"))
		}
		out = append(out, c...)
	}
	return out
}
