package editor

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
)

// maxFrames bounds the callbacks run at the end of one turn so a callback
// that keeps rescheduling itself cannot spin forever.
const maxFrames = 64

// turn runs fn as one event turn. Nested calls join the outer turn; the
// outermost one runs queued frames and commits.
func (e *Editor) turn(fn func()) {
	e.state.depth++
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("editor: recovered from handler panic", slog.String("error", fmt.Sprint(r)))
			e.ensureInvariant()
		}
		e.state.depth--
		if e.state.depth == 0 {
			e.commit()
		}
	}()
	fn()
}

// RequestFrame defers fn until the current turn's mutations are done.
// Callbacks run in FIFO order.
func (e *Editor) RequestFrame(fn func()) {
	if e.state.depth == 0 {
		e.turn(func() { e.state.frames = append(e.state.frames, fn) })
		return
	}
	e.state.frames = append(e.state.frames, fn)
}

func (e *Editor) commit() {
	// Frames requested while frames run join this commit.
	e.state.depth++
	for i := 0; i < maxFrames && len(e.state.frames) > 0; i++ {
		fn := e.state.frames[0]
		e.state.frames = e.state.frames[1:]
		e.runFrame(fn)
	}
	e.state.depth--
	if n := len(e.state.frames); n > 0 {
		e.log.Warn("editor: dropped frame callbacks", slog.Int("count", n))
		e.state.frames = nil
	}
	e.ensureInvariant()
	if e.state.dirty {
		e.state.dirty = false
		e.bus.Emit(events.ContentChanged, events.Content{Blocks: len(e.Blocks())})
	}
	e.UpdateToolbarButtonStates()
}

func (e *Editor) runFrame(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("editor: recovered from frame panic", slog.String("error", fmt.Sprint(r)))
		}
	}()
	fn()
}

// ensureInvariant removes stray root children, guarantees at least one
// block and repairs a selection that points into detached nodes.
func (e *Editor) ensureInvariant() {
	e.sanitizeRoot()
	if e.firstBlock() == nil {
		el := e.parser.Render(&block.Block{Type: block.Paragraph})
		e.root.AppendChild(el)
		e.bus.Emit(events.BlockCreated, e.blockPayload(el))
		e.trace("editor: synthesized default block")
		e.state.current = nil
		e.FocusStart(el)
	}
	sel := e.state.sel
	if !sel.Valid() || !dom.Contains(e.root, sel.Start.Node) || !dom.Contains(e.root, sel.End.Node) {
		el := e.state.current
		if !e.attached(el) {
			el = e.firstBlock()
		}
		e.FocusEnd(el)
	}
	if !e.attached(e.state.current) {
		if el := e.blockOf(e.state.sel.Start.Node); el != nil {
			e.setCurrent(el)
		} else {
			e.setCurrent(e.blockAt(e.state.sel.Start))
		}
	}
}

// sanitizeRoot drops whitespace text and <br> left directly under the root
// and wraps any other orphan into a paragraph.
func (e *Editor) sanitizeRoot() {
	for c := e.root.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case block.IsBlock(c):
		case c.Type == html.TextNode && dom.IsBlank(c), dom.IsElement(c, "br"), c.Type == html.CommentNode:
			e.root.RemoveChild(c)
		default:
			el := e.parser.Render(&block.Block{Type: block.Paragraph})
			e.root.InsertBefore(el, c)
			dom.Append(el, c)
			e.state.dirty = true
		}
		c = next
	}
}
