package editor

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
	"github.com/starford/berkana/internal/inline"
)

// Clipboard is the data of one paste. HTML takes precedence over Text.
type Clipboard struct {
	HTML string
	Text string
}

// Paste inserts clipboard content at the cursor, replacing any selection.
// HTML is parsed into blocks; multi-line text becomes one paragraph per
// non-empty line; a single line of text is inserted inline.
func (e *Editor) Paste(c Clipboard) {
	e.turn(func() {
		if !e.state.sel.Collapsed() {
			e.deleteSelection()
		}
		el := e.current()
		if el == nil {
			return
		}
		var blocks []*block.Block
		switch text := strings.TrimRight(strings.ReplaceAll(c.Text, "\r\n", "\n"), "\n"); {
		case strings.TrimSpace(c.HTML) != "":
			blocks = e.parser.ParseHTML(c.HTML)
			e.pasteBlocks(el, blocks)
		case strings.Contains(text, "\n"):
			for _, l := range strings.Split(text, "\n") {
				if strings.TrimSpace(l) == "" {
					continue
				}
				blocks = append(blocks, &block.Block{Type: block.Paragraph, Content: inline.Escape(l)})
			}
			e.pasteBlocks(el, blocks)
		case text != "":
			e.pasteText(text)
		}
		e.trace("editor: paste", slog.Bool("html", c.HTML != ""), slog.Int("blocks", len(blocks)))
		e.bus.Emit(events.UserPaste, events.Paste{HTML: strings.TrimSpace(c.HTML) != "", Blocks: len(blocks)})
	})
}

func (e *Editor) pasteText(text string) {
	line, off, ok := e.cursorLine()
	if !ok {
		return
	}
	e.SetCursor(dom.InsertText(dom.PositionAt(line, off), text))
	e.input()
}

// pasteBlocks places parsed blocks at el. A single block pasted into an
// empty block takes its place: paragraph content is inserted inline, any
// other type rewrites the wrapper in place.
func (e *Editor) pasteBlocks(el *html.Node, blocks []*block.Block) {
	if len(blocks) == 0 {
		return
	}
	lines := e.reg.Lines(el)
	empty := len(lines) > 0 && e.reg.IsEmpty(el)
	if len(blocks) == 1 && empty {
		b := blocks[0]
		if b.Type == block.Paragraph {
			line, _, ok := e.cursorLine()
			if !ok {
				line = lines[0]
			}
			dom.RemoveChildren(line)
			dom.Append(line, dom.Fragment(inline.ToHTML(b.Content))...)
			e.FocusEnd(el)
			e.input()
			return
		}
		from := block.TypeOf(el)
		rendered := e.parser.Render(b)
		el.Attr = rendered.Attr
		dom.RemoveChildren(el)
		dom.Append(el, dom.RemoveChildren(rendered)...)
		e.bus.Emit(events.BlockTypeChanged, events.TypeChange{Index: e.IndexOf(el), From: string(from), To: string(b.Type)})
		e.FocusEnd(el)
		e.state.dirty = true
		return
	}
	ref := el
	for _, b := range blocks {
		ref = e.InsertBlockAfter(ref, b)
	}
	if empty && block.TypeOf(el) == block.Paragraph {
		e.RemoveBlock(el)
	}
	e.FocusEnd(ref)
}

// InsertImage adds an image block after the current block, followed by an
// empty paragraph when the image ends the document.
func (e *Editor) InsertImage(src, alt string) {
	e.turn(func() {
		el := e.current()
		img := e.InsertBlockAfter(el, &block.Block{Type: block.Image, Src: src, Alt: alt})
		if el != nil && block.TypeOf(el) == block.Paragraph && e.reg.IsEmpty(el) {
			e.RemoveBlock(el)
		}
		next := nextBlock(img)
		if next == nil {
			next = e.InsertBlockAfter(img, &block.Block{Type: block.Paragraph})
		}
		e.FocusStart(next)
	})
}

// ToggleTask flips the checked state of item in task list block i.
func (e *Editor) ToggleTask(i, item int) bool {
	ok := false
	e.turn(func() {
		blocks := e.Blocks()
		if i < 0 || i >= len(blocks) || block.TypeOf(blocks[i]) != block.TaskList {
			return
		}
		if ok = block.ToggleItem(blocks[i], item); ok {
			e.state.dirty = true
		}
	})
	return ok
}
