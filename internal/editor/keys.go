package editor

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
)

const keyBufferSize = 8

// keyBuffer remembers the most recent keys of one editor instance.
type keyBuffer struct {
	keys [keyBufferSize]string
	n    int
}

func (b *keyBuffer) push(key string) {
	b.keys[b.n%keyBufferSize] = key
	b.n++
}

// last returns up to n of the most recent keys, oldest first.
func (b *keyBuffer) last(n int) []string {
	if n > b.n {
		n = b.n
	}
	if n > keyBufferSize {
		n = keyBufferSize
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = b.keys[(b.n-n+i)%keyBufferSize]
	}
	return out
}

// endsWith reports whether the most recent keys equal seq.
func (b *keyBuffer) endsWith(seq ...string) bool {
	got := b.last(len(seq))
	if len(got) != len(seq) {
		return false
	}
	for i := range seq {
		if got[i] != seq[i] {
			return false
		}
	}
	return true
}

func (b *keyBuffer) String() string {
	return strings.Join(b.last(keyBufferSize), " ")
}

// KeyDown delivers one keydown. Type-specific handlers run first; when none
// prevents the default, the native editing action is applied.
func (e *Editor) KeyDown(ev *block.KeyEvent) {
	e.turn(func() {
		e.state.keys.push(ev.Key)
		e.bus.Emit(events.UserKeyPress, events.Key{Key: ev.Key, Shift: ev.Shift, Ctrl: ev.Ctrl, Meta: ev.Meta})
		e.dispatch(ev)
		if !ev.DefaultPrevented() {
			e.native(ev)
		}
	})
}

// Press delivers a key without modifiers and reports whether a handler
// suppressed the native action.
func (e *Editor) Press(key string) bool {
	ev := &block.KeyEvent{Key: key}
	e.KeyDown(ev)
	return ev.DefaultPrevented()
}

// Type delivers text one key at a time; "\n" is delivered as Enter.
func (e *Editor) Type(text string) {
	for _, r := range text {
		key := string(r)
		if r == '\n' {
			key = block.KeyEnter
		}
		e.KeyDown(&block.KeyEvent{Key: key})
	}
}

// current returns the current block, falling back to the block under the
// selection and then to the first block.
func (e *Editor) current() *html.Node {
	if el := e.CurrentBlock(); el != nil {
		return el
	}
	if p := e.state.sel.Start; p.Node != nil {
		if el := e.blockOf(p.Node); el != nil {
			e.setCurrent(el)
			return el
		}
	}
	e.ensureInvariant()
	return e.CurrentBlock()
}

func (e *Editor) dispatch(ev *block.KeyEvent) {
	el := e.current()
	if el == nil {
		return
	}
	kind := e.reg.KindOf(el)
	switch {
	case ev.Command() && strings.EqualFold(ev.Key, "a"):
		ev.PreventDefault()
		e.SelectAll()
	case ev.Key == block.KeyEnter:
		e.handleEnter(ev, el, kind)
	case ev.Key == block.KeyBackspace || ev.Key == block.KeyDelete:
		e.handleDelete(ev, el, kind)
	case ev.Key == block.KeyTab:
		if h, ok := kind.(block.KeyPressHandler); ok && h.HandleKeyPress(e, ev, e.lineText()) {
			return
		}
		ev.PreventDefault()
	default:
		if h, ok := kind.(block.KeyPressHandler); ok {
			h.HandleKeyPress(e, ev, e.lineText())
		}
	}
}

// cursorLine returns the editable line holding the cursor and the offset
// within it.
func (e *Editor) cursorLine() (line *html.Node, offset int, ok bool) {
	el := e.CurrentBlock()
	if el == nil {
		return nil, 0, false
	}
	p := e.state.sel.Start
	for _, l := range e.reg.Lines(el) {
		if off, in := dom.TextOffset(l, p); in {
			return l, off, true
		}
	}
	return nil, 0, false
}

func (e *Editor) lineText() string {
	if line, _, ok := e.cursorLine(); ok {
		return dom.Text(line)
	}
	return ""
}

// atLineEnd reports whether only whitespace follows the cursor in its line.
func (e *Editor) atLineEnd() bool {
	line, off, ok := e.cursorLine()
	if !ok {
		return true
	}
	rest := []rune(dom.Text(line))
	if off > len(rest) {
		return true
	}
	tail := strings.ReplaceAll(string(rest[off:]), dom.NBSP, " ")
	return strings.TrimSpace(tail) == ""
}

func (e *Editor) handleEnter(ev *block.KeyEvent, el *html.Node, kind block.Kind) {
	if !e.state.sel.Collapsed() {
		e.deleteSelection()
		el = e.current()
		kind = e.reg.KindOf(el)
	}
	if kind.Type() == block.Paragraph && e.enterTrigger(ev, el) {
		return
	}
	if kind.Type() == block.Code && e.leaveCode(ev, el) {
		return
	}
	if h, ok := kind.(block.EnterHandler); ok && h.HandleEnterKey(e, ev) {
		return
	}
	if !e.atLineEnd() {
		return
	}
	ev.PreventDefault()
	next := e.InsertBlockAfter(el, &block.Block{Type: block.Paragraph})
	e.RequestFrame(func() { e.FocusStart(next) })
}

// enterTrigger converts a paragraph holding exactly a fence or rule.
func (e *Editor) enterTrigger(ev *block.KeyEvent, el *html.Node) bool {
	kind, info, ok := e.reg.MatchEnterTrigger(dom.StrippedText(el))
	if !ok {
		return false
	}
	ev.PreventDefault()
	e.trace("editor: enter trigger", slog.String("type", string(kind.Type())), slog.String("keys", e.state.keys.String()))
	dom.RemoveChildren(el)
	e.applyType(el, kind)
	if s, ok := kind.(block.InfoSetter); ok && info != "" {
		s.SetInfo(el, info)
	}
	return true
}

// leaveCode exits a code block on the third consecutive Enter at its end,
// dropping the two blank lines the previous presses added.
func (e *Editor) leaveCode(ev *block.KeyEvent, el *html.Node) bool {
	if !e.state.keys.endsWith(block.KeyEnter, block.KeyEnter, block.KeyEnter) || !e.atLineEnd() {
		return false
	}
	line, _, ok := e.cursorLine()
	if !ok {
		return false
	}
	text := dom.Text(line)
	if !strings.HasSuffix(text, "\n\n") {
		return false
	}
	ev.PreventDefault()
	n := utf8.RuneCountInString(text)
	dom.DeleteText(line, n-2, n)
	next := e.InsertBlockAfter(el, &block.Block{Type: block.Paragraph})
	e.RequestFrame(func() { e.FocusStart(next) })
	return true
}

func (e *Editor) handleDelete(ev *block.KeyEvent, el *html.Node, kind block.Kind) {
	if !e.state.sel.Collapsed() {
		ev.PreventDefault()
		e.deleteSelection()
		return
	}
	if e.reg.IsEmpty(el) && len(kind.Lines(el)) <= 1 {
		ev.PreventDefault()
		e.removeEmpty(el, ev.Key == block.KeyBackspace)
		return
	}
	if h, ok := kind.(block.BackspaceHandler); ok && ev.Key == block.KeyBackspace {
		h.HandleBackspaceKey(e, ev)
	}
	if h, ok := kind.(block.DeleteHandler); ok && ev.Key == block.KeyDelete {
		h.HandleDeleteKey(e, ev)
	}
}
