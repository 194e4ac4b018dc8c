// Package editor is the headless block editor. An Editor owns one root
// element inside a host document, a selection, and the current-block
// pointer. Keyboard, input and paste events arrive as method calls; every
// call is one event turn that mutates the live tree, runs deferred frame
// callbacks and re-establishes the document invariants before returning.
//
// The live tree is the only source of truth: blocks, Markdown and HTML are
// derived from it on every request.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/dom"
	"github.com/starford/berkana/internal/events"
	"github.com/starford/berkana/internal/parser"
)

// ErrRootNotFound is returned when the host document has no element with
// the configured id.
var ErrRootNotFound = errors.New("editor: root element not found")

// RootClass marks the editor root element.
const RootClass = "editor"

// Options configures a new editor.
type Options struct {
	// ID is the id attribute of the root element in the host document.
	ID string
	// Toolbar renders a toolbar before the root element.
	Toolbar bool
	// Debug logs conversions and recoveries at debug level.
	Debug    bool
	Logger   *slog.Logger
	Registry *block.Registry
	// Debounce delays content.changed; Throttle limits user.keypress and
	// user.paste. Zero disables either wrapper.
	Debounce time.Duration
	Throttle time.Duration
}

// State is the per-instance mutable state shared by the handlers.
type State struct {
	current *html.Node
	sel     dom.Range
	keys    keyBuffer
	frames  []func()
	depth   int
	dirty   bool
}

// Editor is not safe for concurrent use; callers serialise access.
type Editor struct {
	id      string
	doc     *html.Node
	root    *html.Node
	toolbar *html.Node

	reg    *block.Registry
	parser *parser.Parser
	bus    *events.Bus
	log    *slog.Logger
	debug  bool

	state State
}

var (
	instancesMu sync.Mutex
	instances   = make(map[*html.Node]*Editor)
)

// Lookup returns the editor bound to root, if any.
func Lookup(root *html.Node) *Editor {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	return instances[root]
}

// New binds an editor to the element with id opts.ID inside doc. Existing
// markup under the root is read as HTML and re-rendered as blocks; an empty
// root receives a default block. A previous editor bound to the same root
// is closed.
func New(doc *html.Node, opts Options) (*Editor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root := dom.ByID(doc, opts.ID)
	if root == nil {
		logger.Warn("editor: root element not found", slog.String("id", opts.ID))
		return nil, fmt.Errorf("%w: %q", ErrRootNotFound, opts.ID)
	}
	reg := opts.Registry
	if reg == nil {
		reg = block.NewRegistry()
	}
	e := &Editor{
		id:     opts.ID,
		doc:    doc,
		root:   root,
		reg:    reg,
		parser: parser.New(reg),
		bus:    events.New(events.Options{Source: opts.ID, Debounce: opts.Debounce, Throttle: opts.Throttle}),
		log:    logger.With(slog.String("editor", opts.ID)),
		debug:  opts.Debug,
	}

	instancesMu.Lock()
	prev := instances[root]
	instances[root] = e
	instancesMu.Unlock()
	if prev != nil {
		prev.bus.Close()
	}

	if !dom.HasClass(root, RootClass) {
		dom.SetAttr(root, "class", strings.TrimSpace(dom.Attr(root, "class")+" "+RootClass))
	}
	if opts.Toolbar {
		e.toolbar = newToolbar(root)
	}
	existing := strings.TrimSpace(dom.InnerHTML(root))
	e.load(e.parser.ParseHTML(existing))
	e.bus.Emit(events.EditorInitialized, events.Initialized{ID: e.id, Blocks: len(e.Blocks())})
	e.trace("editor: initialized", slog.Int("blocks", len(e.Blocks())))
	return e, nil
}

// Close unbinds the editor from its root and drops pending events.
func (e *Editor) Close() {
	instancesMu.Lock()
	if instances[e.root] == e {
		delete(instances, e.root)
	}
	instancesMu.Unlock()
	e.bus.Close()
}

// ID returns the id of the root element.
func (e *Editor) ID() string { return e.id }

// Root returns the root element.
func (e *Editor) Root() *html.Node { return e.root }

// Registry returns the block registry in use.
func (e *Editor) Registry() *block.Registry { return e.reg }

// InnerHTML renders the live markup under the root.
func (e *Editor) InnerHTML() string { return dom.InnerHTML(e.root) }

func (e *Editor) trace(msg string, attrs ...any) {
	if e.debug {
		e.log.Debug(msg, attrs...)
	}
}

// load replaces the document with blocks and focuses the first one.
func (e *Editor) load(blocks []*block.Block) {
	dom.RemoveChildren(e.root)
	for _, b := range blocks {
		e.root.AppendChild(e.parser.Render(b))
	}
	e.state.current = nil
	e.state.sel = dom.Range{}
	if first := e.firstBlock(); first != nil {
		e.FocusStart(first)
	}
	e.ensureInvariant()
}

// Blocks returns the live block elements in document order.
func (e *Editor) Blocks() []*html.Node {
	var out []*html.Node
	for c := e.root.FirstChild; c != nil; c = c.NextSibling {
		if block.IsBlock(c) {
			out = append(out, c)
		}
	}
	return out
}

func (e *Editor) firstBlock() *html.Node {
	for c := e.root.FirstChild; c != nil; c = c.NextSibling {
		if block.IsBlock(c) {
			return c
		}
	}
	return nil
}

// IndexOf returns the position of el among the blocks, or -1.
func (e *Editor) IndexOf(el *html.Node) int {
	for i, b := range e.Blocks() {
		if b == el {
			return i
		}
	}
	return -1
}

func prevBlock(el *html.Node) *html.Node {
	for c := el.PrevSibling; c != nil; c = c.PrevSibling {
		if block.IsBlock(c) {
			return c
		}
	}
	return nil
}

func nextBlock(el *html.Node) *html.Node {
	for c := el.NextSibling; c != nil; c = c.NextSibling {
		if block.IsBlock(c) {
			return c
		}
	}
	return nil
}

// blockOf returns the block wrapper holding n, or nil when n is outside
// every block.
func (e *Editor) blockOf(n *html.Node) *html.Node {
	for c := n; c != nil; c = c.Parent {
		if c.Parent == e.root {
			if block.IsBlock(c) {
				return c
			}
			return nil
		}
	}
	return nil
}

func (e *Editor) attached(n *html.Node) bool {
	return n != nil && n != e.root && dom.Contains(e.root, n)
}

// GetBlocks derives the block list from the live tree.
func (e *Editor) GetBlocks() []*block.Block {
	return e.parser.Read(e.root)
}

// GetMarkdown serializes the live tree as Markdown.
func (e *Editor) GetMarkdown() string {
	return e.parser.Markdown(e.GetBlocks())
}

// GetHTML serializes the live tree as HTML.
func (e *Editor) GetHTML() string {
	return e.parser.HTML(e.GetBlocks())
}

// SetMarkdown replaces the document with the parsed text.
func (e *Editor) SetMarkdown(text string) {
	e.turn(func() {
		e.load(e.parser.ParseMarkdown(text))
		e.state.dirty = true
	})
}

// SetHTML replaces the document with the parsed markup.
func (e *Editor) SetHTML(text string) {
	e.turn(func() {
		e.load(e.parser.ParseHTML(text))
		e.state.dirty = true
	})
}

// Clear leaves a single empty paragraph.
func (e *Editor) Clear() {
	e.SetMarkdown("")
}

// Focus places the cursor at the start of the current block, or the first
// block when there is none.
func (e *Editor) Focus() {
	e.turn(func() {
		el := e.state.current
		if !e.attached(el) {
			el = e.firstBlock()
		}
		if el != nil {
			e.FocusStart(el)
		}
	})
}

// On registers a listener and returns an id for Off.
func (e *Editor) On(kind events.Kind, fn events.Handler) int { return e.bus.On(kind, fn) }

// Off removes a listener.
func (e *Editor) Off(id int) bool { return e.bus.Off(id) }

// Emit publishes an event on the editor's bus.
func (e *Editor) Emit(kind events.Kind, payload any) { e.bus.Emit(kind, payload) }

// Flush delivers pending debounced events.
func (e *Editor) Flush() { e.bus.Flush() }

// Selection returns the current selection.
func (e *Editor) Selection() dom.Range { return e.state.sel }

// Select sets the selection, ordering its ends in document order.
func (e *Editor) Select(r dom.Range) {
	if !r.Valid() || !dom.Contains(e.root, r.Start.Node) || !dom.Contains(e.root, r.End.Node) {
		return
	}
	if dom.Compare(r.Start, r.End) > 0 {
		r.Start, r.End = r.End, r.Start
	}
	e.state.sel = r
	if el := e.blockOf(r.Start.Node); el != nil {
		e.setCurrent(el)
	} else if el := e.blockAt(r.Start); el != nil {
		e.setCurrent(el)
	}
}

// SetCursor collapses the selection at p.
func (e *Editor) SetCursor(p dom.Position) {
	e.Select(dom.Caret(p))
}

// SelectAll selects every block by explicit block boundaries.
func (e *Editor) SelectAll() {
	blocks := e.Blocks()
	if len(blocks) == 0 {
		return
	}
	e.Select(dom.Spanning(blocks[0], blocks[len(blocks)-1]))
}

// SelectBlocks selects blocks from..to inclusive as whole blocks.
func (e *Editor) SelectBlocks(from, to int) bool {
	blocks := e.Blocks()
	if from < 0 || to >= len(blocks) || from > to {
		return false
	}
	e.Select(dom.Spanning(blocks[from], blocks[to]))
	return true
}

// SelectText selects from a text offset in one block to a text offset in
// another. Offsets index the block text with lines joined by newlines.
func (e *Editor) SelectText(startBlock, startOffset, endBlock, endOffset int) bool {
	start, ok := e.PositionIn(startBlock, startOffset)
	if !ok {
		return false
	}
	end, ok := e.PositionIn(endBlock, endOffset)
	if !ok {
		return false
	}
	e.Select(dom.Range{Start: start, End: end})
	return true
}

// PositionIn resolves a text offset within block i.
func (e *Editor) PositionIn(i, offset int) (dom.Position, bool) {
	blocks := e.Blocks()
	if i < 0 || i >= len(blocks) {
		return dom.Position{}, false
	}
	el := blocks[i]
	lines := e.reg.Lines(el)
	if len(lines) == 0 {
		return dom.Position{Node: el}, true
	}
	for j, l := range lines {
		n := dom.TextLen(l)
		if offset <= n || j == len(lines)-1 {
			return dom.PositionAt(l, offset), true
		}
		offset -= n + 1
	}
	return dom.Position{}, false
}

// Caret reports the block index and text offset of the selection start, as
// accepted by PositionIn.
func (e *Editor) Caret() (int, int) {
	p := e.state.sel.Start
	if p.Node == nil {
		return -1, 0
	}
	el := e.blockOf(p.Node)
	if el == nil {
		return -1, 0
	}
	off := 0
	for _, l := range e.reg.Lines(el) {
		if o, ok := dom.TextOffset(l, p); ok {
			return e.IndexOf(el), off + o
		}
		off += dom.TextLen(l) + 1
	}
	return e.IndexOf(el), 0
}

// BlockText returns the visible text of block i with lines joined by
// newlines.
func (e *Editor) BlockText(i int) string {
	blocks := e.Blocks()
	if i < 0 || i >= len(blocks) {
		return ""
	}
	var parts []string
	for _, l := range e.reg.Lines(blocks[i]) {
		parts = append(parts, dom.Text(l))
	}
	return strings.Join(parts, "\n")
}

// CurrentBlock returns the block holding the selection start.
func (e *Editor) CurrentBlock() *html.Node {
	if !e.attached(e.state.current) {
		return nil
	}
	return e.state.current
}

func (e *Editor) setCurrent(el *html.Node) {
	if el == e.state.current {
		return
	}
	if el == nil {
		e.state.current = nil
		return
	}
	e.state.current = el
	e.bus.Emit(events.BlockFocused, e.blockPayload(el))
}

func (e *Editor) blockPayload(el *html.Node) events.Block {
	return events.Block{Index: e.IndexOf(el), Type: string(block.TypeOf(el))}
}

// blockAt resolves a root-level position to the block at or before it.
func (e *Editor) blockAt(p dom.Position) *html.Node {
	if p.Node != e.root {
		return nil
	}
	if c := dom.ChildAt(e.root, p.Offset); c != nil && block.IsBlock(c) {
		return c
	}
	if c := dom.ChildAt(e.root, p.Offset-1); c != nil && block.IsBlock(c) {
		return c
	}
	return nil
}

// InsertBlockAfter renders b directly after ref, or at the end when ref is
// nil or detached.
func (e *Editor) InsertBlockAfter(ref *html.Node, b *block.Block) *html.Node {
	el := e.parser.Render(b)
	if ref != nil && ref.Parent == e.root {
		dom.InsertAfter(el, ref)
	} else {
		e.root.AppendChild(el)
	}
	e.bus.Emit(events.BlockCreated, e.blockPayload(el))
	e.state.dirty = true
	return el
}

// insertBlockBefore renders b directly before ref.
func (e *Editor) insertBlockBefore(ref *html.Node, b *block.Block) *html.Node {
	el := e.parser.Render(b)
	if ref != nil && ref.Parent == e.root {
		e.root.InsertBefore(el, ref)
	} else {
		e.root.AppendChild(el)
	}
	e.bus.Emit(events.BlockCreated, e.blockPayload(el))
	e.state.dirty = true
	return el
}

// RemoveBlock detaches el from the document.
func (e *Editor) RemoveBlock(el *html.Node) {
	if el == nil || el.Parent != e.root {
		return
	}
	payload := e.blockPayload(el)
	dom.Detach(el)
	if e.state.current == el {
		e.state.current = nil
	}
	e.bus.Emit(events.BlockDeleted, payload)
	e.state.dirty = true
}

// FocusStart places the cursor at the start of el.
func (e *Editor) FocusStart(el *html.Node) {
	if !e.attached(el) {
		return
	}
	if lines := e.reg.Lines(el); len(lines) > 0 {
		e.SetCursor(dom.PositionAt(lines[0], 0))
		return
	}
	e.SetCursor(dom.Position{Node: el})
}

// FocusEnd places the cursor at the end of el.
func (e *Editor) FocusEnd(el *html.Node) {
	if !e.attached(el) {
		return
	}
	if lines := e.reg.Lines(el); len(lines) > 0 {
		last := lines[len(lines)-1]
		e.SetCursor(dom.PositionAt(last, dom.TextLen(last)))
		return
	}
	e.SetCursor(dom.Position{Node: el})
}

// Changed marks the document as modified in the current turn.
func (e *Editor) Changed(*html.Node) {
	e.state.dirty = true
}

var _ block.Surface = (*Editor)(nil)
