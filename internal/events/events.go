// Package events is the typed notification bus of an editor instance.
//
// Dispatch is synchronous. content.changed is debounced: bursts collapse
// into one delivery of the latest event after the quiet period. user.keypress
// and user.paste are throttled to one delivery per interval. Debounced
// handlers run on a timer goroutine and must be safe for concurrent use.
package events

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Kind names an event.
type Kind string

// Event kinds.
const (
	BlockCreated      Kind = "block.created"
	BlockDeleted      Kind = "block.deleted"
	BlockFocused      Kind = "block.focused"
	BlockTypeChanged  Kind = "block.type.changed"
	ContentChanged    Kind = "content.changed"
	EditorInitialized Kind = "editor.initialized"
	ToolbarAction     Kind = "toolbar.action"
	UserKeyPress      Kind = "user.keypress"
	UserPaste         Kind = "user.paste"
)

// Kinds lists every event kind.
var Kinds = []Kind{
	BlockCreated, BlockDeleted, BlockFocused, BlockTypeChanged, ContentChanged,
	EditorInitialized, ToolbarAction, UserKeyPress, UserPaste,
}

// Block identifies a block by position and type.
type Block struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// TypeChange is the payload of block.type.changed.
type TypeChange struct {
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Content is the payload of content.changed.
type Content struct {
	Blocks int `json:"blocks"`
}

// Initialized is the payload of editor.initialized.
type Initialized struct {
	ID     string `json:"id"`
	Blocks int    `json:"blocks"`
}

// Action is the payload of toolbar.action.
type Action struct {
	Action string `json:"action"`
	Type   string `json:"type,omitempty"`
}

// Key is the payload of user.keypress.
type Key struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
}

// Paste is the payload of user.paste.
type Paste struct {
	HTML   bool `json:"html"`
	Blocks int  `json:"blocks"`
}

// Event is one notification.
type Event struct {
	Kind    Kind      `json:"kind"`
	Source  string    `json:"source,omitempty"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Handler receives events.
type Handler func(Event)

// Options tunes the debounce and throttle wrappers. Zero durations disable
// them.
type Options struct {
	Source   string
	Debounce time.Duration
	Throttle time.Duration
}

type entry struct {
	id   int
	kind Kind
	fn   Handler
}

// Bus is safe for concurrent use.
type Bus struct {
	opts Options

	mu       sync.Mutex
	nextID   int
	handlers []entry
	pending  map[Kind]*Event
	timers   map[Kind]*time.Timer
	limits   map[Kind]*rate.Sometimes
	closed   bool
}

// debounced and throttled name the kinds wrapped by default.
var (
	debounced = map[Kind]bool{ContentChanged: true}
	throttled = map[Kind]bool{UserKeyPress: true, UserPaste: true}
)

// New returns an empty bus.
func New(opts Options) *Bus {
	b := &Bus{
		opts:    opts,
		pending: make(map[Kind]*Event),
		timers:  make(map[Kind]*time.Timer),
		limits:  make(map[Kind]*rate.Sometimes),
	}
	if opts.Throttle > 0 {
		for k := range throttled {
			b.limits[k] = &rate.Sometimes{Interval: opts.Throttle}
		}
	}
	return b
}

// On registers fn for kind and returns an id for Off.
func (b *Bus) On(kind Kind, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers = append(b.handlers, entry{id: b.nextID, kind: kind, fn: fn})
	return b.nextID
}

// Off removes the handler registered under id.
func (b *Bus) Off(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.id == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Emit publishes payload under kind, applying the debounce or throttle
// wrapper configured for it.
func (b *Bus) Emit(kind Kind, payload any) {
	ev := Event{Kind: kind, Source: b.opts.Source, Payload: payload, Time: time.Now()}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if debounced[kind] && b.opts.Debounce > 0 {
		b.pending[kind] = &ev
		if t, ok := b.timers[kind]; ok {
			t.Reset(b.opts.Debounce)
		} else {
			b.timers[kind] = time.AfterFunc(b.opts.Debounce, func() { b.fire(kind) })
		}
		b.mu.Unlock()
		return
	}
	limit := b.limits[kind]
	b.mu.Unlock()

	if limit != nil {
		// Sometimes.Do holds its lock while f runs; only decide inside it
		// so handlers may emit the same kind again.
		allowed := false
		limit.Do(func() { allowed = true })
		if !allowed {
			return
		}
	}
	b.dispatch(ev)
}

func (b *Bus) fire(kind Kind) {
	b.mu.Lock()
	ev := b.pending[kind]
	delete(b.pending, kind)
	b.mu.Unlock()
	if ev != nil {
		b.dispatch(*ev)
	}
}

// Flush delivers pending debounced events immediately.
func (b *Bus) Flush() {
	b.mu.Lock()
	var evs []Event
	for k, ev := range b.pending {
		if t, ok := b.timers[k]; ok {
			t.Stop()
			delete(b.timers, k)
		}
		evs = append(evs, *ev)
		delete(b.pending, k)
	}
	b.mu.Unlock()
	for _, ev := range evs {
		b.dispatch(ev)
	}
}

// Close drops pending events and stops further delivery.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for k, t := range b.timers {
		t.Stop()
		delete(b.timers, k)
	}
	b.pending = make(map[Kind]*Event)
	b.handlers = nil
}

// dispatch calls matching handlers outside the lock so that handlers may
// register or emit.
func (b *Bus) dispatch(ev Event) {
	b.mu.Lock()
	var fns []Handler
	for _, e := range b.handlers {
		if e.kind == ev.Kind {
			fns = append(fns, e.fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
