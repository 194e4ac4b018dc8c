package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/editor"
	"github.com/starford/berkana/internal/events"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/sse"
)

const (
	rootID   = "editor"
	hostPage = `<!DOCTYPE html><html><head><title>berkana</title></head><body><div id="` + rootID + `"></div></body></html>`
)

// Session is one editor bound to a document. Every operation holds the
// session lock because the editor itself is single-threaded.
type Session struct {
	id  string
	svc *Service

	mu          sync.Mutex
	ed          *editor.Editor
	path        string
	frontmatter map[string]any
	base        string // checksum of the file as last read or written
	saved       string // markdown body as last read or written
	opened      time.Time
	lastUsed    time.Time
	closed      bool
}

// Caret is a cursor position as block index and text offset.
type Caret struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

// Snapshot is the derived state of a session.
type Snapshot struct {
	ID       string          `json:"id"`
	Path     string          `json:"path"`
	Markdown string          `json:"markdown"`
	HTML     string          `json:"html"`
	Blocks   []*block.Block  `json:"blocks"`
	Caret    Caret           `json:"caret"`
	Current  string          `json:"current,omitempty"`
	Toolbar  map[string]bool `json:"toolbar,omitempty"`
	Checksum string          `json:"checksum"`
	Dirty    bool            `json:"dirty"`
}

// Key is a keydown delivered through the API.
type Key struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
}

// Range selects text from one block offset to another.
type Range struct {
	StartBlock  int `json:"start_block"`
	StartOffset int `json:"start_offset"`
	EndBlock    int `json:"end_block"`
	EndOffset   int `json:"end_offset"`
}

// SessionInfo is a listing entry for an open session.
type SessionInfo struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Opened   time.Time `json:"opened"`
	LastUsed time.Time `json:"last_used"`
}

// OpenSession loads a document into a fresh editor. An empty path opens a
// scratch session that can be edited and converted but not saved.
func (s *Service) OpenSession(_ context.Context, path string) (*Snapshot, error) {
	var (
		fm   map[string]any
		body string
		base string
	)
	if path != "" {
		data, err := s.store.Read(path)
		if err != nil {
			return nil, err
		}
		fm, body, err = parser.SplitFrontmatter(data)
		if err != nil {
			return nil, fmt.Errorf("docservice: frontmatter %s: %w", path, err)
		}
		base = checksum.Sum(data)
	}

	doc, err := html.Parse(strings.NewReader(hostPage))
	if err != nil {
		return nil, fmt.Errorf("docservice: host page: %w", err)
	}
	id := uuid.NewString()
	ed, err := editor.New(doc, editor.Options{
		ID:       rootID,
		Toolbar:  s.opts.Toolbar,
		Debug:    s.opts.Debug,
		Logger:   s.log.With(slog.String("session", id)),
		Debounce: s.opts.Debounce,
		Throttle: s.opts.Throttle,
	})
	if err != nil {
		return nil, err
	}
	ed.SetMarkdown(body)
	ed.Flush()

	now := time.Now()
	sess := &Session{
		id:          id,
		svc:         s,
		ed:          ed,
		path:        path,
		frontmatter: fm,
		base:        base,
		saved:       ed.GetMarkdown(),
		opened:      now,
		lastUsed:    now,
	}
	sess.listen()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("session opened", slog.String("session", id), slog.String("path", path), slog.Int("blocks", len(ed.Blocks())))
	s.pub.Publish(sse.Event{Type: "session.opened", Session: id, Data: map[string]string{"id": id, "path": path}})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// listen forwards editor events to the publisher and drives autosave.
// Debounced events arrive on timer goroutines, and with debounce off they
// arrive while the session lock is held, so autosave runs on its own
// goroutine.
func (sess *Session) listen() {
	for _, kind := range events.Kinds {
		sess.ed.On(kind, func(ev events.Event) {
			sess.svc.pub.Publish(sse.Event{
				Type:    "editor." + string(ev.Kind),
				Session: sess.id,
				Data:    ev.Payload,
			})
		})
	}
	if sess.svc.opts.Autosave {
		sess.ed.On(events.ContentChanged, func(events.Event) {
			go sess.autosave()
		})
	}
}

func (sess *Session) autosave() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed || sess.path == "" || !sess.dirty() {
		return
	}
	if _, err := sess.save(); err != nil {
		sess.svc.log.Warn("autosave failed",
			slog.String("session", sess.id),
			slog.String("path", sess.path),
			slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrConflict) {
			sess.svc.pub.Publish(sse.Event{Type: "session.conflict", Session: sess.id, Data: map[string]string{"path": sess.path}})
		}
	}
}

func (s *Service) session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	return sess, nil
}

// do runs fn under the session lock and returns the resulting snapshot.
func (s *Service) do(id string, fn func(sess *Session) error) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, apperr.ErrSessionNotFound
	}
	sess.lastUsed = time.Now()
	if err := fn(sess); err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(_ context.Context, id string) (*Snapshot, error) {
	return s.do(id, func(*Session) error { return nil })
}

// Type delivers text one key at a time; "\n" is Enter.
func (s *Service) Type(_ context.Context, id, text string) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		sess.ed.Type(text)
		return nil
	})
}

// Keys delivers keydowns in order.
func (s *Service) Keys(_ context.Context, id string, keys []Key) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		for _, k := range keys {
			if k.Key == "" {
				return fmt.Errorf("docservice: empty key: %w", apperr.ErrInvalidInput)
			}
			sess.ed.KeyDown(&block.KeyEvent{Key: k.Key, Shift: k.Shift, Ctrl: k.Ctrl, Meta: k.Meta, Alt: k.Alt})
		}
		return nil
	})
}

// Select sets a text selection. Out-of-range blocks are rejected.
func (s *Service) Select(_ context.Context, id string, r Range) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if !sess.ed.SelectText(r.StartBlock, r.StartOffset, r.EndBlock, r.EndOffset) {
			return fmt.Errorf("docservice: selection %+v: %w", r, apperr.ErrInvalidInput)
		}
		sess.ed.UpdateToolbarButtonStates()
		return nil
	})
}

// SelectBlocks selects whole blocks from..to.
func (s *Service) SelectBlocks(_ context.Context, id string, from, to int) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if !sess.ed.SelectBlocks(from, to) {
			return fmt.Errorf("docservice: blocks %d..%d: %w", from, to, apperr.ErrInvalidInput)
		}
		sess.ed.UpdateToolbarButtonStates()
		return nil
	})
}

// SelectAll selects the whole document.
func (s *Service) SelectAll(_ context.Context, id string) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		sess.ed.SelectAll()
		sess.ed.UpdateToolbarButtonStates()
		return nil
	})
}

// Paste inserts clipboard content at the cursor.
func (s *Service) Paste(_ context.Context, id string, c editor.Clipboard) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		sess.ed.Paste(c)
		return nil
	})
}

// Toolbar clicks a toolbar button. A disabled or unknown action is
// rejected with ErrInvalidInput.
func (s *Service) Toolbar(_ context.Context, id, action string) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if !knownAction(action) {
			return fmt.Errorf("docservice: unknown action %q: %w", action, apperr.ErrInvalidInput)
		}
		if sess.ed.ButtonDisabled(action) {
			return fmt.Errorf("docservice: action %q disabled here: %w", action, apperr.ErrInvalidInput)
		}
		sess.ed.Click(action)
		return nil
	})
}

// Convert turns the current block into t, creating a block when none is
// current.
func (s *Service) Convert(_ context.Context, id string, t block.Type) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if !sess.ed.Registry().Has(t) {
			return fmt.Errorf("docservice: unknown block type %q: %w", t, apperr.ErrInvalidInput)
		}
		sess.ed.ConvertCurrentBlockOrCreate(t)
		return nil
	})
}

// InsertImage adds an image block after the current block.
func (s *Service) InsertImage(_ context.Context, id, src, alt string) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("docservice: image src required: %w", apperr.ErrInvalidInput)
		}
		sess.ed.InsertImage(src, alt)
		return nil
	})
}

// ToggleTask flips one task item.
func (s *Service) ToggleTask(_ context.Context, id string, blockIndex, item int) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		if !sess.ed.ToggleTask(blockIndex, item) {
			return fmt.Errorf("docservice: task %d/%d: %w", blockIndex, item, apperr.ErrInvalidInput)
		}
		return nil
	})
}

// Replace loads new content into the session in the given format.
func (s *Service) Replace(_ context.Context, id, text string, f parser.Format) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		switch f {
		case parser.FormatMarkdown:
			sess.ed.SetMarkdown(text)
		case parser.FormatHTML:
			sess.ed.SetHTML(text)
		default:
			return fmt.Errorf("docservice: format %q: %w", f, apperr.ErrInvalidInput)
		}
		return nil
	})
}

// Save writes the session back to its document. The write fails with
// ErrConflict when the file changed since the session last read or wrote it.
func (s *Service) Save(_ context.Context, id string) (*Snapshot, error) {
	return s.do(id, func(sess *Session) error {
		_, err := sess.save()
		return err
	})
}

// save runs under the session lock.
func (sess *Session) save() (*DocumentDetail, error) {
	s := sess.svc
	if sess.path == "" {
		return nil, fmt.Errorf("docservice: scratch session has no path: %w", apperr.ErrInvalidPath)
	}
	body := sess.ed.GetMarkdown()
	content := body
	if content != "" {
		content += "\n"
	}
	data, err := parser.JoinFrontmatter(sess.frontmatter, content)
	if err != nil {
		return nil, fmt.Errorf("docservice: frontmatter: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	current, err := s.store.Read(sess.path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil, apperr.ErrConflict
	case err != nil:
		return nil, err
	case !checksum.Matches(current, sess.base):
		return nil, apperr.ErrConflict
	}
	if err := s.write(sess.path, data, index.ChangeUpdated); err != nil {
		return nil, err
	}
	sess.base = checksum.Sum(data)
	sess.saved = body
	s.pub.Publish(sse.Event{Type: "session.saved", Session: sess.id, Data: map[string]string{"path": sess.path, "checksum": sess.base}})
	return buildDetail(sess.path, data, time.Now())
}

// CloseSession discards a session without saving.
func (s *Service) CloseSession(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return apperr.ErrSessionNotFound
	}
	sess.close()
	s.log.Info("session closed", slog.String("session", id), slog.String("path", sess.path))
	s.pub.Publish(sse.Event{Type: "session.closed", Session: id, Data: map[string]string{"id": id}})
	return nil
}

// Sessions lists open sessions ordered by open time.
func (s *Service) Sessions(_ context.Context) []SessionInfo {
	s.mu.Lock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.Unlock()

	out := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		sess.mu.Lock()
		out = append(out, SessionInfo{ID: sess.id, Path: sess.path, Opened: sess.opened, LastUsed: sess.lastUsed})
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opened.Before(out[j].Opened) })
	return out
}

// Run closes idle sessions until ctx is cancelled, then closes the rest.
func (s *Service) Run(ctx context.Context) error {
	interval := s.opts.SessionTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case now := <-ticker.C:
			if s.opts.SessionTTL > 0 {
				s.reap(now.Add(-s.opts.SessionTTL))
			}
		}
	}
}

func (s *Service) reap(cutoff time.Time) {
	for _, info := range s.Sessions(context.Background()) {
		if info.LastUsed.Before(cutoff) {
			s.log.Info("session expired", slog.String("session", info.ID))
			_ = s.CloseSession(context.Background(), info.ID)
		}
	}
}

func (s *Service) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
}

func (sess *Session) close() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	sess.closed = true
	sess.ed.Close()
}

func (sess *Session) rename(from, to string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.path == from {
		sess.path = to
	}
}

func (sess *Session) dirty() bool {
	return sess.ed.GetMarkdown() != sess.saved
}

// snapshot runs under the session lock.
func (sess *Session) snapshot() *Snapshot {
	ed := sess.ed
	blk, off := ed.Caret()
	snap := &Snapshot{
		ID:       sess.id,
		Path:     sess.path,
		Markdown: ed.GetMarkdown(),
		HTML:     ed.GetHTML(),
		Blocks:   nonNilSlice(ed.GetBlocks()),
		Caret:    Caret{Block: blk, Offset: off},
		Checksum: sess.base,
	}
	snap.Dirty = snap.Markdown != sess.saved
	if el := ed.CurrentBlock(); el != nil {
		snap.Current = string(block.TypeOf(el))
	}
	if ed.Toolbar() != nil {
		snap.Toolbar = make(map[string]bool)
		for _, a := range block.Actions() {
			snap.Toolbar[a] = !ed.ButtonDisabled(a)
		}
	}
	return snap
}

func knownAction(action string) bool {
	for _, a := range block.Actions() {
		if a == action {
			return true
		}
	}
	return false
}
