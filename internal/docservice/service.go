// Package docservice coordinates the vault, the index and live editing
// sessions. Document writes are checked against the caller's checksum so
// that concurrent editors cannot silently overwrite each other.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/sse"
	"github.com/starford/berkana/internal/storage"
)

// Publisher receives document and editor events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(ev sse.Event)
	PublishDocumentEvent(kind, path string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event)                   {}
func (nopPublisher) PublishDocumentEvent(string, string) {}

// Options configures editing sessions.
type Options struct {
	Toolbar  bool
	Debug    bool
	Debounce time.Duration
	Throttle time.Duration
	// Autosave writes a session back to the vault on every content.changed.
	Autosave bool
	// SessionTTL closes sessions idle for longer. Zero keeps them open.
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Blocks      []*block.Block `json:"blocks"`
	Size        int64          `json:"size"`
	SizeHuman   string         `json:"size_human"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	Size       int64     `json:"size"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service coordinates storage, index and sessions.
type Service struct {
	store storage.Provider
	db    *index.DB
	pub   Publisher
	opts  Options
	log   *slog.Logger

	// writeMu makes each checksum check and the write that follows atomic.
	writeMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a document service. pub may be nil.
func NewService(store storage.Provider, db *index.DB, pub Publisher, opts Options) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		pub:      pub,
		opts:     opts,
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// GetDocument reads and parses a document.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.Stat(path)
	if err != nil {
		return nil, err
	}
	return buildDetail(path, data, meta.UpdatedAt)
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(_ context.Context, path string, content []byte) (*DocumentDetail, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err := s.write(path, content, index.ChangeCreated); err != nil {
		return nil, err
	}
	return buildDetail(path, content, time.Now())
}

// UpdateDocument replaces a document. A non-empty ifMatch must equal the
// checksum of the stored content.
func (s *Service) UpdateDocument(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(existing, ifMatch) {
		return nil, apperr.ErrConflict
	}
	if err := s.write(path, content, index.ChangeUpdated); err != nil {
		return nil, err
	}
	return buildDetail(path, content, time.Now())
}

// DeleteDocument removes a document from the vault and the index.
func (s *Service) DeleteDocument(_ context.Context, path string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(path); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(path); err != nil {
		return err
	}
	s.pub.PublishDocumentEvent(index.ChangeDeleted, path)
	return nil
}

// MoveDocument renames a document and re-keys its index entry.
func (s *Service) MoveDocument(_ context.Context, from, to string) (*DocumentDetail, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	data, err := s.store.Read(to)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(from); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, to, data); err != nil {
		return nil, err
	}
	s.pub.PublishDocumentEvent(index.ChangeDeleted, from)
	s.pub.PublishDocumentEvent(index.ChangeCreated, to)

	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.rename(from, to)
	}
	s.mu.Unlock()
	return buildDetail(to, data, time.Now())
}

// ListDocuments returns one page of indexed documents.
func (s *Service) ListDocuments(_ context.Context, q index.ListQuery) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:       r.Path,
			Title:      r.Title,
			Checksum:   r.Checksum,
			BlockCount: r.BlockCount,
			Size:       r.Size,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Blocks returns the indexed blocks of a document.
func (s *Service) Blocks(_ context.Context, path string) ([]models.BlockRow, error) {
	if _, err := s.db.GetDocument(path); err != nil {
		return nil, err
	}
	return s.db.Blocks(path)
}

// BlockStats counts indexed blocks per type.
func (s *Service) BlockStats(_ context.Context) (map[string]int, error) {
	return s.db.BlockStats()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// write stores content, indexes it and announces the change. The caller
// holds writeMu.
func (s *Service) write(path string, content []byte, kind string) error {
	if err := s.store.Write(path, content); err != nil {
		return err
	}
	row, err := index.IndexFile(s.db, path, content)
	if err != nil {
		return err
	}
	s.log.Debug("document written",
		slog.String("path", path),
		slog.String("op", kind),
		slog.Int("blocks", row.BlockCount),
		slog.String("size", humanize.Bytes(uint64(len(content)))))
	s.pub.PublishDocumentEvent(kind, path)
	return nil
}

func buildDetail(path string, data []byte, updated time.Time) (*DocumentDetail, error) {
	doc, err := parser.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("docservice: parse %s: %w", path, err)
	}
	return &DocumentDetail{
		Path:        path,
		Title:       doc.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: doc.Frontmatter,
		Blocks:      nonNilSlice(doc.Blocks),
		Size:        int64(len(data)),
		SizeHuman:   humanize.Bytes(uint64(len(data))),
		UpdatedAt:   updated,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
