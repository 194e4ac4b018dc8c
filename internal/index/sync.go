package index

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/inline"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/storage"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
	Bytes     uint64
}

// Sync brings the index in line with the vault: changed documents are
// parsed and upserted, documents missing from disk are dropped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats
	started := time.Now()

	metas, err := store.List("")
	if err != nil {
		return st, fmt.Errorf("index: sync list: %w", err)
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return st, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			st.Unchanged++
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			st.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, m.Path, data); err != nil {
			st.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		st.Indexed++
		st.Bytes += uint64(len(data))
		logger.Debug("sync: indexed", slog.String("path", m.Path), slog.String("size", humanize.Bytes(uint64(len(data)))))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			st.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		st.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("indexed", st.Indexed),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("removed", st.Removed),
		slog.Int("failed", st.Failed),
		slog.String("read", humanize.Bytes(st.Bytes)),
		slog.String("took", time.Since(started).Round(time.Millisecond).String()))
	return st, nil
}

// IndexFile parses a document and replaces its index entry.
func IndexFile(db *DB, path string, data []byte) (*DocumentRow, error) {
	doc, err := parser.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("index: parse %s: %w", path, err)
	}
	rows := BlockRows(doc.Blocks)
	row := DocumentRow{
		Path:       path,
		Title:      doc.Title,
		Checksum:   checksum.Sum(data),
		BlockCount: len(rows),
		Size:       int64(len(data)),
		UpdatedAt:  time.Now(),
	}
	if err := db.UpsertDocument(row, searchBody(rows), rows); err != nil {
		return nil, err
	}
	return &row, nil
}

// BlockRows flattens blocks into index rows holding plain text. Code keeps
// its source verbatim.
func BlockRows(blocks []*block.Block) []models.BlockRow {
	out := make([]models.BlockRow, 0, len(blocks))
	for i, b := range blocks {
		content := b.Content
		if b.Type != block.Code {
			content = inline.Plain(content)
		}
		out = append(out, models.BlockRow{Position: i, Type: string(b.Type), Content: content})
	}
	return out
}

func searchBody(rows []models.BlockRow) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Content) != "" {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, "\n")
}
