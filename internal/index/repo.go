package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/models"
)

// DocumentRow is a row of the documents table.
type DocumentRow struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	Size       int64     `json:"size"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ListQuery pages and filters ListDocuments. BlockType keeps documents that
// contain at least one block of that type.
type ListQuery struct {
	Limit     int
	Offset    int
	BlockType string
	Sort      string
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

var sortColumns = map[string]string{
	"":           "updated_at DESC",
	"updated_at": "updated_at DESC",
	"title":      "title COLLATE NOCASE ASC",
	"path":       "path ASC",
	"blocks":     "block_count DESC",
}

// UpsertDocument replaces a document row, its blocks and its search entry in
// one transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, blocks []models.BlockRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, block_count, size, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			block_count = excluded.block_count,
			size        = excluded.size,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, len(blocks), d.Size, body, d.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM blocks WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO blocks (path, position, type, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range blocks {
			if _, err := stmt.Exec(d.Path, i, b.Type, b.Content); err != nil {
				return fmt.Errorf("index: insert block %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its blocks and search entry.
// Deleting an unknown path is not an error.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM blocks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum, or "" when the path is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one document row or apperr.ErrNotFound.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`
		SELECT path, title, checksum, block_count, size, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.Title, &d.Checksum, &d.BlockCount, &d.Size, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns one page of documents and the total matching count.
func (db *DB) ListDocuments(q ListQuery) ([]DocumentRow, int, error) {
	order, ok := sortColumns[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q: %w", q.Sort, apperr.ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := ""
	var args []any
	if q.BlockType != "" {
		where = `WHERE EXISTS (SELECT 1 FROM blocks b WHERE b.path = documents.path AND b.type = ?)`
		args = append(args, q.BlockType)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, checksum, block_count, size, updated_at
		FROM documents `+where+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := make([]DocumentRow, 0)
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.BlockCount, &d.Size, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// Blocks returns the indexed blocks of a document in order.
func (db *DB) Blocks(path string) ([]models.BlockRow, error) {
	rows, err := db.conn.Query(`SELECT position, type, content FROM blocks WHERE path = ? ORDER BY position`, path)
	if err != nil {
		return nil, fmt.Errorf("index: blocks: %w", err)
	}
	defer rows.Close()

	out := make([]models.BlockRow, 0)
	for rows.Next() {
		var b models.BlockRow
		if err := rows.Scan(&b.Position, &b.Type, &b.Content); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlockStats counts indexed blocks per type across the vault.
func (db *DB) BlockStats() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT type, count(*) FROM blocks GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("index: block stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
