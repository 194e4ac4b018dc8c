//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the documents table doubles as the search source.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search matches query as a substring of titles and bodies.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(`
		SELECT path, title, body
		FROM documents
		WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY (title LIKE ? ESCAPE '\') DESC, updated_at DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := make([]SearchResult, 0)
	for rows.Next() {
		var r SearchResult
		var body string
		if err := rows.Scan(&r.Path, &r.Title, &body); err != nil {
			return nil, err
		}
		r.Snippet = snippet(body, query, 64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// snippet returns up to width runes of body on each side of the first
// case-insensitive match of query, with the match wrapped in <b> tags.
func snippet(body, query string, width int) string {
	r := []rune(body)
	lower := []rune(strings.ToLower(body))
	if len(lower) != len(r) {
		lower = r
	}
	q := []rune(strings.ToLower(query))
	at := -1
	for i := 0; i+len(q) <= len(lower); i++ {
		if string(lower[i:i+len(q)]) == string(q) {
			at = i
			break
		}
	}
	if at < 0 {
		if len(r) > 2*width {
			return string(r[:2*width]) + "..."
		}
		return body
	}
	from, to := max(at-width, 0), min(at+len(q)+width, len(r))
	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(r[from:at]))
	b.WriteString("<b>")
	b.WriteString(string(r[at : at+len(q)]))
	b.WriteString("</b>")
	b.WriteString(string(r[at+len(q) : to]))
	if to < len(r) {
		b.WriteString("...")
	}
	return b.String()
}
