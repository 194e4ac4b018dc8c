//go:build !sqlite_fts5

package index

import "testing"

func TestSnippet(t *testing.T) {
	tests := []struct {
		name, body, query, want string
		width                   int
	}{
		{"middle", "the quick brown fox", "QUICK", "...he <b>quick</b> br...", 3},
		{"start", "quick fox", "quick", "<b>quick</b> fox", 10},
		{"no match short", "abc", "z", "abc", 10},
		{"no match long", "abcdefgh", "z", "abcd...", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.body, tt.query, tt.width); got != tt.want {
				t.Errorf("snippet = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch_LikeWildcardsAreLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Checksum: "a"}, "plain words", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "b.md", Checksum: "b"}, "100% sure", nil)

	results, err := db.Search("%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "b.md" {
		t.Errorf("results = %+v, want only b.md", results)
	}
}
