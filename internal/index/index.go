package index

import "github.com/starford/berkana/internal/models"

// DocumentIndex is the index surface the document service depends on.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, blocks []models.BlockRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(q ListQuery) ([]DocumentRow, int, error)
	Blocks(path string) ([]models.BlockRow, error)
	BlockStats() (map[string]int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
