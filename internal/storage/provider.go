// Package storage defines the document vault abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/berkana/internal/models"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every document under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Stat returns metadata for one document.
	Stat(path string) (models.DocumentMetadata, error)
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	Delete(path string) error
	Move(oldPath, newPath string) error
}

// IsDocument reports whether name is a Markdown document the vault manages.
// Hidden files, including in-flight temp files, are not documents.
func IsDocument(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".md" || ext == ".markdown"
}
