package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/models"
)

const tempPattern = ".berkana-tmp-*"

// FS implements Provider on the local file system.
type FS struct {
	root string // absolute vault directory
}

// NewFS creates a provider rooted at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// resolve maps a vault-relative path to an absolute one, rejecting absolute
// inputs and anything that escapes the root.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrInvalidPath)
	}
	abs := filepath.Join(f.root, cleaned)
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %q escapes vault: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// document resolves rel and requires a document file name.
func (f *FS) document(rel string) (string, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return "", err
	}
	if abs == f.root || !IsDocument(abs) {
		return "", fmt.Errorf("storage: %q is not a markdown document: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

func (f *FS) metadata(abs string, info fs.FileInfo, data []byte) models.DocumentMetadata {
	rel, _ := filepath.Rel(f.root, abs)
	return models.DocumentMetadata{
		Path:      filepath.ToSlash(rel),
		Checksum:  checksum.Sum(data),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}
}

// List walks dir and returns metadata for every document. Hidden
// directories are skipped.
func (f *FS) List(dir string) ([]models.DocumentMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentMetadata, 0)
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDocument(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, f.metadata(p, info, data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Stat returns metadata for one document.
func (f *FS) Stat(path string) (models.DocumentMetadata, error) {
	abs, err := f.document(path)
	if err != nil {
		return models.DocumentMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("storage: stat %s: %w", path, notFound(err))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("storage: read %s: %w", path, notFound(err))
	}
	return f.metadata(abs, info, data), nil
}

// Read returns the raw bytes of a document.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.document(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, notFound(err))
	}
	return data, nil
}

// Write replaces a document through temp file, fsync and rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.document(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	name := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(name, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a document.
func (f *FS) Delete(path string) error {
	abs, err := f.document(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, notFound(err))
	}
	return nil
}

// Move renames a document, creating the target directory. An existing
// target is not overwritten.
func (f *FS) Move(oldPath, newPath string) error {
	from, err := f.document(oldPath)
	if err != nil {
		return err
	}
	to, err := f.document(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("storage: move to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("storage: move: %w", notFound(err))
	}
	return nil
}

// notFound adds apperr.ErrNotFound to a missing-file error while keeping
// os.ErrNotExist matchable.
func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Join(apperr.ErrNotFound, err)
	}
	return err
}
