// Package docstore owns the raw uploaded document files. The vector index
// owns the derived chunks; removing a document's index entries before
// deleting its file is the caller's responsibility.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ragchat/internal/domain"
)

// FileStore keeps documents as UTF-8 .txt files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the uploads directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes content under filename, replacing any previous version.
func (s *FileStore) Save(filename, content string) error {
	if err := validFilename(filename); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", filename, err)
	}
	return nil
}

// Read returns the document content, or domain.ErrNotFound.
func (s *FileStore) Read(filename string) (string, error) {
	if err := validFilename(filename); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}
	return string(data), nil
}

// List returns the stored .txt filenames in sorted order.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the document file, or returns domain.ErrNotFound.
func (s *FileStore) Remove(filename string) error {
	if err := validFilename(filename); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("removing %s: %w", filename, err)
	}
	return nil
}

// validFilename rejects anything that could escape the uploads directory.
func validFilename(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if !strings.HasSuffix(filename, ".txt") {
		return fmt.Errorf("only .txt documents are supported, got %q", filename)
	}
	return nil
}
