package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Guilhermevang/up2sat/model"
)

// FileStore writes each TLE to Dir/destination as three lines: the
// satellite name followed by both element lines.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir. An empty dir means the
// working directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(destination string) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("empty destination")
	}
	clean := filepath.Clean(destination)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("destination %q escapes store directory", destination)
	}
	return filepath.Join(s.Dir, clean), nil
}

// WriteTLE implements Store.
func (s *FileStore) WriteTLE(_ context.Context, destination string, tle model.TLE) error {
	path, err := s.path(destination)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(tle.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Latest reads back the record stored under destination.
func (s *FileStore) Latest(_ context.Context, destination string) (model.TLE, error) {
	path, err := s.path(destination)
	if err != nil {
		return model.TLE{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.TLE{}, ErrNotFound
	}
	if err != nil {
		return model.TLE{}, fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return model.TLE{}, fmt.Errorf("%s: expected 3 lines, got %d", path, len(lines))
	}
	return model.NewTLE(strings.TrimSpace(lines[0]), lines[1], lines[2]), nil
}
