// Package store persists resolved TLE records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Guilhermevang/up2sat/model"
)

// ErrNotFound indicates no artifact exists for a destination.
var ErrNotFound = errors.New("tle artifact not found")

// Store writes a resolved TLE under a destination name. Writes are
// best-effort from the tracker's point of view: a failure is logged but does
// not undo the resolution.
type Store interface {
	WriteTLE(ctx context.Context, destination string, tle model.TLE) error
}

// Reader is implemented by stores that can return the last written record.
type Reader interface {
	Latest(ctx context.Context, destination string) (model.TLE, error)
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config selects and parameterises a backend.
type Config struct {
	Type       string // file (default), memory, sqlite
	Dir        string // file backend root directory
	SQLitePath string // sqlite database path; empty means in-memory
}

// Open builds the backend described by cfg.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", BackendFile:
		return NewFileStore(cfg.Dir), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
