package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Guilhermevang/up2sat/model"
)

var issTLE = model.TLE{
	SatelliteID: "ISS (ZARYA)",
	Line1:       "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990",
	Line2:       "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760",
}

func TestFileStoreWritesThreeLines(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "files"))

	if err := s.WriteTLE(context.Background(), "tle.txt", issTLE); err != nil {
		t.Fatalf("WriteTLE: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "files", "tle.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := issTLE.SatelliteID + "\n" + issTLE.Line1 + "\n" + issTLE.Line2
	if string(data) != want {
		t.Fatalf("file contents = %q, want %q", data, want)
	}

	got, err := s.Latest(context.Background(), "tle.txt")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != issTLE {
		t.Fatalf("Latest = %+v, want %+v", got, issTLE)
	}
}

func TestFileStoreRejectsEscapingDestination(t *testing.T) {
	s := NewFileStore(t.TempDir())
	for _, dest := range []string{"", "../outside.txt", "/etc/tle.txt"} {
		if err := s.WriteTLE(context.Background(), dest, issTLE); err == nil {
			t.Fatalf("WriteTLE(%q) should fail", dest)
		}
	}
}

func TestFileStoreLatestMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if _, err := s.Latest(context.Background(), "none.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Latest(ctx, "tle.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty store error = %v, want ErrNotFound", err)
	}
	if err := s.WriteTLE(ctx, "tle.txt", issTLE); err != nil {
		t.Fatalf("WriteTLE: %v", err)
	}
	got, err := s.Latest(ctx, "tle.txt")
	if err != nil || got != issTLE {
		t.Fatalf("Latest = %+v, %v", got, err)
	}
	if s.Writes() != 1 {
		t.Fatalf("Writes() = %d, want 1", s.Writes())
	}
}

func TestSQLStoreKeepsHistory(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "up2sat.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Latest(ctx, "tle.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty table error = %v, want ErrNotFound", err)
	}

	older := issTLE
	older.Line1 = "1 25544U 98067A   21270.00000000  .00000204  00000-0  10270-4 0  9991"
	if err := s.WriteTLE(ctx, "tle.txt", older); err != nil {
		t.Fatalf("WriteTLE older: %v", err)
	}
	if err := s.WriteTLE(ctx, "tle.txt", issTLE); err != nil {
		t.Fatalf("WriteTLE newer: %v", err)
	}

	got, err := s.Latest(ctx, "tle.txt")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != issTLE {
		t.Fatalf("Latest = %+v, want newest record", got)
	}

	history, err := s.History(ctx, issTLE.SatelliteID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Line1 != older.Line1 {
		t.Fatalf("History = %+v", history)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cases := []struct {
		cfg     Config
		wantErr bool
	}{
		{cfg: Config{Type: "", Dir: t.TempDir()}},
		{cfg: Config{Type: BackendMemory}},
		{cfg: Config{Type: BackendSQLite}},
		{cfg: Config{Type: "redis"}, wantErr: true},
	}
	for _, tc := range cases {
		s, err := Open(tc.cfg)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Open(%+v) should fail", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Open(%+v): %v", tc.cfg, err)
		}
		if err := s.WriteTLE(context.Background(), "tle.txt", issTLE); err != nil {
			t.Fatalf("%T.WriteTLE: %v", s, err)
		}
		r, ok := s.(Reader)
		if !ok {
			t.Fatalf("%T does not implement Reader", s)
		}
		if got, err := r.Latest(context.Background(), "tle.txt"); err != nil || got != issTLE {
			t.Fatalf("%T.Latest = %+v, %v", s, got, err)
		}
	}
}
