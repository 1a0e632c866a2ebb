package logging

import (
	"fmt"
	"sync"
)

// Recorder accepts human-readable diagnostic lines.
type Recorder interface {
	Append(text string)
}

// Journal is an append-only, ordered sequence of diagnostic entries. Entries
// are never removed or reordered. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append adds text to the journal, prefixed with "> ".
func (j *Journal) Append(text string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, "> "+text)
	j.mu.Unlock()
}

// Appendf formats according to a format specifier and appends the result.
func (j *Journal) Appendf(format string, args ...any) {
	j.Append(fmt.Sprintf(format, args...))
}

// Entries returns a copy of all entries in insertion order.
func (j *Journal) Entries() []string {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of entries recorded so far.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

type noopRecorder struct{}

func (noopRecorder) Append(string) {}

// RecorderOrNoop returns r, or a recorder that discards entries when r is nil.
func RecorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
