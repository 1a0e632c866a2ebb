package logging

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestJournalAppendKeepsOrder(t *testing.T) {
	j := NewJournal()
	j.Append("first")
	j.Appendf("second %d", 2)

	got := j.Entries()
	want := []string{"> first", "> second 2"}
	if len(got) != len(want) {
		t.Fatalf("Entries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJournalEntriesIsACopy(t *testing.T) {
	j := NewJournal()
	j.Append("a")

	entries := j.Entries()
	entries[0] = "mutated"

	if got := j.Entries()[0]; got != "> a" {
		t.Fatalf("journal was mutated through Entries(): %q", got)
	}
}

func TestJournalConcurrentAppend(t *testing.T) {
	j := NewJournal()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				j.Append(fmt.Sprintf("%d-%d", n, k))
			}
		}(i)
	}
	wg.Wait()

	if got := j.Len(); got != 400 {
		t.Fatalf("Len() = %d, want 400", got)
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	j.Append("ignored")
	if j.Len() != 0 || j.Entries() != nil {
		t.Fatalf("nil journal should be empty")
	}
	RecorderOrNoop(nil).Append("ignored")
}

func TestLoggerWritesSessionID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithSessionID(context.Background(), "abc123")
	WithSession(ctx, base).Info(ctx, "hello", String("k", "v"), Err(nil))

	out := buf.String()
	for _, want := range []string{`"session_id":"abc123"`, `"msg":"hello"`, `"k":"v"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %s", out, want)
		}
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept")

	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output %q", out)
	}
}
