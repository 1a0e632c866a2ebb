package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Guilhermevang/up2sat/internal/logging"
)

func blockUntilCancelled(started *atomic.Int32) Task {
	return func(ctx context.Context) {
		started.Add(1)
		<-ctx.Done()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRegistryStartStop(t *testing.T) {
	journal := logging.NewJournal()
	reg := NewRegistry(nil, journal)

	var started atomic.Int32
	if err := reg.Start("x", blockUntilCancelled(&started)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return started.Load() == 1 })

	if !reg.Running("x") {
		t.Fatalf("Running(x) = false after Start")
	}

	if err := reg.Stop("x"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if reg.Running("x") {
		t.Fatalf("Running(x) = true after Stop")
	}

	entries := journal.Entries()
	if len(entries) != 2 {
		t.Fatalf("journal entries = %v, want 2", entries)
	}
	if !strings.Contains(entries[0], "New thread created and started. Thread name: x") {
		t.Fatalf("unexpected start entry %q", entries[0])
	}
	if !strings.Contains(entries[1], "Thread deleted. Thread name: x") {
		t.Fatalf("unexpected stop entry %q", entries[1])
	}
}

func TestRegistryDuplicateStartSpawnsOnce(t *testing.T) {
	journal := logging.NewJournal()
	reg := NewRegistry(nil, journal)
	defer func() { _ = reg.Stop("x") }()

	var started atomic.Int32
	if err := reg.Start("x", blockUntilCancelled(&started)); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := reg.Start("x", blockUntilCancelled(&started))
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start error = %v, want ErrAlreadyRunning", err)
	}

	waitFor(t, func() bool { return started.Load() >= 1 })
	// give a stray goroutine a chance to show up
	time.Sleep(10 * time.Millisecond)
	if got := started.Load(); got != 1 {
		t.Fatalf("live workers = %d, want 1", got)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "x" {
		t.Fatalf("Names() = %v, want [x]", names)
	}

	last := journal.Entries()[journal.Len()-1]
	if !strings.Contains(last, "already running") {
		t.Fatalf("last journal entry = %q, want already running", last)
	}
}

func TestRegistryStopUnknownIsNoop(t *testing.T) {
	journal := logging.NewJournal()
	reg := NewRegistry(nil, journal)

	err := reg.Stop("x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stop error = %v, want ErrNotFound", err)
	}
	if entries := journal.Entries(); len(entries) != 1 || entries[0] != "> No threads found" {
		t.Fatalf("journal = %v, want [> No threads found]", entries)
	}
}

func TestRegistryStopBlocksUntilExit(t *testing.T) {
	reg := NewRegistry(nil, nil)

	var exited atomic.Bool
	err := reg.Start("slow", func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		exited.Store(true)
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := reg.Stop("slow"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !exited.Load() {
		t.Fatalf("Stop returned before the task exited")
	}
}

func TestRegistryRestartAfterStop(t *testing.T) {
	reg := NewRegistry(nil, nil)
	var started atomic.Int32

	for i := 0; i < 3; i++ {
		if err := reg.Start("x", blockUntilCancelled(&started)); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
		if err := reg.Stop("x"); err != nil {
			t.Fatalf("Stop #%d: %v", i, err)
		}
	}
	if got := started.Load(); got != 3 {
		t.Fatalf("started = %d, want 3", got)
	}
}

func TestRegistrySelfExitingTaskIsRemoved(t *testing.T) {
	reg := NewRegistry(nil, nil)

	if err := reg.Start("once", func(context.Context) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return !reg.Running("once") })

	if err := reg.Start("once", func(context.Context) {}); err != nil {
		t.Fatalf("Start after self exit: %v", err)
	}
}

func TestRegistryInvalidTask(t *testing.T) {
	reg := NewRegistry(nil, nil)

	if err := reg.Start("", func(context.Context) {}); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("empty name error = %v, want ErrInvalidTask", err)
	}
	if err := reg.Start("x", nil); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("nil task error = %v, want ErrInvalidTask", err)
	}
}

func TestRegistryDistinctNamesConcurrently(t *testing.T) {
	reg := NewRegistry(nil, nil)
	var started atomic.Int32

	names := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if err := reg.Start(n, blockUntilCancelled(&started)); err != nil {
				t.Errorf("Start %s: %v", n, err)
			}
		}(name)
	}
	wg.Wait()

	if got := len(reg.Names()); got != len(names) {
		t.Fatalf("Names() len = %d, want %d", got, len(names))
	}
	for _, name := range names {
		if err := reg.Stop(name); err != nil {
			t.Fatalf("Stop %s: %v", name, err)
		}
	}
	if got := len(reg.Names()); got != 0 {
		t.Fatalf("Names() after Stop = %d, want 0", got)
	}
}
