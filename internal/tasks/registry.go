// Package tasks manages named background goroutines.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Guilhermevang/up2sat/internal/logging"
)

var (
	// ErrAlreadyRunning indicates a task with the same name is live.
	ErrAlreadyRunning = errors.New("task already running")
	// ErrNotFound indicates no task is registered under the name.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidTask indicates an empty name or a nil task function.
	ErrInvalidTask = errors.New("invalid task")
)

// Task is the body of a background worker. It must return promptly once ctx
// is cancelled; Stop blocks until it does.
type Task func(ctx context.Context)

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry is a thread-safe set of named, live tasks. A name is present
// exactly while its goroutine is running.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*handle

	log     logging.Logger
	journal logging.Recorder
}

// NewRegistry creates an empty registry. Nil log and journal are replaced
// with no-op implementations.
func NewRegistry(log logging.Logger, journal logging.Recorder) *Registry {
	return &Registry{
		tasks:   make(map[string]*handle),
		log:     logging.OrNoop(log),
		journal: logging.RecorderOrNoop(journal),
	}
}

// Start runs task in a new goroutine registered under name. If name is
// already registered nothing is spawned and ErrAlreadyRunning is returned.
func (r *Registry) Start(name string, task Task) error {
	ctx := context.Background()
	if name == "" || task == nil {
		r.journal.Append("Error: name or target not defined")
		r.log.Warn(ctx, "refusing to start task without name or body", logging.String("task", name))
		return ErrInvalidTask
	}

	r.mu.Lock()
	if _, exists := r.tasks[name]; exists {
		r.mu.Unlock()
		r.journal.Append(fmt.Sprintf("Thread is already running. Thread name: %s", name))
		r.log.Info(ctx, "task already running", logging.String("task", name))
		return fmt.Errorf("start %s: %w", name, ErrAlreadyRunning)
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	r.tasks[name] = h
	r.mu.Unlock()

	go func() {
		defer close(h.done)
		task(taskCtx)
		cancel()
		// a task that returns on its own is no longer live
		r.mu.Lock()
		if r.tasks[name] == h {
			delete(r.tasks, name)
		}
		r.mu.Unlock()
	}()

	r.journal.Append(fmt.Sprintf("New thread created and started. Thread name: %s", name))
	r.log.Debug(ctx, "task started", logging.String("task", name))
	return nil
}

// Stop signals the named task to exit, waits for its goroutine to return
// and removes it from the registry.
func (r *Registry) Stop(name string) error {
	ctx := context.Background()

	r.mu.Lock()
	h, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		r.journal.Append("No threads found")
		r.log.Info(ctx, "no task to stop", logging.String("task", name))
		return fmt.Errorf("stop %s: %w", name, ErrNotFound)
	}

	h.cancel()
	<-h.done

	r.mu.Lock()
	// only drop the entry we waited on
	if r.tasks[name] == h {
		delete(r.tasks, name)
	}
	r.mu.Unlock()

	r.journal.Append(fmt.Sprintf("Thread deleted. Thread name: %s", name))
	r.log.Debug(ctx, "task stopped", logging.String("task", name))
	return nil
}

// Running reports whether a task is registered under name.
func (r *Registry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	return ok
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
