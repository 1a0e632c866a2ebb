package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Guilhermevang/up2sat/internal/logging"
)

// fakeFetcher serves documents from a map and records the URL order.
type fakeFetcher struct {
	mu   sync.Mutex
	docs map[string]string
	errs map[string]error
	seen []string
}

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.docs[url], nil
}

type countingObserver struct {
	counts map[string]int
}

func (c *countingObserver) ObserveFetch(source, outcome string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[source+"/"+outcome]++
}

func testSources() []Source {
	return []Source{
		{Name: "agg", BaseURL: "mem://agg", Paths: []string{""}},
		{Name: "cat", BaseURL: "mem://cat/", Paths: []string{"a.txt", "b.txt", "c.txt"}},
	}
}

func TestResolveScenarioA(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"mem://agg": "ISS (ZARYA)\n1 25544U 98067A...\n2 25544  51.6400...\n",
	}}
	r := NewResolver(f)

	tle, err := r.Resolve(context.Background(), "ISS (ZARYA)", testSources()[0])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tle.SatelliteID != "ISS (ZARYA)" || tle.Line1 != "1 25544U 98067A..." || tle.Line2 != "2 25544  51.6400..." {
		t.Fatalf("Resolve = %+v", tle)
	}
}

func TestResolveFirstInTraversalOrderWins(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"mem://cat/b.txt": "SAT\n1 from-b\n2 from-b\n",
		"mem://cat/c.txt": "SAT\n1 from-c\n2 from-c\n",
	}}
	r := NewResolver(f)

	for i := 0; i < 3; i++ {
		tle, err := r.Resolve(context.Background(), "SAT", testSources()...)
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if tle.Line1 != "1 from-b" {
			t.Fatalf("Resolve #%d line1 = %q, want first match from b.txt", i, tle.Line1)
		}
	}

	// agg, a.txt, b.txt per call; c.txt is never reached
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, url := range f.seen {
		if url == "mem://cat/c.txt" {
			t.Fatalf("resolver kept searching after first match: %v", f.seen)
		}
	}
}

func TestResolveExhaustsEverySourceBeforeNotFound(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"mem://agg":       "OTHER\n1 x\n2 x\n",
		"mem://cat/a.txt": "ANOTHER\n1 y\n2 y\n",
	}}
	obs := &countingObserver{}
	r := NewResolver(f, WithFetchObserver(obs))

	_, err := r.Resolve(context.Background(), "MISSING", testSources()...)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve error = %v, want ErrNotFound", err)
	}

	want := []string{"mem://agg", "mem://cat/a.txt", "mem://cat/b.txt", "mem://cat/c.txt"}
	if len(f.seen) != len(want) {
		t.Fatalf("fetched %v, want %v", f.seen, want)
	}
	for i := range want {
		if f.seen[i] != want[i] {
			t.Fatalf("fetch %d = %q, want %q", i, f.seen[i], want[i])
		}
	}
	if obs.counts["agg/miss"] != 1 || obs.counts["cat/miss"] != 3 {
		t.Fatalf("observer counts = %v", obs.counts)
	}
}

func TestResolveContinuesPastFetchErrors(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]string{"mem://cat/c.txt": "SAT\n1 ok\n2 ok\n"},
		errs: map[string]error{
			"mem://agg":       errors.New("timeout"),
			"mem://cat/a.txt": errors.New("connection refused"),
		},
	}
	journal := logging.NewJournal()
	obs := &countingObserver{}
	r := NewResolver(f, WithJournal(journal), WithFetchObserver(obs))

	tle, err := r.Resolve(context.Background(), "SAT", testSources()...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tle.Line1 != "1 ok" {
		t.Fatalf("Line1 = %q, want 1 ok", tle.Line1)
	}

	entries := journal.Entries()
	if len(entries) != 3 {
		t.Fatalf("journal = %v, want two fetch errors and a found entry", entries)
	}
	if !strings.Contains(entries[0], "could not get data from mem://agg") {
		t.Fatalf("entry 0 = %q", entries[0])
	}
	if entries[2] != "> Found Satellite" {
		t.Fatalf("entry 2 = %q", entries[2])
	}
	if obs.counts["agg/error"] != 1 || obs.counts["cat/error"] != 1 || obs.counts["cat/match"] != 1 {
		t.Fatalf("observer counts = %v", obs.counts)
	}
}

func TestResolveEmptyTarget(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f)

	if _, err := r.Resolve(context.Background(), "", testSources()...); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Resolve error = %v, want ErrInvalidTarget", err)
	}
	if len(f.seen) != 0 {
		t.Fatalf("empty target should not fetch, fetched %v", f.seen)
	}
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	f := FetcherFunc(func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "", nil
	})
	r := NewResolver(f)

	_, err := r.Resolve(ctx, "SAT", testSources()...)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}
}

func TestDefaultSourcesOrder(t *testing.T) {
	srcs := DefaultSources()
	if len(srcs) != 2 {
		t.Fatalf("DefaultSources() len = %d, want 2", len(srcs))
	}
	if urls := srcs[0].URLs(); len(urls) != 1 || urls[0] != AMSATURL {
		t.Fatalf("aggregate URLs = %v", urls)
	}

	urls := srcs[1].URLs()
	if len(urls) != len(CelesTrakPaths) {
		t.Fatalf("celestrak URLs = %d, want %d", len(urls), len(CelesTrakPaths))
	}
	if urls[0] != CelesTrakURL+"stations.txt" || urls[len(urls)-1] != CelesTrakURL+"tle-new.txt" {
		t.Fatalf("celestrak order changed: first %q last %q", urls[0], urls[len(urls)-1])
	}

	// callers must not be able to edit the shared table
	srcs[1].Paths[0] = "mutated"
	if CelesTrak().Paths[0] != "stations.txt" {
		t.Fatalf("CelesTrak() shares its path slice")
	}
}

func TestSourceURLsWithoutPaths(t *testing.T) {
	s := Source{Name: "single", BaseURL: "http://example.invalid/all.txt"}
	if urls := s.URLs(); len(urls) != 1 || urls[0] != s.BaseURL {
		t.Fatalf("URLs() = %v", urls)
	}
}
