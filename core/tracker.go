package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guilhermevang/up2sat/catalog"
	"github.com/Guilhermevang/up2sat/internal/logging"
	"github.com/Guilhermevang/up2sat/internal/tasks"
	"github.com/Guilhermevang/up2sat/model"
	"github.com/Guilhermevang/up2sat/store"
	"github.com/Guilhermevang/up2sat/timectrl"
)

// UpdatePositionTask is the registry name of the tracking goroutine.
const UpdatePositionTask = "update_position"

var (
	// ErrNoSatellite indicates no satellite has been resolved yet.
	ErrNoSatellite = errors.New("no satellite resolved")
	// ErrMissingSatelliteID indicates ResolveSatellite was called without a name.
	ErrMissingSatelliteID = errors.New("satellite ID is not specified")
)

// Resolver looks up a TLE by satellite name across catalog sources.
// *catalog.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, target string, sources ...catalog.Source) (model.TLE, error)
}

// MetricsRecorder receives tracker events. *observability.Collector
// satisfies it.
type MetricsRecorder interface {
	ObserveResolution(found bool)
	ObserveCycle(d time.Duration, err error)
	SetTracking(active bool)
}

// Settings are the tracker's fallback values. SetLocation and StartTracking
// update them so omitted arguments reuse whatever was last supplied.
type Settings struct {
	Latitude    float64       // degrees
	Longitude   float64       // degrees
	Elevation   int           // metres
	Interval    time.Duration // tracking cycle period
	Destination string        // default TLE artifact name
}

// DefaultSettings returns the built-in observer location and cadence.
func DefaultSettings() Settings {
	return Settings{
		Latitude:    -24.0443,
		Longitude:   -52.3775,
		Elevation:   618,
		Interval:    time.Second,
		Destination: "tle.txt",
	}
}

// Tracker resolves one satellite at a time and keeps its position current
// from a background goroutine. All mutable state lives on the Tracker; use
// one Tracker per tracked satellite.
type Tracker struct {
	// mu serialises every read and write of sat (including its orbital
	// state) and orbit.
	mu    sync.Mutex
	sat   *model.Satellite
	orbit OrbitModel

	// observer is swapped wholesale by SetLocation and read by the worker
	// without mu; concurrent updates are last-write-wins.
	observer atomic.Pointer[model.Observer]

	// tracking is the cooperative run flag observed by the worker at the top
	// of each cycle.
	tracking atomic.Bool

	settingsMu sync.Mutex
	settings   Settings

	resolver Resolver
	sources  []catalog.Source
	store    store.Store
	newOrbit OrbitFactory
	clock    timectrl.Clock
	tasks    *tasks.Registry

	log     logging.Logger
	journal *logging.Journal
	metrics MetricsRecorder
}

// TrackerOption customises Tracker construction.
type TrackerOption func(*Tracker)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) TrackerOption {
	return func(t *Tracker) { t.log = logging.OrNoop(l) }
}

// WithJournal shares an existing diagnostic journal.
func WithJournal(j *logging.Journal) TrackerOption {
	return func(t *Tracker) {
		if j != nil {
			t.journal = j
		}
	}
}

// WithStore persists every resolved TLE to s.
func WithStore(s store.Store) TrackerOption {
	return func(t *Tracker) { t.store = s }
}

// WithOrbitFactory replaces the SGP4 orbit model.
func WithOrbitFactory(f OrbitFactory) TrackerOption {
	return func(t *Tracker) {
		if f != nil {
			t.newOrbit = f
		}
	}
}

// WithClock sets the time source for observer epochs, computation instants
// and the cycle wait.
func WithClock(c timectrl.Clock) TrackerOption {
	return func(t *Tracker) { t.clock = timectrl.OrSystem(c) }
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithSources overrides the catalog search order.
func WithSources(sources ...catalog.Source) TrackerOption {
	return func(t *Tracker) {
		if len(sources) > 0 {
			t.sources = append([]catalog.Source(nil), sources...)
		}
	}
}

// WithSettings overrides the built-in defaults.
func WithSettings(s Settings) TrackerOption {
	return func(t *Tracker) { t.settings = s }
}

// NewTracker constructs an idle tracker. The observer starts at the default
// location until SetLocation is called.
func NewTracker(resolver Resolver, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		settings: DefaultSettings(),
		resolver: resolver,
		sources:  catalog.DefaultSources(),
		newOrbit: NewSGP4Orbit,
		clock:    timectrl.System(),
		log:      logging.Noop(),
		journal:  logging.NewJournal(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.tasks = tasks.NewRegistry(t.log, t.journal)
	t.observer.Store(&model.Observer{
		Latitude:  t.settings.Latitude,
		Longitude: t.settings.Longitude,
		Elevation: t.settings.Elevation,
		Epoch:     t.clock.Now(),
	})
	return t
}

// LocationOption sets one observer field in SetLocation.
type LocationOption func(*location)

type location struct {
	lat, lon float64
	ele      int
}

// Latitude sets the observer latitude in degrees.
func Latitude(deg float64) LocationOption { return func(l *location) { l.lat = deg } }

// Longitude sets the observer longitude in degrees.
func Longitude(deg float64) LocationOption { return func(l *location) { l.lon = deg } }

// Elevation sets the observer elevation in metres.
func Elevation(m int) LocationOption { return func(l *location) { l.ele = m } }

// SetLocation replaces the observer. Fields not given keep their last used
// value, which start at the built-in defaults. The epoch is reset to now.
func (t *Tracker) SetLocation(opts ...LocationOption) model.Observer {
	t.settingsMu.Lock()
	loc := location{lat: t.settings.Latitude, lon: t.settings.Longitude, ele: t.settings.Elevation}
	for _, opt := range opts {
		if opt != nil {
			opt(&loc)
		}
	}
	t.settings.Latitude, t.settings.Longitude, t.settings.Elevation = loc.lat, loc.lon, loc.ele

	obs := &model.Observer{
		Latitude:  loc.lat,
		Longitude: loc.lon,
		Elevation: loc.ele,
		Epoch:     t.clock.Now(),
	}
	t.observer.Store(obs)
	t.settingsMu.Unlock()

	t.journal.Append("Observer location set")
	t.log.Info(context.Background(), "observer location set",
		logging.Float64("lat", obs.Latitude),
		logging.Float64("lon", obs.Longitude),
		logging.Int("ele", obs.Elevation),
	)
	return *obs
}

// Observer returns the current observer.
func (t *Tracker) Observer() model.Observer {
	return *t.observer.Load()
}

// Settings returns a copy of the current fallback values.
func (t *Tracker) Settings() Settings {
	t.settingsMu.Lock()
	defer t.settingsMu.Unlock()
	return t.settings
}

// ResolveSatellite looks satID up in the configured catalogs, persists the
// record under destination (the default destination when empty) and makes
// it the tracked satellite. When the lookup fails the current satellite is
// left untouched.
//
// Stop tracking before resolving a different satellite; swapping the
// satellite under a running worker is safe but the worker keeps its
// interval.
func (t *Tracker) ResolveSatellite(ctx context.Context, satID, destination string) error {
	if satID == "" {
		t.journal.Append("Error: satellite ID is not specified")
		t.log.Error(ctx, "resolve called without satellite id")
		return ErrMissingSatelliteID
	}

	tle, err := t.resolver.Resolve(ctx, satID, t.sources...)
	if err != nil {
		t.recordResolution(false)
		if errors.Is(err, catalog.ErrNotFound) {
			t.journal.Append("Error: satellite not found")
		} else {
			t.journal.Append(fmt.Sprintf("Error: %v", err))
		}
		t.log.Error(ctx, "satellite not resolved", logging.String("satellite", satID), logging.Err(err))
		return fmt.Errorf("resolve satellite %q: %w", satID, err)
	}

	if destination == "" {
		destination = t.Settings().Destination
	}
	t.persist(ctx, destination, tle)

	orbit, err := t.newOrbit(tle)
	if err != nil {
		t.recordResolution(false)
		t.journal.Append(fmt.Sprintf("Error: %v", err))
		t.log.Error(ctx, "could not build orbit model", logging.String("satellite", satID), logging.Err(err))
		return fmt.Errorf("bind satellite %q: %w", satID, err)
	}

	t.mu.Lock()
	t.sat = &model.Satellite{ID: satID, TLE: tle}
	t.orbit = orbit
	t.mu.Unlock()

	t.recordResolution(true)
	t.journal.Append("Satellite saved")
	t.log.Info(ctx, "satellite saved",
		logging.String("satellite", satID),
		logging.String("destination", destination),
	)
	return nil
}

func (t *Tracker) persist(ctx context.Context, destination string, tle model.TLE) {
	if t.store == nil {
		return
	}
	if err := t.store.WriteTLE(ctx, destination, tle); err != nil {
		t.journal.Append(fmt.Sprintf("Error: could not save TLE to %s", destination))
		t.log.Warn(ctx, "failed to persist TLE",
			logging.String("destination", destination),
			logging.Err(err),
		)
	}
}

// Satellite returns a copy of the tracked satellite, including its latest
// state, and whether one has been resolved.
func (t *Tracker) Satellite() (model.Satellite, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sat == nil {
		return model.Satellite{}, false
	}
	return *t.sat, true
}

// StartTracking starts the background worker that recomputes the satellite
// position every interval. A non-positive interval reuses the last one
// (initially one second). It returns false, without starting anything or
// changing the stored interval, when tracking is already running.
func (t *Tracker) StartTracking(interval time.Duration) bool {
	ctx := context.Background()

	if interval <= 0 {
		interval = t.Settings().Interval
	}
	if interval <= 0 {
		interval = time.Second
	}

	t.tracking.Store(true)
	if err := t.tasks.Start(UpdatePositionTask, func(ctx context.Context) {
		t.updatePosition(ctx, interval)
	}); err != nil {
		t.log.Info(ctx, "tracking already running", logging.Err(err))
		return false
	}

	// only a started worker sets the pace ShowPosition follows
	t.settingsMu.Lock()
	t.settings.Interval = interval
	t.settingsMu.Unlock()

	if t.metrics != nil {
		t.metrics.SetTracking(true)
	}
	t.journal.Append("Tracking")
	t.log.Info(ctx, "tracking started", logging.Duration("interval", interval))
	return true
}

// StopTracking stops the worker, blocking until it has exited, and clears
// the run flag. It returns false when no worker was running.
func (t *Tracker) StopTracking() bool {
	ctx := context.Background()

	// cancel before clearing the flag so the worker cannot deregister
	// itself ahead of Stop
	err := t.tasks.Stop(UpdatePositionTask)
	t.tracking.Store(false)
	if err != nil {
		t.log.Info(ctx, "tracking not running", logging.Err(err))
		return false
	}

	if t.metrics != nil {
		t.metrics.SetTracking(false)
	}
	t.journal.Append("Tracking stopped")
	t.log.Info(ctx, "tracking stopped")
	return true
}

// Tracking reports whether the run flag is set.
func (t *Tracker) Tracking() bool {
	return t.tracking.Load()
}

func (t *Tracker) updatePosition(ctx context.Context, interval time.Duration) {
	for t.tracking.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t.step(ctx)

		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(interval):
		}
	}
}

// step runs one computation cycle. Failures are logged and the cycle is
// skipped; they never stop the worker.
func (t *Tracker) step(ctx context.Context) {
	start := time.Now()
	err := t.compute()
	if t.metrics != nil {
		t.metrics.ObserveCycle(time.Since(start), err)
	}
	if err != nil {
		t.journal.Append(fmt.Sprintf("Error: %v", err))
		t.log.Warn(ctx, "tracking cycle skipped", logging.Err(err))
	}
}

func (t *Tracker) compute() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sat == nil || t.orbit == nil {
		return fmt.Errorf("%w: %w", ErrCompute, ErrNoSatellite)
	}

	now := t.clock.Now()
	pos, err := t.orbit.Compute(*t.observer.Load(), now)
	if err != nil {
		return err
	}
	t.sat.State = pos
	t.sat.ComputedAt = now
	return nil
}

// CurrentPosition returns a consistent snapshot of the latest computed
// state, in degrees when convert is true and radians otherwise. It returns
// ErrNoSatellite before any successful ResolveSatellite.
func (t *Tracker) CurrentPosition(convert bool) (model.Position, error) {
	t.mu.Lock()
	if t.sat == nil {
		t.mu.Unlock()
		return model.Position{}, ErrNoSatellite
	}
	pos := t.sat.State
	t.mu.Unlock()

	if convert {
		return pos.Degrees(), nil
	}
	return pos, nil
}

// ShowPosition writes the sub-satellite point to w once per interval while
// tracking is active. It returns when tracking stops or ctx is done.
func (t *Tracker) ShowPosition(ctx context.Context, w io.Writer, convert bool) error {
	for t.tracking.Load() {
		sat, ok := t.Satellite()
		if !ok {
			return ErrNoSatellite
		}
		pos := sat.State
		if convert {
			pos = pos.Degrees()
		}
		if _, err := fmt.Fprintf(w, "%s > [LAT]: %v, [LON]: %v\n", sat.ID, pos.Latitude, pos.Longitude); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.Settings().Interval):
		}
	}
	return nil
}

// Logs returns the diagnostic journal in insertion order.
func (t *Tracker) Logs() []string {
	return t.journal.Entries()
}

func (t *Tracker) recordResolution(found bool) {
	if t.metrics != nil {
		t.metrics.ObserveResolution(found)
	}
}
