// Command up2sat resolves a satellite's TLE by name and prints its
// sub-satellite point until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Guilhermevang/up2sat/catalog"
	"github.com/Guilhermevang/up2sat/core"
	"github.com/Guilhermevang/up2sat/internal/config"
	"github.com/Guilhermevang/up2sat/internal/logging"
	"github.com/Guilhermevang/up2sat/internal/observability"
	"github.com/Guilhermevang/up2sat/store"
	"github.com/Guilhermevang/up2sat/timectrl"
)

// runOptions carries the per-invocation choices taken from flags.
type runOptions struct {
	SatelliteID string
	Destination string
	Location    []core.LocationOption
	Interval    time.Duration
	Degrees     bool
	Duration    time.Duration // zero runs until ctx is done
	PrintLogs   bool

	// Clock and Registerer are overridden by tests.
	Clock      timectrl.Clock
	Registerer prometheus.Registerer
}

func main() {
	configPath := flag.String("config", "", "Path to a json, yaml or toml config file")
	satID := flag.String("sat", "ISS (ZARYA)", "Satellite name as it appears on the catalog name line")
	lat := flag.Float64("lat", 0, "Observer latitude in degrees (default from config)")
	lon := flag.Float64("lon", 0, "Observer longitude in degrees (default from config)")
	ele := flag.Int("ele", 0, "Observer elevation in metres (default from config)")
	interval := flag.Duration("interval", 0, "Tracking interval (default from config)")
	dest := flag.String("dest", "", "TLE artifact name (default from config)")
	degrees := flag.Bool("degrees", true, "Print positions in degrees instead of radians")
	duration := flag.Duration("duration", 0, "Stop after this long; zero runs until interrupted")
	printLogs := flag.Bool("print-logs", false, "Print the diagnostic journal on exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "up2sat: %v\n", err)
		os.Exit(2)
	}

	opts := runOptions{
		SatelliteID: *satID,
		Destination: *dest,
		Interval:    *interval,
		Degrees:     *degrees,
		Duration:    *duration,
		PrintLogs:   *printLogs,
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			opts.Location = append(opts.Location, core.Latitude(*lat))
		case "lon":
			opts.Location = append(opts.Location, core.Longitude(*lon))
		case "ele":
			opts.Location = append(opts.Location, core.Elevation(*ele))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.ContextWithSessionID(ctx, uuid.NewString())
	log := logging.WithSession(ctx, logging.New(cfg.LoggingConfig()))

	if err := run(ctx, cfg, opts, log, os.Stdout); err != nil {
		log.Error(ctx, "up2sat exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts runOptions, log logging.Logger, out io.Writer) error {
	log = logging.OrNoop(log)

	collector, err := observability.NewCollector(opts.Registerer)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}
	if metricsSrv := serveMetrics(cfg.Metrics.Addr, collector, log); metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("initialise tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	tleStore, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if closer, ok := tleStore.(io.Closer); ok {
		defer closer.Close()
	}

	journal := logging.NewJournal()
	resolver := catalog.NewResolver(
		catalog.NewHTTPFetcher(cfg.Fetch.Timeout),
		catalog.WithLogger(log),
		catalog.WithJournal(journal),
		catalog.WithFetchObserver(collector),
	)
	tracker := core.NewTracker(resolver,
		core.WithLogger(log),
		core.WithJournal(journal),
		core.WithStore(tleStore),
		core.WithClock(opts.Clock),
		core.WithMetricsRecorder(collector),
		core.WithSources(cfg.Sources()...),
		core.WithSettings(cfg.Settings()),
	)
	if opts.PrintLogs {
		defer func() {
			for _, entry := range tracker.Logs() {
				fmt.Fprintln(out, entry)
			}
		}()
	}

	tracker.SetLocation(opts.Location...)
	if err := tracker.ResolveSatellite(ctx, opts.SatelliteID, opts.Destination); err != nil {
		return err
	}

	tracker.StartTracking(opts.Interval)
	defer tracker.StopTracking()

	showCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		showCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}
	if err := tracker.ShowPosition(showCtx, out, opts.Degrees); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	log.Info(ctx, "shutting down")
	return nil
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
