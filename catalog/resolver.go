package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Guilhermevang/up2sat/internal/logging"
	"github.com/Guilhermevang/up2sat/model"
)

var (
	// ErrNotFound indicates no source yielded a matching record.
	ErrNotFound = errors.New("satellite not found in any catalog")
	// ErrInvalidTarget indicates an empty satellite name.
	ErrInvalidTarget = errors.New("target satellite name is empty")
)

// Fetch outcomes reported to a FetchObserver.
const (
	OutcomeMatch = "match"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// FetchObserver receives one call per fetched catalog document.
type FetchObserver interface {
	ObserveFetch(source, outcome string)
}

const tracerName = "github.com/Guilhermevang/up2sat/catalog"

// Resolver searches catalog sources in order for a satellite's TLE.
type Resolver struct {
	fetcher Fetcher
	log     logging.Logger
	journal logging.Recorder
	metrics FetchObserver
	tracer  trace.Tracer
}

// ResolverOption customises Resolver construction.
type ResolverOption func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) ResolverOption {
	return func(r *Resolver) { r.log = logging.OrNoop(l) }
}

// WithJournal sets the diagnostic journal that receives per-URL failures.
func WithJournal(j logging.Recorder) ResolverOption {
	return func(r *Resolver) { r.journal = logging.RecorderOrNoop(j) }
}

// WithFetchObserver attaches an observer for fetch outcomes.
func WithFetchObserver(o FetchObserver) ResolverOption {
	return func(r *Resolver) { r.metrics = o }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ResolverOption {
	return func(r *Resolver) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewResolver builds a Resolver that downloads documents with fetcher.
func NewResolver(fetcher Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		log:     logging.Noop(),
		journal: logging.RecorderOrNoop(nil),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve walks sources and their paths in order and returns the first
// record whose name line contains target. Fetch failures are logged and
// skipped. ErrNotFound is returned only after every URL has been tried.
// Cancelling ctx stops the walk and returns ctx.Err().
func (r *Resolver) Resolve(ctx context.Context, target string, sources ...Source) (model.TLE, error) {
	if target == "" {
		r.journal.Append("Error: target or base_url is not set")
		return model.TLE{}, ErrInvalidTarget
	}

	ctx, span := r.tracer.Start(ctx, "catalog.Resolve",
		trace.WithAttributes(
			attribute.String("satellite.id", target),
			attribute.Int("catalog.sources", len(sources)),
		),
	)
	defer span.End()

	attempts := 0
	for _, src := range sources {
		for _, url := range src.URLs() {
			if err := ctx.Err(); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return model.TLE{}, err
			}
			attempts++

			tle, ok := r.scanDocument(ctx, target, src, url)
			if ok {
				span.SetAttributes(
					attribute.String("catalog.source", src.Name),
					attribute.String("catalog.url", url),
					attribute.Int("catalog.attempts", attempts),
				)
				r.journal.Append("Found Satellite")
				r.log.Info(ctx, "resolved TLE",
					logging.String("satellite", target),
					logging.String("source", src.Name),
					logging.String("url", url),
					logging.Int("attempts", attempts),
				)
				return tle, nil
			}
		}
	}

	span.SetAttributes(attribute.Int("catalog.attempts", attempts))
	span.SetStatus(codes.Error, ErrNotFound.Error())
	r.log.Warn(ctx, "TLE not found in any catalog",
		logging.String("satellite", target),
		logging.Int("attempts", attempts),
	)
	return model.TLE{}, fmt.Errorf("resolve %q: %w", target, ErrNotFound)
}

func (r *Resolver) scanDocument(ctx context.Context, target string, src Source, url string) (model.TLE, bool) {
	ctx, span := r.tracer.Start(ctx, "catalog.Fetch",
		trace.WithAttributes(
			attribute.String("catalog.source", src.Name),
			attribute.String("catalog.url", url),
		),
	)
	defer span.End()

	doc, err := r.fetcher.FetchText(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe(src.Name, OutcomeError)
		r.journal.Append(fmt.Sprintf("Error: could not get data from %s", url))
		r.log.Warn(ctx, "catalog fetch failed",
			logging.String("source", src.Name),
			logging.String("url", url),
			logging.Err(err),
		)
		return model.TLE{}, false
	}

	line1, line2, ok := Extract(doc, target)
	if !ok {
		r.observe(src.Name, OutcomeMiss)
		r.log.Debug(ctx, "no match in catalog document",
			logging.String("source", src.Name),
			logging.String("url", url),
		)
		return model.TLE{}, false
	}

	r.observe(src.Name, OutcomeMatch)
	return model.NewTLE(target, line1, line2), true
}

func (r *Resolver) observe(source, outcome string) {
	if r.metrics != nil {
		r.metrics.ObserveFetch(source, outcome)
	}
}
