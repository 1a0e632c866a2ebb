package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeOK       = "ok"
	outcomeError    = "error"
)

// Collector bundles the Prometheus metrics for catalog lookups and the
// tracking worker. It satisfies catalog.FetchObserver and
// core.MetricsRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	CatalogFetches *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec

	TrackingCycles       *prometheus.CounterVec
	TrackingCycleSeconds prometheus.Histogram
	TrackingActive       prometheus.Gauge
	LastComputed         prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "up2sat_catalog_fetches_total",
		Help: "Catalog documents fetched, labeled by source and outcome (match, miss, error).",
	}, []string{"source", "outcome"}), "up2sat_catalog_fetches_total")
	if err != nil {
		return nil, err
	}

	resolutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "up2sat_resolutions_total",
		Help: "Satellite resolutions, labeled by outcome (found, not_found).",
	}, []string{"outcome"}), "up2sat_resolutions_total")
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "up2sat_tracking_cycles_total",
		Help: "Tracking worker cycles, labeled by outcome (ok, error).",
	}, []string{"outcome"}), "up2sat_tracking_cycles_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "up2sat_tracking_cycle_duration_seconds",
		Help:    "Time spent computing one tracking cycle.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "up2sat_tracking_cycle_duration_seconds")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "up2sat_tracking_active",
		Help: "1 while a tracking worker is running.",
	}), "up2sat_tracking_active")
	if err != nil {
		return nil, err
	}

	last, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "up2sat_last_computed_timestamp_seconds",
		Help: "Unix time of the last successful position computation.",
	}), "up2sat_last_computed_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:             gatherer,
		CatalogFetches:       fetches,
		Resolutions:          resolutions,
		TrackingCycles:       cycles,
		TrackingCycleSeconds: durations,
		TrackingActive:       active,
		LastComputed:         last,
	}, nil
}

// ObserveFetch counts one catalog document fetch.
func (c *Collector) ObserveFetch(source, outcome string) {
	if c == nil || c.CatalogFetches == nil {
		return
	}
	c.CatalogFetches.WithLabelValues(source, outcome).Inc()
}

// ObserveResolution counts one ResolveSatellite call.
func (c *Collector) ObserveResolution(found bool) {
	if c == nil || c.Resolutions == nil {
		return
	}
	outcome := outcomeNotFound
	if found {
		outcome = outcomeFound
	}
	c.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveCycle records one worker cycle and its duration.
func (c *Collector) ObserveCycle(d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	if c.TrackingCycles != nil {
		c.TrackingCycles.WithLabelValues(outcome).Inc()
	}
	if c.TrackingCycleSeconds != nil {
		c.TrackingCycleSeconds.Observe(d.Seconds())
	}
	if err == nil && c.LastComputed != nil {
		c.LastComputed.SetToCurrentTime()
	}
}

// SetTracking flips the tracking_active gauge.
func (c *Collector) SetTracking(active bool) {
	if c == nil || c.TrackingActive == nil {
		return
	}
	if active {
		c.TrackingActive.Set(1)
		return
	}
	c.TrackingActive.Set(0)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
