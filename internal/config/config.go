// Package config loads up2sat settings from defaults, an optional config
// file and UP2SAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Guilhermevang/up2sat/catalog"
	"github.com/Guilhermevang/up2sat/core"
	"github.com/Guilhermevang/up2sat/internal/logging"
	"github.com/Guilhermevang/up2sat/internal/observability"
	"github.com/Guilhermevang/up2sat/store"
)

// EnvPrefix namespaces environment overrides, e.g. UP2SAT_OBSERVER_LAT.
const EnvPrefix = "UP2SAT"

// ObserverConfig is the default observer location in degrees and metres.
type ObserverConfig struct {
	Lat float64 `mapstructure:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `mapstructure:"lon" validate:"gte=-180,lte=180"`
	Ele int     `mapstructure:"ele"`
}

// TrackingConfig holds the default worker interval.
type TrackingConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

// TLEConfig names the artifact resolved elements are saved under.
type TLEConfig struct {
	Destination string `mapstructure:"destination" validate:"required"`
}

// StorageConfig selects the TLE artifact backend.
type StorageConfig struct {
	Type       string `mapstructure:"type" validate:"oneof=file memory sqlite"`
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlitePath"`
}

// FetchConfig bounds each catalog request.
type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// LogConfig sets the slog level and handler format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// MetricsConfig is the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TracingConfig selects the span exporter and sampling.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"serviceName"`
	Exporter    string  `mapstructure:"exporter" validate:"oneof=stdout otlp otlpgrpc"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sampleRatio" validate:"gte=0,lte=1"`
}

// CatalogConfig overrides the built-in catalog source table.
type CatalogConfig struct {
	Sources []catalog.Source `mapstructure:"sources" validate:"dive"`
}

// Config is the fully resolved application configuration.
type Config struct {
	Observer ObserverConfig `mapstructure:"observer"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	TLE      TLEConfig      `mapstructure:"tle"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

func setDefaults(v *viper.Viper) {
	def := core.DefaultSettings()

	v.SetDefault("observer.lat", def.Latitude)
	v.SetDefault("observer.lon", def.Longitude)
	v.SetDefault("observer.ele", def.Elevation)

	v.SetDefault("tracking.interval", def.Interval)
	v.SetDefault("tle.destination", def.Destination)

	v.SetDefault("storage.type", store.BackendFile)
	v.SetDefault("storage.dir", "files")
	v.SetDefault("storage.sqlitePath", "up2sat.db")

	v.SetDefault("fetch.timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "up2sat")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRatio", 1.0)
}

// Load resolves configuration. path is optional; when set, the file must
// exist and its type is taken from the extension.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and enums.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Settings maps the observer, tracking and TLE sections onto tracker
// fallback values.
func (c Config) Settings() core.Settings {
	return core.Settings{
		Latitude:    c.Observer.Lat,
		Longitude:   c.Observer.Lon,
		Elevation:   c.Observer.Ele,
		Interval:    c.Tracking.Interval,
		Destination: c.TLE.Destination,
	}
}

// StoreConfig maps the storage section onto store.Open input.
func (c Config) StoreConfig() store.Config {
	return store.Config{Type: c.Storage.Type, Dir: c.Storage.Dir, SQLitePath: c.Storage.SQLitePath}
}

// LoggingConfig maps the log section onto logging.New input.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// TracingConfig maps the tracing section onto observability.InitTracing input.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// Sources returns the configured catalog table, or the built-in table
// when none is configured.
func (c Config) Sources() []catalog.Source {
	if len(c.Catalog.Sources) == 0 {
		return catalog.DefaultSources()
	}
	return append([]catalog.Source(nil), c.Catalog.Sources...)
}
