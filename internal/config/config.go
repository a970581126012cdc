package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/waypoint/internal/errors"
)

const (
	// TOMLFileName is the preferred configuration file name.
	TOMLFileName = "waypoint.toml"

	// JSONFileName is the alternative configuration file name.
	JSONFileName = "waypoint.json"

	// DefaultAddr is the default host listen address.
	DefaultAddr = "localhost:8080"

	// DefaultMaxRedirects is the default redirect cap per navigation.
	DefaultMaxRedirects = 10

	// DefaultHistoryLimit is the default Back history size.
	DefaultHistoryLimit = 50

	// DefaultTimeout is the default navigation timeout used by the host.
	DefaultTimeout = "10s"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "waypoint"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "waypoint"
)

// Config represents the complete waypoint configuration.
type Config struct {
	// Routes is the path to the route table file. Empty selects the
	// built-in catalog.
	Routes string `json:"routes,omitempty" toml:"routes,omitempty"`

	// NotFound is the view rendered when no route matches.
	NotFound string `json:"notFound,omitempty" toml:"notFound,omitempty"`

	// Preload fetches every view when the application starts.
	Preload bool `json:"preload,omitempty" toml:"preload,omitempty"`

	// Navigation contains coordinator settings.
	Navigation NavigationConfig `json:"navigation" toml:"navigation"`

	// Log contains logging settings.
	Log LogConfig `json:"log" toml:"log"`

	// Host contains HTTP host settings.
	Host HostConfig `json:"host" toml:"host"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing" toml:"tracing"`

	// Views configures the remote view template source.
	Views ViewsConfig `json:"views" toml:"views"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// NavigationConfig contains coordinator settings.
type NavigationConfig struct {
	// MaxRedirects caps redirects per navigation.
	MaxRedirects int `json:"maxRedirects,omitempty" toml:"maxRedirects,omitempty"`

	// Timeout bounds a navigation started by the host (e.g., "5s").
	Timeout string `json:"timeout,omitempty" toml:"timeout,omitempty"`

	// HistoryLimit bounds the Back history.
	HistoryLimit int `json:"historyLimit,omitempty" toml:"historyLimit,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" toml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" toml:"format,omitempty"`
}

// HostConfig contains HTTP host settings.
type HostConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" toml:"addr,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" toml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" toml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" toml:"tracerName,omitempty"`
}

// ViewsConfig locates view templates stored in S3. An empty Bucket
// disables the remote source.
type ViewsConfig struct {
	Bucket    string `json:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" toml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" toml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" toml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" toml:"pathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Navigation: NavigationConfig{
			MaxRedirects: DefaultMaxRedirects,
			Timeout:      DefaultTimeout,
			HistoryLimit: DefaultHistoryLimit,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Host: HostConfig{
			Addr: DefaultAddr,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for waypoint.toml first, then waypoint.json.
func Load(dir string) (*Config, error) {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("W100").
		WithDetail("No " + TOMLFileName + " or " + JSONFileName + " found in " + dir).
		WithSuggestion("Run 'waypoint routes' with --routes, or create " + TOMLFileName)
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("W100").WithDetail(path)
		}
		return nil, errors.New("W101").WithDetail(err.Error()).Wrap(err)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			e := errors.New("W101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid TOML").
				Wrap(err)
			if perr, ok := err.(toml.ParseError); ok {
				e = e.WithLocation(path, perr.Position.Line, 0)
			}
			return nil, e
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New("W102").
				WithDetail("unknown key " + undecoded[0].String()).
				WithSuggestion("Remove the key or check its spelling")
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.New("W101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON").
				Wrap(err)
		}
	default:
		return nil, errors.New("W103").
			WithDetail(ext).
			WithSuggestion("Use a .toml or .json file")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to path, in the format of its extension.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.New("W101").WithDetail(err.Error()).Wrap(err)
		}
	case ".json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.New("W101").WithDetail(err.Error()).Wrap(err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return errors.New("W103").WithDetail(filepath.Ext(path))
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.New("W101").WithDetail(err.Error()).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Navigation.MaxRedirects == 0 {
		c.Navigation.MaxRedirects = DefaultMaxRedirects
	}
	if c.Navigation.HistoryLimit == 0 {
		c.Navigation.HistoryLimit = DefaultHistoryLimit
	}
	if c.Navigation.Timeout == "" {
		c.Navigation.Timeout = DefaultTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Host.Addr == "" {
		c.Host.Addr = DefaultAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Navigation.MaxRedirects < 0 {
		return errors.New("W102").
			WithDetail("navigation.maxRedirects must not be negative")
	}
	if c.Navigation.HistoryLimit < 0 {
		return errors.New("W102").
			WithDetail("navigation.historyLimit must not be negative")
	}
	if d, err := time.ParseDuration(c.Navigation.Timeout); err != nil || d <= 0 {
		return errors.New("W102").
			WithDetail("navigation.timeout " + strconv.Quote(c.Navigation.Timeout) + " is not a positive duration").
			WithSuggestion("Use a Go duration such as \"5s\" or \"500ms\"")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("W102").
			WithDetail("log.level " + strconv.Quote(c.Log.Level)).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("W102").
			WithDetail("log.format " + strconv.Quote(c.Log.Format)).
			WithSuggestion("Use text or json")
	}
	if c.Views.Bucket != "" && c.Views.Region == "" {
		return errors.New("W102").
			WithDetail("views.region is required when views.bucket is set")
	}
	return nil
}

// RoutesPath returns the route table path resolved against the config
// directory, or "" when the built-in catalog is used.
func (c *Config) RoutesPath() string {
	if c.Routes == "" || filepath.IsAbs(c.Routes) {
		return c.Routes
	}
	return filepath.Join(c.Dir(), c.Routes)
}

// NavigationTimeout returns the parsed navigation timeout.
func (c *Config) NavigationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Navigation.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger builds the logger described by Log, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HasRemoteViews reports whether an S3 view source is configured.
func (c *Config) HasRemoteViews() bool {
	return c.Views.Bucket != ""
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
