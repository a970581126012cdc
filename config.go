package waypoint

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/router"
)

// Config is the application configuration.
type Config struct {
	// Table is a prebuilt route table. When nil, RoutesFile is loaded.
	Table *router.Table

	// RoutesFile is a YAML or JSON route table, compiled against Registry.
	RoutesFile string

	// Registry holds the views, guards and resolvers the table names.
	// If nil, an empty registry is created.
	Registry *registry.Registry

	// Fetchers are consulted, in order, for views the registry does not
	// know.
	Fetchers []loader.Fetcher

	// NotFound is the view rendered when no route matches.
	NotFound string

	// MaxRedirects caps redirects per navigation.
	// Default: navigation.DefaultMaxRedirects
	MaxRedirects int

	// HistoryLimit bounds the Back history.
	// Default: navigation.DefaultHistoryLimit
	HistoryLimit int

	// Session is passed to guards and resolvers.
	Session router.Session

	// Preload fetches every view of the table in New.
	Preload bool

	// Metrics enables Prometheus metrics registered with MetricsRegistry.
	Metrics bool

	// MetricsNamespace is the metrics namespace (default: "waypoint").
	MetricsNamespace string

	// MetricsRegistry receives the metrics.
	// Default: a new registry, exposed by App.Gatherer.
	MetricsRegistry *prometheus.Registry

	// Tracing enables OpenTelemetry spans from the global provider.
	Tracing bool

	// TracerName is the tracer name (default: "waypoint").
	TracerName string

	// Observers are subscribed at construction.
	Observers []navigation.Observer

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		MaxRedirects:     navigation.DefaultMaxRedirects,
		HistoryLimit:     navigation.DefaultHistoryLimit,
		MetricsNamespace: "waypoint",
		TracerName:       "waypoint",
	}
}
