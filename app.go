// Package waypoint wires a route table, a view loader and a navigation
// coordinator into a single application.
//
//	reg := registry.New()
//	reg.RegisterView("home", view.Static("<h1>Home</h1>"))
//	reg.RegisterGuard("auth", requireAuth)
//
//	app, err := waypoint.New(ctx, waypoint.Config{
//	    RoutesFile: "routes.yaml",
//	    Registry:   reg,
//	    NotFound:   "not-found",
//	    Metrics:    true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	commit, err := app.Navigate(ctx, "/users/7")
package waypoint

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/waypoint/pkg/host"
	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/routeconf"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/telemetry"
)

// App is a configured navigation stack.
type App struct {
	table    *router.Table
	registry *registry.Registry
	loader   *loader.Loader
	coord    *navigation.Coordinator

	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	tracing  *telemetry.Tracing

	logger *slog.Logger
}

// New builds the application. ctx bounds preloading only.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}

	table := cfg.Table
	if table == nil {
		var err error
		table, err = routeconf.Load(cfg.RoutesFile, reg)
		if err != nil {
			return nil, err
		}
	}

	fetchers := append([]loader.Fetcher{reg}, cfg.Fetchers...)
	l := loader.New(loader.Chain(fetchers...), loader.WithLogger(logger))

	app := &App{
		table:    table,
		registry: reg,
		loader:   l,
		logger:   logger,
	}

	opts := []navigation.Option{
		navigation.WithLogger(logger),
		navigation.WithMaxRedirects(cfg.MaxRedirects),
		navigation.WithHistoryLimit(cfg.HistoryLimit),
	}
	if cfg.NotFound != "" {
		opts = append(opts, navigation.WithNotFound(cfg.NotFound))
	}
	if cfg.Session != nil {
		opts = append(opts, navigation.WithSession(cfg.Session))
	}

	if cfg.Metrics {
		promReg := cfg.MetricsRegistry
		if promReg == nil {
			promReg = prometheus.NewRegistry()
		}
		mopts := []telemetry.MetricsOption{telemetry.WithRegistry(promReg)}
		if cfg.MetricsNamespace != "" {
			mopts = append(mopts, telemetry.WithNamespace(cfg.MetricsNamespace))
		}
		app.metrics = telemetry.NewMetrics(mopts...)
		app.metrics.RegisterLoader(l)
		app.gatherer = promReg
		opts = append(opts, navigation.WithObserver(app.metrics))
	}
	if cfg.Tracing {
		app.tracing = telemetry.NewTracing(telemetry.WithTracerName(cfg.TracerName))
		opts = append(opts, navigation.WithObserver(app.tracing))
	}
	for _, o := range cfg.Observers {
		opts = append(opts, navigation.WithObserver(o))
	}

	app.coord = navigation.New(table, l, opts...)

	if cfg.Preload {
		if err := l.Preload(ctx, table); err != nil {
			return nil, err
		}
		logger.Info("views preloaded", "count", l.Stats().Cached)
	}
	return app, nil
}

// Navigate starts a navigation. See navigation.Coordinator.Navigate.
func (a *App) Navigate(ctx context.Context, target string, opts ...navigation.NavigateOption) (*navigation.Commit, error) {
	return a.coord.Navigate(ctx, target, opts...)
}

// Back returns to the previous commit.
func (a *App) Back(ctx context.Context) (*navigation.Commit, error) {
	return a.coord.Back(ctx)
}

// Current returns the current commit, or nil.
func (a *App) Current() *navigation.Commit {
	return a.coord.Current()
}

// Match matches path against the table without navigating.
func (a *App) Match(path string) (*router.MatchResult, error) {
	return a.table.Match(path)
}

// Subscribe registers o for navigation events.
func (a *App) Subscribe(o navigation.Observer) (unsubscribe func()) {
	return a.coord.Subscribe(o)
}

// Handler returns an HTTP host for the application. The caller owns the
// returned server and must Close it.
func (a *App) Handler(opts ...host.Option) *host.Server {
	opts = append([]host.Option{host.WithLogger(a.logger)}, opts...)
	if a.gatherer != nil {
		opts = append(opts, host.WithMetricsHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}
	return host.New(a.coord, opts...)
}

// Table returns the route table.
func (a *App) Table() *router.Table { return a.table }

// Registry returns the registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// Loader returns the view loader.
func (a *App) Loader() *loader.Loader { return a.loader }

// Coordinator returns the navigation coordinator.
func (a *App) Coordinator() *navigation.Coordinator { return a.coord }

// Metrics returns the metrics observer, or nil when disabled.
func (a *App) Metrics() *telemetry.Metrics { return a.metrics }

// Gatherer returns the metrics registry, or nil when disabled.
func (a *App) Gatherer() prometheus.Gatherer { return a.gatherer }
