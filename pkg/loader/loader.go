// Package loader implements deferred view loading.
//
// A Loader fetches the view factory bound to a route node the first time
// the node is navigated to, and caches it keyed by node identity. Concurrent
// first loads of the same node share one fetch; failed fetches are not
// cached, so a later load retries.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

// ErrNoView is returned when a node carries no view identifier.
var ErrNoView = errors.New("route has no view")

// Fetcher is the external "load view by identifier" primitive.
type Fetcher interface {
	Fetch(ctx context.Context, viewID string) (view.Factory, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc func(ctx context.Context, viewID string) (view.Factory, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, viewID string) (view.Factory, error) {
	return f(ctx, viewID)
}

// LoadedView is a fetched view factory bound to its route node.
type LoadedView struct {
	Node    *router.Node
	Factory view.Factory

	// Cached reports whether the factory came from the cache rather than
	// from a fetch made for this call.
	Cached bool
}

// LoadError reports a failed fetch. It is never cached.
type LoadError struct {
	ViewID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading view %q: %v", e.ViewID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Stats are loader counters.
type Stats struct {
	// Fetches is the number of underlying fetches started.
	Fetches int64

	// Hits is the number of loads served from the cache.
	Hits int64

	// Shared is the number of loads served by a fetch that more than one
	// load was waiting on.
	Shared int64

	// Failures is the number of failed fetches.
	Failures int64

	// Cached is the number of cached factories.
	Cached int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader caches view factories by route node.
// It is safe for concurrent use.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[*router.Node]view.Factory

	group singleflight.Group

	fetches  atomic.Int64
	hits     atomic.Int64
	shared   atomic.Int64
	failures atomic.Int64
}

// New creates a loader backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		logger:  slog.Default(),
		cache:   make(map[*router.Node]view.Factory),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the view factory of node, fetching it on first use.
//
// The fetch itself is not bound to ctx: it runs to completion for every
// caller waiting on it, so one caller's cancellation never fails the
// others. ctx only bounds how long this caller waits.
func (l *Loader) Load(ctx context.Context, node *router.Node) (*LoadedView, error) {
	if node == nil || node.View() == "" {
		return nil, &LoadError{Err: ErrNoView}
	}

	if f, ok := l.cached(node); ok {
		l.hits.Inc()
		return &LoadedView{Node: node, Factory: f, Cached: true}, nil
	}

	key := fmt.Sprintf("%p", node)
	ch := l.group.DoChan(key, func() (any, error) {
		// A previous flight may have filled the cache between our check
		// and joining the group.
		if f, ok := l.cached(node); ok {
			return f, nil
		}
		return l.fetch(context.WithoutCancel(ctx), node)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.shared.Inc()
		}
		return &LoadedView{Node: node, Factory: res.Val.(view.Factory), Cached: false}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) fetch(ctx context.Context, node *router.Node) (view.Factory, error) {
	l.fetches.Inc()
	l.logger.Debug("fetching view", "view", node.View(), "route", node.FullPath())

	f, err := l.safeFetch(ctx, node.View())
	if err == nil && f == nil {
		err = errors.New("fetcher returned no factory")
	}
	if err != nil {
		l.failures.Inc()
		l.logger.Warn("view fetch failed", "view", node.View(), "route", node.FullPath(), "error", err)
		return nil, &LoadError{ViewID: node.View(), Err: err}
	}

	l.mu.Lock()
	l.cache[node] = f
	l.mu.Unlock()
	return f, nil
}

func (l *Loader) safeFetch(ctx context.Context, viewID string) (f view.Factory, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()
	return l.fetcher.Fetch(ctx, viewID)
}

func (l *Loader) cached(node *router.Node) (view.Factory, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.cache[node]
	return f, ok
}

// Cached reports whether node's factory is in the cache.
func (l *Loader) Cached(node *router.Node) bool {
	_, ok := l.cached(node)
	return ok
}

// Preload loads every view of table and returns the first error, if any.
func (l *Loader) Preload(ctx context.Context, table *router.Table) error {
	var firstErr error
	table.Walk(func(n *router.Node, _ int) bool {
		if n.View() == "" {
			return true
		}
		if _, err := l.Load(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
		return ctx.Err() == nil
	})
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	return firstErr
}

// Evict drops node from the cache. The next load fetches again.
func (l *Loader) Evict(node *router.Node) {
	l.mu.Lock()
	delete(l.cache, node)
	l.mu.Unlock()
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.mu.Lock()
	l.cache = make(map[*router.Node]view.Factory)
	l.mu.Unlock()
}

// Stats returns a snapshot of the loader counters.
func (l *Loader) Stats() Stats {
	l.mu.RLock()
	n := len(l.cache)
	l.mu.RUnlock()
	return Stats{
		Fetches:  l.fetches.Load(),
		Hits:     l.hits.Load(),
		Shared:   l.shared.Load(),
		Failures: l.failures.Load(),
		Cached:   n,
	}
}
