// Package registry maps stable names to views, guards and resolvers.
//
// Route tables authored as data (see package routeconf) refer to their
// collaborators by name; the registry is where the application binds those
// names to code. It also serves as the loader's Fetcher: deferred views are
// registered as load functions that run the first time the view is needed.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("already registered")

// LoadFunc produces a view factory on demand.
type LoadFunc func(ctx context.Context) (view.Factory, error)

// Registry holds named views, guards and resolvers.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	views     map[string]LoadFunc
	guards    map[string]router.Guard
	resolvers map[string]router.Resolver
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		views:     make(map[string]LoadFunc),
		guards:    make(map[string]router.Guard),
		resolvers: make(map[string]router.Resolver),
	}
}

// RegisterView binds id to an already built factory.
func (r *Registry) RegisterView(id string, f view.Factory) error {
	if f == nil {
		return fmt.Errorf("view %q: nil factory", id)
	}
	return r.RegisterDeferred(id, func(context.Context) (view.Factory, error) { return f, nil })
}

// RegisterDeferred binds id to a function that builds the factory the
// first time the view is loaded.
func (r *Registry) RegisterDeferred(id string, load LoadFunc) error {
	if id == "" || load == nil {
		return fmt.Errorf("view %q: empty id or nil loader", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[id]; ok {
		return fmt.Errorf("view %q: %w", id, ErrDuplicate)
	}
	r.views[id] = load
	return nil
}

// RegisterGuard binds name to g. The guard reports name in denials.
func (r *Registry) RegisterGuard(name string, g router.Guard) error {
	if name == "" || g == nil {
		return fmt.Errorf("guard %q: empty name or nil guard", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guards[name]; ok {
		return fmt.Errorf("guard %q: %w", name, ErrDuplicate)
	}
	r.guards[name] = router.Named(name, g)
	return nil
}

// RegisterResolver binds name to res.
func (r *Registry) RegisterResolver(name string, res router.Resolver) error {
	if name == "" || res == nil {
		return fmt.Errorf("resolver %q: empty name or nil resolver", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resolvers[name]; ok {
		return fmt.Errorf("resolver %q: %w", name, ErrDuplicate)
	}
	r.resolvers[name] = res
	return nil
}

// Guard returns the guard registered as name.
func (r *Registry) Guard(name string) (router.Guard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guards[name]
	return g, ok
}

// Resolver returns the resolver registered as name.
func (r *Registry) Resolver(name string) (router.Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[name]
	return res, ok
}

// HasView reports whether id is registered.
func (r *Registry) HasView(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.views[id]
	return ok
}

// Fetch implements loader.Fetcher. Unknown ids return an error wrapping
// loader.ErrViewNotFound.
func (r *Registry) Fetch(ctx context.Context, id string) (view.Factory, error) {
	r.mu.RLock()
	load, ok := r.views[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("view %q: %w", id, loader.ErrViewNotFound)
	}
	return load(ctx)
}

// Views returns the registered view ids, sorted.
func (r *Registry) Views() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.views)
}

// Guards returns the registered guard names, sorted.
func (r *Registry) Guards() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.guards)
}

// Resolvers returns the registered resolver names, sorted.
func (r *Registry) Resolvers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.resolvers)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
