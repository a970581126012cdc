package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ResolverSet runs the resolvers of a terminal route.
type ResolverSet struct {
	logger *slog.Logger
}

// NewResolverSet creates a resolver executor. A nil logger uses slog.Default().
func NewResolverSet(logger *slog.Logger) *ResolverSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolverSet{logger: logger}
}

// Run starts every resolver of the leaf of m concurrently and waits for
// all of them. The first failure cancels the context passed to the others
// and Run returns a *ResolveError with a nil map; values of resolvers that
// succeeded are discarded.
func (s *ResolverSet) Run(ctx context.Context, m *MatchResult, nav *NavigationContext) (map[string]any, error) {
	leaf := m.Leaf()
	if leaf == nil || len(leaf.resolvers) == 0 {
		return map[string]any{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := sortedKeys(leaf.resolvers)
	values := make([]any, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		r := leaf.resolvers[key]
		g.Go(func() error {
			v, err := s.resolve(gctx, r, m, nav)
			if err != nil {
				return &ResolveError{Key: key, Path: m.Path(), Err: err}
			}
			values[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("resolve failed", "path", m.Path(), "error", err)
		return nil, err
	}

	out := make(map[string]any, len(keys))
	for i, key := range keys {
		out[key] = values[i]
	}
	return out, nil
}

func (s *ResolverSet) resolve(ctx context.Context, r Resolver, m *MatchResult, nav *NavigationContext) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resolver panicked: %v", p)
		}
	}()
	return r.Resolve(ctx, m, nav)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
