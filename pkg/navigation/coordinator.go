// Package navigation sequences a navigation through matching, guards,
// resolvers and view loading, and commits the result.
//
// Every call to Navigate gets a new generation number. Starting a navigation
// cancels the context of the previous one, and every step re-checks its
// generation before applying an effect, so a superseded navigation can never
// redirect, instantiate a view or commit. Effects are therefore applied in
// generation order, and stale ones are dropped rather than queued.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/routepath"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

// ViewLoader loads the view factory of a route node.
// *loader.Loader implements it.
type ViewLoader interface {
	Load(ctx context.Context, node *router.Node) (*loader.LoadedView, error)
}

// Coordinator runs navigations against a route table.
// It is safe for concurrent use.
type Coordinator struct {
	table     *router.Table
	loader    ViewLoader
	guards    *router.GuardChain
	resolvers *router.ResolverSet
	logger    *slog.Logger

	notFoundView string
	notFoundNode *router.Node
	maxRedirects int
	historyLimit int
	session      router.Session

	generation atomic.Uint64

	mu        sync.Mutex
	state     State
	current   *Commit
	history   []*Commit
	cancel    context.CancelFunc
	cancelGen uint64

	obsMu     sync.RWMutex
	observers []*subscription
}

// subscription boxes an observer so it can be removed by identity;
// ObserverFunc values are not comparable.
type subscription struct {
	o Observer
}

// New creates a coordinator for table that loads views through l.
func New(table *router.Table, l ViewLoader, opts ...Option) *Coordinator {
	c := &Coordinator{
		table:        table,
		loader:       l,
		logger:       slog.Default(),
		maxRedirects: DefaultMaxRedirects,
		historyLimit: DefaultHistoryLimit,
		state:        Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guards = router.NewGuardChain(c.logger)
	c.resolvers = router.NewResolverSet(c.logger)

	if c.notFoundView != "" {
		// The not-found view needs a node of its own so the loader can
		// cache it like any other view.
		nf := router.MustTable(router.Route{View: c.notFoundView, Title: "Not Found"})
		c.notFoundNode = nf.ChildrenOf(nf.Root())[0]
	}
	return c
}

// Table returns the route table.
func (c *Coordinator) Table() *router.Table {
	return c.table
}

// Generation returns the generation of the most recent navigation.
func (c *Coordinator) Generation() uint64 {
	return c.generation.Load()
}

// State returns the state of the most recent navigation.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the last committed navigation, or nil.
func (c *Coordinator) Current() *Commit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// History returns the committed entries Back can return to, oldest first.
func (c *Coordinator) History() []*Commit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Commit(nil), c.history...)
}

// Subscribe registers o for navigation events and returns a function that
// removes it.
func (c *Coordinator) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{o: o}
	c.obsMu.Lock()
	c.observers = append(c.observers, sub)
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			defer c.obsMu.Unlock()
			for i, existing := range c.observers {
				if existing == sub {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Back navigates to the entry committed before the current one.
func (c *Coordinator) Back(ctx context.Context) (*Commit, error) {
	c.mu.Lock()
	if len(c.history) == 0 {
		c.mu.Unlock()
		return nil, ErrNoHistory
	}
	prev := c.history[len(c.history)-1]
	c.mu.Unlock()

	return c.Navigate(ctx, prev.URL(), func(cfg *navigateConfig) { cfg.back = true })
}

// Navigate runs a navigation to target, which may carry a query string.
//
// It returns the commit when the navigation reaches Committed, including
// the not-found commit of an unmatched path. Otherwise the navigation
// aborts, the previously committed view stays current and the error is
// one of *router.GuardDeniedError, *router.RedirectLoopError,
// *router.ResolveError, *loader.LoadError, *router.NoMatchError (for a
// malformed target) or *CancelledError.
func (c *Coordinator) Navigate(ctx context.Context, target string, opts ...NavigateOption) (*Commit, error) {
	var cfg navigateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	gen := c.generation.Inc()
	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel, c.cancelGen = cancel, gen
	previous := c.current
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.cancelGen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	r := &run{
		c:         c,
		ctx:       navCtx,
		cfg:       cfg,
		requested: target,
		start:     time.Now(),
		nav: &router.NavigationContext{
			ID:         uuid.NewString(),
			Generation: gen,
			Session:    c.session,
		},
	}
	if previous != nil {
		r.nav.Previous = previous.Match
	}

	commit, err := r.execute()
	if err != nil {
		return nil, err
	}
	return commit, nil
}

// run is the state of one navigation.
type run struct {
	c         *Coordinator
	ctx       context.Context
	cfg       navigateConfig
	nav       *router.NavigationContext
	requested string
	start     time.Time
	trail     []string
}

func (r *run) execute() (*Commit, error) {
	c := r.c
	next := r.requested
	extra := r.cfg.query

	for {
		if err := r.checkpoint(); err != nil {
			return nil, err
		}

		target, err := routepath.Canonicalize(next)
		if err != nil {
			return nil, r.abort(&router.NoMatchError{Path: next, Err: err})
		}
		query := target.Query
		for k, vs := range extra {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		extra = nil

		r.nav.TargetPath = target.Path
		r.nav.Query = query
		r.trail = append(r.trail, target.Path)
		r.transition(Matching)

		m, err := c.table.Match(target.Path)
		if err != nil {
			return r.commitNotFound()
		}

		leaf := m.Leaf()
		if to := leaf.RedirectTo(); to != "" {
			if next, err = r.redirect(to, usedParams(to, m.Params), query); err != nil {
				return nil, err
			}
			continue
		}

		r.transition(Guarding)
		out := c.guards.Run(r.ctx, m, r.nav)
		if err := r.checkpoint(); err != nil {
			return nil, err
		}
		switch out.Kind {
		case router.OutcomeRedirect:
			if next, err = r.redirect(out.Target, out.Params, nil); err != nil {
				return nil, err
			}
			continue
		case router.OutcomeAllow:
		default:
			return nil, r.abort(&router.GuardDeniedError{
				Path:   target.Path,
				Reason: out.Reason,
				Guard:  out.Guard,
				Err:    out.Err,
			})
		}

		r.transition(Resolving)
		data, err := c.resolvers.Run(r.ctx, m, r.nav)
		if cerr := r.checkpoint(); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			return nil, r.abort(err)
		}

		return r.load(leaf, m, data)
	}
}

// redirect records a redirect hop and returns the next target.
func (r *run) redirect(to string, params map[string]string, keep url.Values) (string, error) {
	path, query := routepath.Fill(to, params)
	for k, vs := range keep {
		if _, ok := query[k]; !ok {
			query[k] = vs
		}
	}
	next := routepath.WithQuery(path, query)

	r.nav.Redirects++
	if r.nav.Redirects > r.c.maxRedirects {
		return "", r.abort(&router.RedirectLoopError{
			Path:  r.requested,
			Hops:  r.nav.Redirects - 1,
			Trail: append(append([]string(nil), r.trail...), path),
		})
	}

	r.c.logger.Debug("navigation redirected",
		"navigation", r.nav.ID,
		"from", r.nav.TargetPath,
		"to", next,
		"hop", r.nav.Redirects,
	)
	return next, nil
}

// load fetches and instantiates the view of leaf, then commits.
func (r *run) load(leaf *router.Node, m *router.MatchResult, data map[string]any) (*Commit, error) {
	commit := &Commit{
		Match: m,
		Data:  data,
		Title: m.Title(),
	}
	if leaf.View() == "" {
		return r.commit(commit)
	}

	r.transition(Loading)
	v, cached, err := r.instantiate(leaf, view.Props{
		ViewID: leaf.View(),
		Path:   r.nav.TargetPath,
		Title:  commit.Title,
		Params: m.Params,
		Query:  r.nav.Query,
		Data:   data,
		Match:  m,
	})
	if err != nil {
		return nil, err
	}
	commit.ViewID, commit.View, commit.Cached = leaf.View(), v, cached
	return r.commit(commit)
}

func (r *run) commitNotFound() (*Commit, error) {
	commit := &Commit{NotFound: true, Title: "Not Found"}
	r.c.logger.Debug("no route matched", "navigation", r.nav.ID, "path", r.nav.TargetPath)

	if node := r.c.notFoundNode; node != nil {
		r.transition(Loading)
		v, cached, err := r.instantiate(node, view.Props{
			ViewID: node.View(),
			Path:   r.nav.TargetPath,
			Title:  commit.Title,
			Query:  r.nav.Query,
		})
		if err != nil {
			return nil, err
		}
		commit.ViewID, commit.View, commit.Cached = node.View(), v, cached
	}
	return r.commit(commit)
}

// instantiate loads node's factory and builds the view. It returns an
// error already passed through abort or checkpoint.
func (r *run) instantiate(node *router.Node, props view.Props) (view.View, bool, error) {
	lv, err := r.c.loader.Load(r.ctx, node)
	if cerr := r.checkpoint(); cerr != nil {
		return nil, false, cerr
	}
	if err != nil {
		return nil, false, r.abort(err)
	}

	v, err := build(lv.Factory, props)
	if err != nil {
		return nil, false, r.abort(&loader.LoadError{ViewID: node.View(), Err: err})
	}
	if cerr := r.checkpoint(); cerr != nil {
		return nil, false, cerr
	}
	return v, lv.Cached, nil
}

func build(f view.Factory, props view.Props) (v view.View, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("view factory panicked: %v", p)
		}
	}()
	v, err = f(props)
	if err == nil && v == nil {
		err = fmt.Errorf("view factory returned no view")
	}
	return v, err
}

// commit makes the navigation current if it is still the newest one.
func (r *run) commit(commit *Commit) (*Commit, error) {
	c := r.c
	commit.ID = r.nav.ID
	commit.Generation = r.nav.Generation
	commit.Requested = r.requested
	commit.Path = r.nav.TargetPath
	commit.Query = r.nav.Query
	if len(r.trail) > 1 {
		commit.Redirects = append([]string(nil), r.trail[:len(r.trail)-1]...)
	}
	commit.At = time.Now()

	c.mu.Lock()
	if cur := c.generation.Load(); cur != r.nav.Generation {
		c.mu.Unlock()
		return nil, r.cancelled(cur)
	}
	switch {
	case r.cfg.back:
		if n := len(c.history); n > 0 {
			c.history = c.history[:n-1]
		}
	case !r.cfg.replace && c.current != nil:
		c.history = append(c.history, c.current)
		if over := len(c.history) - c.historyLimit; over > 0 {
			c.history = append([]*Commit(nil), c.history[over:]...)
		}
	}
	c.current = commit
	c.state = Committed
	c.mu.Unlock()

	c.logger.Info("navigation committed",
		"navigation", commit.ID,
		"generation", commit.Generation,
		"path", commit.Path,
		"view", commit.ViewID,
		"not_found", commit.NotFound,
		"redirects", len(commit.Redirects),
		"duration", time.Since(r.start),
	)
	r.emit(Event{State: Committed, Commit: commit})
	return commit, nil
}

// checkpoint returns a *CancelledError once the navigation is stale or its
// context is done.
func (r *run) checkpoint() error {
	if cur := r.c.generation.Load(); cur != r.nav.Generation {
		return r.cancelled(cur)
	}
	if err := r.ctx.Err(); err != nil {
		// The generation may have moved between the two reads.
		if cur := r.c.generation.Load(); cur != r.nav.Generation {
			return r.cancelled(cur)
		}
		cerr := &CancelledError{Path: r.nav.TargetPath, Generation: r.nav.Generation, Err: err}
		r.c.logger.Debug("navigation cancelled", "navigation", r.nav.ID, "error", err)
		r.setIdle()
		r.emit(Event{State: Cancelled, Err: cerr})
		return cerr
	}
	return nil
}

func (r *run) cancelled(superseded uint64) error {
	err := &CancelledError{
		Path:       r.nav.TargetPath,
		Generation: r.nav.Generation,
		Superseded: superseded,
	}
	r.c.logger.Debug("navigation superseded",
		"navigation", r.nav.ID,
		"generation", r.nav.Generation,
		"superseded_by", superseded,
	)
	r.emit(Event{State: Cancelled, Err: err})
	return err
}

// abort returns the coordinator to Idle, leaving the current commit intact.
func (r *run) abort(err error) error {
	if cur := r.c.generation.Load(); cur != r.nav.Generation {
		return r.cancelled(cur)
	}
	level := slog.LevelWarn
	switch {
	case errors.Is(err, router.ErrDenied):
		level = slog.LevelInfo
	case errors.Is(err, router.ErrRedirectLoop):
		level = slog.LevelError
	}
	r.c.logger.Log(r.ctx, level, "navigation aborted",
		"navigation", r.nav.ID,
		"generation", r.nav.Generation,
		"path", r.nav.TargetPath,
		"error", err,
	)
	r.setIdle()
	r.emit(Event{State: Idle, Err: err})
	return err
}

func (r *run) setIdle() {
	r.c.mu.Lock()
	if r.c.generation.Load() == r.nav.Generation {
		r.c.state = Idle
	}
	r.c.mu.Unlock()
}

// transition moves the coordinator to s when this navigation is still the
// newest, and emits the event.
func (r *run) transition(s State) {
	r.c.mu.Lock()
	if r.c.generation.Load() == r.nav.Generation {
		r.c.state = s
	}
	r.c.mu.Unlock()
	r.emit(Event{State: s})
}

func (r *run) emit(e Event) {
	e.NavigationID = r.nav.ID
	e.Generation = r.nav.Generation
	e.Path = r.nav.TargetPath
	e.Redirects = r.nav.Redirects
	e.Elapsed = time.Since(r.start)

	r.c.obsMu.RLock()
	observers := append([]*subscription(nil), r.c.observers...)
	r.c.obsMu.RUnlock()

	for _, sub := range observers {
		sub.o.OnEvent(e)
	}
}

// usedParams keeps the params that fill a ":name" placeholder in target.
func usedParams(target string, params map[string]string) map[string]string {
	path, _ := routepath.SplitPathAndQuery(target)
	used := make(map[string]string)
	for _, seg := range routepath.Split(path) {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if v, ok := params[name]; ok {
				used[name] = v
			}
		}
	}
	return used
}
