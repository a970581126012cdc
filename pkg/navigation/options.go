package navigation

import (
	"log/slog"
	"net/url"

	"github.com/vango-dev/waypoint/pkg/router"
)

// DefaultMaxRedirects is the default redirect cap per navigation.
const DefaultMaxRedirects = 10

// DefaultHistoryLimit is the default number of entries kept for Back.
const DefaultHistoryLimit = 50

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotFound sets the view rendered when no route matches.
// Without it, unmatched paths commit with no view.
func WithNotFound(viewID string) Option {
	return func(c *Coordinator) {
		c.notFoundView = viewID
	}
}

// WithMaxRedirects sets how many redirects one navigation may follow
// before it fails with a *router.RedirectLoopError. Values below 1 are
// ignored.
func WithMaxRedirects(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRedirects = n
		}
	}
}

// WithHistoryLimit bounds the Back history.
func WithHistoryLimit(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithSession sets the session passed to guards and resolvers.
func WithSession(s router.Session) Option {
	return func(c *Coordinator) {
		c.session = s
	}
}

// WithObserver subscribes o at construction.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observers = append(c.observers, &subscription{o: o})
		}
	}
}

// NavigateOption configures a single navigation.
type NavigateOption func(*navigateConfig)

type navigateConfig struct {
	query   url.Values
	replace bool
	back    bool
}

// WithQuery adds query parameters to the target. Values already present in
// the target string are kept; query adds to them.
func WithQuery(query url.Values) NavigateOption {
	return func(cfg *navigateConfig) {
		cfg.query = query
	}
}

// Replace commits without pushing the current entry onto the history.
func Replace() NavigateOption {
	return func(cfg *navigateConfig) {
		cfg.replace = true
	}
}
