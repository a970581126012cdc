package navigation

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/routepath"
	"github.com/vango-dev/waypoint/pkg/view"
)

// State is a step of the navigation state machine.
type State int

const (
	Idle State = iota
	Matching
	Guarding
	Resolving
	Loading
	Committed
	Cancelled
)

var stateNames = [...]string{
	Idle:      "idle",
	Matching:  "matching",
	Guarding:  "guarding",
	Resolving: "resolving",
	Loading:   "loading",
	Committed: "committed",
	Cancelled: "cancelled",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Commit is the result of a navigation that reached Committed.
type Commit struct {
	// ID identifies the navigation.
	ID string

	// Generation is the navigation's generation.
	Generation uint64

	// Requested is the target as passed to Navigate.
	Requested string

	// Path is the canonical path finally committed, after redirects.
	Path string

	// Query holds the committed query parameters.
	Query url.Values

	// Redirects lists the paths redirected through, in order.
	Redirects []string

	// Match is the committed match. Nil when NotFound is set.
	Match *router.MatchResult

	// NotFound reports that no route matched Path.
	NotFound bool

	// ViewID identifies the rendered view. Empty when the terminal route
	// carries no view.
	ViewID string

	// View is the instantiated view, or nil when ViewID is empty or no
	// not-found view is configured.
	View view.View

	// Data holds the resolved values.
	Data map[string]any

	// Title is the title of the matched chain.
	Title string

	// Cached reports whether the view factory came from the loader cache.
	Cached bool

	// At is when the commit happened.
	At time.Time
}

// URL returns Path with the committed query.
func (c *Commit) URL() string {
	return routepath.WithQuery(c.Path, c.Query)
}

// Event describes a state transition of one navigation.
type Event struct {
	NavigationID string
	Generation   uint64
	State        State

	// Path is the canonical path being processed. Empty before the first
	// match of a navigation.
	Path string

	// Redirects is the number of redirects taken so far.
	Redirects int

	// Err is set on aborted and cancelled navigations.
	Err error

	// Commit is set on Committed events.
	Commit *Commit

	// Elapsed is the time since the navigation started.
	Elapsed time.Duration
}

// Terminal reports whether the event ends its navigation.
func (e Event) Terminal() bool {
	return e.State == Committed || e.State == Cancelled || e.State == Idle
}

// Observer receives navigation events. OnEvent is called synchronously
// from the navigating goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// ErrCancelled matches every *CancelledError.
var ErrCancelled = errors.New("navigation cancelled")

// ErrNoHistory is returned by Back when there is nothing to go back to.
var ErrNoHistory = errors.New("no previous navigation")

// CancelledError reports a navigation that stopped before committing
// because a newer navigation superseded it or its context was cancelled.
type CancelledError struct {
	Path       string
	Generation uint64

	// Superseded is the generation that replaced this one, or 0 when the
	// caller's context was cancelled instead.
	Superseded uint64

	// Err is the context error when the caller cancelled.
	Err error
}

func (e *CancelledError) Error() string {
	if e.Superseded != 0 {
		return fmt.Sprintf("navigation to %q (generation %d) superseded by generation %d",
			e.Path, e.Generation, e.Superseded)
	}
	return fmt.Sprintf("navigation to %q (generation %d) cancelled: %v", e.Path, e.Generation, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }
