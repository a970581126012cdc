package router

import (
	"context"
	"net/url"
)

// Route is the declarative definition of one node of the route table.
// Routes are copied into immutable Nodes by NewTable; later changes to a
// Route value have no effect on a built table.
type Route struct {
	// Path is the pattern matched against path segments (e.g. "users/:id").
	Path string

	// View is the stable identifier of the view to load when this route is
	// the terminal match. Empty for pure grouping or redirect routes.
	View string

	// Title is a human-readable title for the matched page.
	Title string

	// RedirectTo sends the navigation elsewhere when this route is the
	// terminal match. It may contain ":name" placeholders filled from the
	// matched parameters.
	RedirectTo string

	// Children are nested routes, tried in declared order within each
	// precedence class.
	Children []Route

	// Guards run before the navigation activates this route.
	Guards []Guard

	// ChildGuards run once before the navigation activates any descendant.
	ChildGuards []Guard

	// Resolvers prefetch data when this route is the terminal match.
	Resolvers map[string]Resolver

	// Data is opaque metadata, readable by guards, resolvers and views.
	Data map[string]any
}

// Session is an explicit, caller-owned view of the ambient application
// state (identity, roles, feature flags) that guards may consult.
type Session interface {
	Value(key string) (any, bool)
}

// NavigationContext describes one navigation attempt.
type NavigationContext struct {
	// ID uniquely identifies the navigation for logs and traces.
	ID string

	// TargetPath is the canonical path being navigated to.
	TargetPath string

	// Query holds the query parameters of the target.
	Query url.Values

	// Previous is the match of the last committed navigation, if any.
	Previous *MatchResult

	// Generation is the cancellation token. A step whose captured
	// generation no longer equals the coordinator's current one must not
	// apply side effects.
	Generation uint64

	// Redirects counts redirect hops taken so far by this navigation.
	Redirects int

	// Session is the caller-supplied session, or nil.
	Session Session
}

// SessionValue returns a session value, or nil when there is no session.
func (n *NavigationContext) SessionValue(key string) any {
	if n == nil || n.Session == nil {
		return nil
	}
	v, _ := n.Session.Value(key)
	return v
}

// Guard decides whether a navigation may proceed.
// Check must honour ctx cancellation when it blocks.
type Guard interface {
	Check(ctx context.Context, m *MatchResult, nav *NavigationContext) (Outcome, error)
}

// GuardFunc is a function adapter for Guard.
type GuardFunc func(ctx context.Context, m *MatchResult, nav *NavigationContext) (Outcome, error)

// Check implements Guard.
func (f GuardFunc) Check(ctx context.Context, m *MatchResult, nav *NavigationContext) (Outcome, error) {
	return f(ctx, m, nav)
}

// namedGuard attaches a name used in logs and denial reports.
type namedGuard struct {
	name string
	Guard
}

func (g namedGuard) Name() string { return g.name }

// Named wraps g so its name appears in logs and GuardDeniedError.
func Named(name string, g Guard) Guard {
	return namedGuard{name: name, Guard: g}
}

// Resolver fetches one value for the terminal route before the view is
// instantiated.
type Resolver interface {
	Resolve(ctx context.Context, m *MatchResult, nav *NavigationContext) (any, error)
}

// ResolverFunc is a function adapter for Resolver.
type ResolverFunc func(ctx context.Context, m *MatchResult, nav *NavigationContext) (any, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, m *MatchResult, nav *NavigationContext) (any, error) {
	return f(ctx, m, nav)
}

// OutcomeKind is the verdict of a guard.
type OutcomeKind int

const (
	// outcomeUnset is the zero value; the chain treats it as a denial so a
	// forgotten return value never admits a navigation.
	outcomeUnset OutcomeKind = iota
	OutcomeAllow
	OutcomeDeny
	OutcomeRedirect
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unset"
	}
}

// Outcome is the result of a guard or of the whole guard chain.
type Outcome struct {
	Kind OutcomeKind

	// Reason is an optional code explaining a denial.
	Reason string

	// Target and Params describe a redirect.
	Target string
	Params map[string]string

	// Guard names the guard that produced a non-allow outcome.
	Guard string

	// Err is set when the denial came from a failing guard.
	Err error
}

// Allow admits the navigation.
func Allow() Outcome {
	return Outcome{Kind: OutcomeAllow}
}

// Deny aborts the navigation. reason is optional.
func Deny(reason string) Outcome {
	return Outcome{Kind: OutcomeDeny, Reason: reason}
}

// Redirect aborts the navigation and starts a new one at target.
// params fill ":name" placeholders in target; the rest become query values.
func Redirect(target string, params map[string]string) Outcome {
	return Outcome{Kind: OutcomeRedirect, Target: target, Params: params}
}

// Allowed reports whether the outcome admits the navigation.
func (o Outcome) Allowed() bool {
	return o.Kind == OutcomeAllow
}
