package router

import (
	"context"
	"fmt"
	"log/slog"
)

// GuardChain runs the guards of a match sequentially.
type GuardChain struct {
	logger *slog.Logger
}

// NewGuardChain creates a guard chain. A nil logger uses slog.Default().
func NewGuardChain(logger *slog.Logger) *GuardChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardChain{logger: logger}
}

// Run evaluates the guards of m from the outermost node to the leaf. For
// each node its Guards run in declared order, followed by its ChildGuards
// when the node is not the leaf. The first outcome that is not Allow stops
// the chain and is returned.
//
// A guard that returns an error, panics, returns the zero Outcome or
// redirects to an empty target counts as Deny. A cancelled ctx is checked
// before each guard and also yields Deny.
func (c *GuardChain) Run(ctx context.Context, m *MatchResult, nav *NavigationContext) Outcome {
	leaf := m.Leaf()
	for _, node := range m.Chain {
		if out, stop := c.runAll(ctx, node.guards, m, nav); stop {
			return out
		}
		if node != leaf {
			if out, stop := c.runAll(ctx, node.childGuards, m, nav); stop {
				return out
			}
		}
	}
	return Allow()
}

func (c *GuardChain) runAll(ctx context.Context, guards []Guard, m *MatchResult, nav *NavigationContext) (Outcome, bool) {
	for _, g := range guards {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: OutcomeDeny, Reason: "cancelled", Err: err}, true
		}
		out := c.check(ctx, g, m, nav)
		if !out.Allowed() {
			return out, true
		}
	}
	return Outcome{}, false
}

// check runs a single guard and normalizes its result.
func (c *GuardChain) check(ctx context.Context, g Guard, m *MatchResult, nav *NavigationContext) (out Outcome) {
	name := GuardName(g)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("guard %s panicked: %v", name, r)
			c.logger.Warn("guard panicked", "guard", name, "path", m.Path(), "error", err)
			out = Outcome{Kind: OutcomeDeny, Reason: "guard panicked", Guard: name, Err: err}
		}
	}()

	out, err := g.Check(ctx, m, nav)
	if err != nil {
		c.logger.Warn("guard failed", "guard", name, "path", m.Path(), "error", err)
		return Outcome{Kind: OutcomeDeny, Reason: "guard failed", Guard: name, Err: err}
	}

	switch out.Kind {
	case OutcomeAllow:
		return out
	case OutcomeDeny:
	case OutcomeRedirect:
		if out.Target == "" {
			c.logger.Warn("guard redirected to empty target", "guard", name, "path", m.Path())
			out = Outcome{Kind: OutcomeDeny, Reason: "empty redirect target"}
		}
	default:
		c.logger.Warn("guard returned no outcome", "guard", name, "path", m.Path())
		out = Outcome{Kind: OutcomeDeny, Reason: "no outcome"}
	}

	out.Guard = name
	c.logger.Debug("guard stopped navigation",
		"guard", name,
		"outcome", out.Kind.String(),
		"reason", out.Reason,
		"path", m.Path(),
	)
	return out
}

// GuardName returns the name given to g by Named, or its Go type.
func GuardName(g Guard) string {
	if n, ok := g.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", g)
}
