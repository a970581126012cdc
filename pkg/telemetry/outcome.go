package telemetry

import (
	"errors"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/router"
)

// Outcome labels values.
const (
	OutcomeCommitted    = "committed"
	OutcomeNotFound     = "not_found"
	OutcomeCancelled    = "cancelled"
	OutcomeDenied       = "denied"
	OutcomeRedirectLoop = "redirect_loop"
	OutcomeResolveError = "resolve_error"
	OutcomeLoadError    = "load_error"
	OutcomeInvalidPath  = "invalid_path"
	OutcomeError        = "error"
)

// Outcome classifies a terminal event. Non-terminal events return "".
func Outcome(e navigation.Event) string {
	switch e.State {
	case navigation.Committed:
		if e.Commit != nil && e.Commit.NotFound {
			return OutcomeNotFound
		}
		return OutcomeCommitted
	case navigation.Cancelled:
		return OutcomeCancelled
	case navigation.Idle:
		return Classify(e.Err)
	}
	return ""
}

// Classify returns the outcome label of a navigation error.
func Classify(err error) string {
	var loadErr *loader.LoadError
	switch {
	case err == nil:
		return OutcomeError
	case errors.Is(err, navigation.ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, router.ErrDenied):
		return OutcomeDenied
	case errors.Is(err, router.ErrRedirectLoop):
		return OutcomeRedirectLoop
	case errors.Is(err, router.ErrResolve):
		return OutcomeResolveError
	case errors.As(err, &loadErr):
		return OutcomeLoadError
	case errors.Is(err, router.ErrNoMatch):
		return OutcomeInvalidPath
	}
	return OutcomeError
}
