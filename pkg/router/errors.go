package router

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrNoMatch      = errors.New("no matching route")
	ErrDenied       = errors.New("navigation denied")
	ErrRedirectLoop = errors.New("redirect loop")
	ErrResolve      = errors.New("resolve failed")
)

// NoMatchError is returned when no route matches a path.
type NoMatchError struct {
	Path string

	// Err is set when the path itself was rejected before matching.
	Err error
}

func (e *NoMatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no route matches %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("no route matches %q", e.Path)
}

func (e *NoMatchError) Unwrap() error { return e.Err }

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// GuardDeniedError reports a navigation aborted by a guard.
type GuardDeniedError struct {
	Path   string
	Reason string
	Guard  string

	// Err is the failure of the guard, if it failed rather than denied.
	Err error
}

func (e *GuardDeniedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "navigation to %q denied", e.Path)
	if e.Guard != "" {
		fmt.Fprintf(&b, " by %s", e.Guard)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GuardDeniedError) Unwrap() error { return e.Err }

func (e *GuardDeniedError) Is(target error) bool { return target == ErrDenied }

// RedirectLoopError reports a navigation that exceeded the redirect cap.
type RedirectLoopError struct {
	// Path is the original navigation target.
	Path string

	// Hops is the number of redirects followed.
	Hops int

	// Trail lists the visited paths in order.
	Trail []string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop navigating to %q after %d hops: %s",
		e.Path, e.Hops, strings.Join(e.Trail, " -> "))
}

func (e *RedirectLoopError) Is(target error) bool { return target == ErrRedirectLoop }

// ResolveError reports a failed resolver. No partial results accompany it.
type ResolveError struct {
	Key  string
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolver %q for %q: %v", e.Key, e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool { return target == ErrResolve }
