// Package errors provides structured, actionable errors for waypoint's
// configuration, route-table and command-line surfaces.
//
// Each error carries a registered code (e.g. "W201") that maps to a
// category and a short message, plus optional detail, a suggestion, a
// wrapped cause and a source location. Route-table files report the
// YAML line of the offending node so the formatted error can show the
// surrounding lines:
//
//	err := errors.New("W201").
//	    WithLocation("routes.yaml", 14, 7).
//	    WithDetail(`guard "isAdmin" is not registered`).
//	    WithSuggestion("Register the guard before loading the table")
//
//	errors.PrintError(err)
//	// ERROR W201: Unknown guard reference
//	//
//	//   routes.yaml:14:7
//	//   ...
//
// Navigation-time failures (no match, denied, redirect loop, resolve and
// load failures) are not represented here; they are typed errors of the
// router, loader and navigation packages so callers can use errors.As.
package errors
