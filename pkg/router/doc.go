// Package router implements the declarative route table of waypoint and the
// pure steps of a navigation: path matching, the guard chain and the
// resolver fan-out.
//
// The router provides:
//   - An immutable route tree built once from declarative Route values
//   - Depth-first matching with literal > parameter > wildcard precedence
//   - A sequential, short-circuiting guard chain
//   - A concurrent, fail-fast resolver executor
//   - Binding of matched parameters and query values into tagged structs
//
// # Patterns
//
// A route pattern is a "/"-separated list of segments:
//
//	"admin"          literal
//	"users/:id"      literal followed by a parameter
//	"docs/**"        literal followed by an unnamed wildcard
//	"files/*path"    named wildcard; binds the decoded tail to "path"
//	""               default child, consumes nothing
//
// A wildcard must be the last segment of a pattern. Siblings with an
// identical pattern are rejected by NewTable.
//
// # Usage
//
//	table, err := router.NewTable(
//	    router.Route{Path: "", View: "home"},
//	    router.Route{
//	        Path:   "admin",
//	        Guards: []router.Guard{isAdmin},
//	        Children: []router.Route{
//	            {Path: "users", View: "admin.users"},
//	        },
//	    },
//	    router.Route{Path: "**", View: "not-found"},
//	)
//
//	m, err := table.Match("/admin/users")
//	// m.Chain = [admin, users], m.Leaf().View() == "admin.users"
//
// Navigation sequencing, cancellation and view loading live in the
// navigation and loader packages.
package router
