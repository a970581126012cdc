// Package host exposes a navigation coordinator over HTTP.
//
// Routes:
//
//	GET  /navigate?path=/users/7   navigate and return the commit as JSON
//	GET  /render?path=/users/7     navigate and return the rendered view
//	POST /back                     return to the previous commit
//	GET  /current                  the current commit, or 204
//	GET  /routes                   the route table
//	GET  /events                   WebSocket stream of navigation events
//	GET  /metrics                  Prometheus metrics, when configured
//	GET  /healthz                  liveness
//
// Failed navigations answer with a JSON error whose "outcome" field is the
// telemetry outcome label (denied, redirect_loop, resolve_error, ...).
package host
