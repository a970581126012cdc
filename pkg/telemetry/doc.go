// Package telemetry observes navigations and exports what it sees as
// Prometheus metrics and OpenTelemetry spans.
//
// Both exporters implement navigation.Observer and are attached with
// Coordinator.Subscribe or navigation.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	m.RegisterLoader(l)
//
//	coord := navigation.New(table, l,
//	    navigation.WithObserver(m),
//	    navigation.WithObserver(telemetry.NewTracing()),
//	)
//
// # Prometheus Metrics
//
// With the default namespace the following series are exported:
//   - waypoint_navigations_total{outcome}: finished navigations
//   - waypoint_navigation_duration_seconds{outcome}: time to the terminal event
//   - waypoint_navigations_in_flight: navigations without a terminal event yet
//   - waypoint_redirects_total: redirects followed
//   - waypoint_views_committed_total{view}: commits per view id
//   - waypoint_loader_*: loader cache statistics, after RegisterLoader
//
// # Tracing
//
// Tracing opens one span per navigation and records each state transition
// as a span event. The span ends with the navigation's terminal event.
// Spans are created from the global tracer provider unless WithTracer is
// given.
package telemetry
