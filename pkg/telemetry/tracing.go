package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/waypoint/pkg/navigation"
)

const defaultTracerName = "waypoint"

// SpanName is the name of navigation spans.
const SpanName = "waypoint.navigate"

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "waypoint").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// IncludeQuery adds the committed query string to the span.
	// May contain sensitive information - disabled by default.
	IncludeQuery bool
}

// TracingOption configures the OpenTelemetry exporter.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer used for navigation spans.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithIncludeQuery enables recording the committed query.
func WithIncludeQuery(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeQuery = include
	}
}

// Tracing records each navigation as a span.
type Tracing struct {
	config TracingConfig
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTracing returns a tracing observer. The tracer comes from the global
// provider, so configure it before the first navigation:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerName == "" {
		config.TracerName = defaultTracerName
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Tracing{
		config: config,
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// OnEvent implements navigation.Observer.
func (t *Tracing) OnEvent(e navigation.Event) {
	span := t.span(e)

	attrs := []attribute.KeyValue{attribute.Int("waypoint.redirects", e.Redirects)}
	if e.Path != "" {
		attrs = append(attrs, attribute.String("waypoint.path", e.Path))
	}
	span.AddEvent(e.State.String(), trace.WithAttributes(attrs...))

	if !e.Terminal() {
		return
	}

	t.mu.Lock()
	delete(t.spans, e.NavigationID)
	t.mu.Unlock()

	outcome := Outcome(e)
	span.SetAttributes(
		attribute.String("waypoint.outcome", outcome),
		attribute.String("waypoint.path", e.Path),
		attribute.Int("waypoint.redirects", e.Redirects),
	)
	if c := e.Commit; c != nil {
		span.SetAttributes(
			attribute.String("waypoint.view", c.ViewID),
			attribute.Bool("waypoint.view_cached", c.Cached),
			attribute.Bool("waypoint.not_found", c.NotFound),
		)
		if c.Match != nil {
			span.SetAttributes(attribute.String("waypoint.route", c.Match.Leaf().FullPath()))
		}
		if t.config.IncludeQuery && len(c.Query) > 0 {
			span.SetAttributes(attribute.String("waypoint.query", c.Query.Encode()))
		}
	}

	switch {
	case e.State == navigation.Committed:
		span.SetStatus(codes.Ok, "")
	case e.Err != nil && outcome != OutcomeCancelled:
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	case e.Err != nil:
		span.SetStatus(codes.Unset, e.Err.Error())
	}
	span.End()
}

// Active returns the number of open navigation spans.
func (t *Tracing) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

func (t *Tracing) span(e navigation.Event) trace.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.spans[e.NavigationID]; ok {
		return span
	}
	_, span := t.tracer.Start(context.Background(), SpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(time.Now().Add(-e.Elapsed)),
		trace.WithAttributes(
			attribute.String("waypoint.navigation_id", e.NavigationID),
			attribute.Int64("waypoint.generation", int64(e.Generation)),
		),
	)
	t.spans[e.NavigationID] = span
	return span
}
