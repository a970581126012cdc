package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

type recordingTracer struct {
	embedded.Tracer

	mu    sync.Mutex
	spans []*recordingSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		s.attrs[kv.Key] = kv.Value
	}
	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func (r *recordingTracer) recorded() []*recordingSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*recordingSpan(nil), r.spans...)
}

type recordingSpan struct {
	noop.Span

	name   string
	attrs  map[attribute.Key]attribute.Value
	events []string
	errs   []error
	code   codes.Code
	desc   string
	ended  bool
}

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) SetStatus(code codes.Code, desc string) {
	s.code, s.desc = code, desc
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func (s *recordingSpan) IsRecording() bool { return !s.ended }

func TestTracing_SpanPerNavigation(t *testing.T) {
	rt := &recordingTracer{}
	tr := NewTracing(WithTracer(rt), WithIncludeQuery(true))

	tr.OnEvent(navigation.Event{NavigationID: "n1", Generation: 3, State: navigation.Matching, Path: "/a"})
	tr.OnEvent(navigation.Event{NavigationID: "n2", Generation: 4, State: navigation.Matching, Path: "/b"})
	if got := tr.Active(); got != 2 {
		t.Fatalf("Active() = %d, want 2", got)
	}
	tr.OnEvent(navigation.Event{NavigationID: "n1", State: navigation.Cancelled, Path: "/a",
		Err: &navigation.CancelledError{Path: "/a", Generation: 3, Superseded: 4}})
	tr.OnEvent(navigation.Event{NavigationID: "n2", State: navigation.Loading, Path: "/b"})
	tr.OnEvent(navigation.Event{NavigationID: "n2", State: navigation.Committed, Path: "/b",
		Commit: &navigation.Commit{ViewID: "b", Cached: true}})

	if got := tr.Active(); got != 0 {
		t.Fatalf("Active() = %d, want 0", got)
	}
	spans := rt.recorded()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}

	a, b := spans[0], spans[1]
	if a.name != SpanName || !a.ended {
		t.Fatalf("span a = %q ended=%v", a.name, a.ended)
	}
	if got := a.attrs["waypoint.generation"].AsInt64(); got != 3 {
		t.Fatalf("generation attr = %d, want 3", got)
	}
	if a.attrs["waypoint.outcome"].AsString() != OutcomeCancelled {
		t.Fatalf("outcome = %q", a.attrs["waypoint.outcome"].AsString())
	}
	if a.code != codes.Unset || len(a.errs) != 0 {
		t.Fatalf("cancelled span status = %v errs=%v", a.code, a.errs)
	}

	if diff := cmp.Diff([]string{"matching", "loading", "committed"}, b.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if b.code != codes.Ok {
		t.Fatalf("committed span status = %v", b.code)
	}
	if b.attrs["waypoint.view"].AsString() != "b" || !b.attrs["waypoint.view_cached"].AsBool() {
		t.Fatalf("commit attrs = %v", b.attrs)
	}
}

func TestTracing_RecordsFailure(t *testing.T) {
	rt := &recordingTracer{}
	tr := NewTracing(WithTracer(rt))

	denied := &router.GuardDeniedError{Path: "/admin", Reason: "not an admin"}
	tr.OnEvent(navigation.Event{NavigationID: "n1", State: navigation.Guarding, Path: "/admin"})
	tr.OnEvent(navigation.Event{NavigationID: "n1", State: navigation.Idle, Path: "/admin", Err: denied})

	span := rt.recorded()[0]
	if span.code != codes.Error || span.desc != denied.Error() {
		t.Fatalf("status = %v %q", span.code, span.desc)
	}
	if len(span.errs) != 1 || !errors.Is(span.errs[0], router.ErrDenied) {
		t.Fatalf("recorded errors = %v", span.errs)
	}
	if span.attrs["waypoint.outcome"].AsString() != OutcomeDenied {
		t.Fatalf("outcome = %q", span.attrs["waypoint.outcome"].AsString())
	}
}

func TestTracing_WithCoordinator(t *testing.T) {
	reg := registry.New()
	if err := reg.RegisterView("user", view.Static("user")); err != nil {
		t.Fatal(err)
	}
	table := router.MustTable(router.Route{Path: "users/:id", View: "user"})

	rt := &recordingTracer{}
	coord := navigation.New(table, loader.New(reg, loader.WithLogger(quiet)),
		navigation.WithLogger(quiet),
		navigation.WithObserver(NewTracing(WithTracer(rt))),
	)
	if _, err := coord.Navigate(context.Background(), "/users/7"); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}

	spans := rt.recorded()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if !span.ended || span.code != codes.Ok {
		t.Fatalf("span ended=%v status=%v", span.ended, span.code)
	}
	if got := span.attrs["waypoint.route"].AsString(); got != "/users/:id" {
		t.Fatalf("route attr = %q", got)
	}
	if got := span.attrs["waypoint.path"].AsString(); got != "/users/7" {
		t.Fatalf("path attr = %q", got)
	}
}

func TestNewTracing_DefaultTracer(t *testing.T) {
	tr := NewTracing(WithTracerName(""))
	if tr.config.TracerName != defaultTracerName {
		t.Fatalf("TracerName = %q", tr.config.TracerName)
	}
	// The global provider is a no-op until configured.
	tr.OnEvent(navigation.Event{NavigationID: "n", State: navigation.Committed, Commit: &navigation.Commit{}})
	if tr.Active() != 0 {
		t.Fatal("span left open")
	}
}
