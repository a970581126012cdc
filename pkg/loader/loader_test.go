package loader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testTable(t *testing.T) *router.Table {
	t.Helper()
	table, err := router.NewTable(
		router.Route{Path: "home", View: "home"},
		router.Route{Path: "about", View: "about"},
		router.Route{Path: "group"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func node(t *testing.T, table *router.Table, path string) *router.Node {
	t.Helper()
	m, err := table.Match(path)
	if err != nil {
		t.Fatal(err)
	}
	return m.Leaf()
}

func TestLoadCaches(t *testing.T) {
	var calls atomic.Int64
	l := New(FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		calls.Inc()
		return view.Static(id), nil
	}), WithLogger(quiet))

	table := testTable(t)
	home := node(t, table, "/home")

	first, err := l.Load(context.Background(), home)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || first.Node != home {
		t.Errorf("first load = %+v", first)
	}

	second, err := l.Load(context.Background(), home)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second load should be cached")
	}
	if calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", calls.Load())
	}

	stats := l.Stats()
	if stats.Fetches != 1 || stats.Hits != 1 || stats.Cached != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestLoadSingleFlight(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	l := New(FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		calls.Inc()
		started <- struct{}{}
		<-release
		return view.Static(id), nil
	}), WithLogger(quiet))

	home := node(t, testTable(t), "/home")

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), home)
			errs <- err
		}()
	}

	<-started
	// Give the other callers time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("fetches = %d, want exactly 1", calls.Load())
	}
}

func TestLoadUnrelatedNodesInParallel(t *testing.T) {
	var inFlight, peak atomic.Int64
	l := New(FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		n := inFlight.Inc()
		defer inFlight.Dec()
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return view.Static(id), nil
	}), WithLogger(quiet))

	table := testTable(t)
	var wg sync.WaitGroup
	for _, path := range []string{"/home", "/about"} {
		n := node(t, table, path)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(context.Background(), n); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() != 2 {
		t.Errorf("peak = %d, unrelated nodes should load in parallel", peak.Load())
	}
}

func TestLoadFailureNotCached(t *testing.T) {
	boom := errors.New("registry offline")
	var fail atomic.Bool
	fail.Store(true)
	var calls atomic.Int64

	l := New(FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		calls.Inc()
		if fail.Load() {
			return nil, boom
		}
		return view.Static(id), nil
	}), WithLogger(quiet))

	home := node(t, testTable(t), "/home")

	_, err := l.Load(context.Background(), home)
	var le *LoadError
	if !errors.As(err, &le) || le.ViewID != "home" || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if l.Cached(home) {
		t.Fatal("failure was cached")
	}

	fail.Store(false)
	lv, err := l.Load(context.Background(), home)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if lv.Cached || calls.Load() != 2 {
		t.Errorf("retry did not refetch: cached=%v calls=%d", lv.Cached, calls.Load())
	}
	if l.Stats().Failures != 1 {
		t.Errorf("failures = %d", l.Stats().Failures)
	}
}

func TestLoadRecoversFetcherPanic(t *testing.T) {
	l := New(FetcherFunc(func(context.Context, string) (view.Factory, error) {
		panic("bad plugin")
	}), WithLogger(quiet))

	_, err := l.Load(context.Background(), node(t, testTable(t), "/home"))
	var le *LoadError
	if !errors.As(err, &le) || !strings.Contains(err.Error(), "panicked") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadNilFactory(t *testing.T) {
	l := New(FetcherFunc(func(context.Context, string) (view.Factory, error) {
		return nil, nil
	}), WithLogger(quiet))

	if _, err := l.Load(context.Background(), node(t, testTable(t), "/home")); err == nil {
		t.Error("expected error for nil factory")
	}
}

func TestLoadNoView(t *testing.T) {
	l := New(FetcherFunc(func(context.Context, string) (view.Factory, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	}))

	_, err := l.Load(context.Background(), node(t, testTable(t), "/group"))
	if !errors.Is(err, ErrNoView) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadCallerCancellationDoesNotFailOthers(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	l := New(FetcherFunc(func(ctx context.Context, id string) (view.Factory, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return view.Static(id), nil
	}), WithLogger(quiet))

	home := node(t, testTable(t), "/home")

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, home)
		firstErr <- err
	}()

	<-started
	secondDone := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), home)
		secondDone <- err
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v", err)
	}

	close(release)
	if err := <-secondDone; err != nil {
		t.Errorf("second caller err = %v", err)
	}
	if !l.Cached(home) {
		t.Error("fetch result should be cached")
	}
}

func TestEvictAndPurge(t *testing.T) {
	var calls atomic.Int64
	l := New(FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		calls.Inc()
		return view.Static(id), nil
	}), WithLogger(quiet))

	table := testTable(t)
	home, about := node(t, table, "/home"), node(t, table, "/about")

	if err := l.Preload(context.Background(), table); err != nil {
		t.Fatal(err)
	}
	if l.Stats().Cached != 2 {
		t.Fatalf("cached = %d", l.Stats().Cached)
	}

	l.Evict(home)
	if l.Cached(home) || !l.Cached(about) {
		t.Error("Evict removed the wrong entry")
	}
	if _, err := l.Load(context.Background(), home); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	l.Purge()
	if l.Stats().Cached != 0 {
		t.Error("Purge left entries")
	}
}

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"views/user.tmpl": "user {{.Param \"id\"}}",
		"views/big.tmpl":  strings.Repeat("x", 64),
	}}
	f := NewS3Fetcher(client, "site", "views/").WithMaxSize(32)

	factory, err := f.Fetch(context.Background(), "user")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := factory(view.Props{ViewID: "user", Params: map[string]string{"id": "9"}})
	got, err := view.RenderToString(v)
	if err != nil || got != "user 9" {
		t.Errorf("render = %q, %v", got, err)
	}
	if client.keys[0] != "site/views/user.tmpl" {
		t.Errorf("key = %q", client.keys[0])
	}

	if _, err := f.Fetch(context.Background(), "missing"); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := f.Fetch(context.Background(), "big"); err == nil {
		t.Error("expected size error")
	}
}

func TestChain(t *testing.T) {
	miss := FetcherFunc(func(context.Context, string) (view.Factory, error) {
		return nil, ErrViewNotFound
	})
	hit := FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		return view.Static("from second"), nil
	})

	factory, err := Chain(miss, hit).Fetch(context.Background(), "x")
	if err != nil || factory == nil {
		t.Fatalf("Chain = %v", err)
	}

	if _, err := Chain(miss).Fetch(context.Background(), "x"); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("err = %v", err)
	}
}
