package waypoint

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/waypoint/internal/catalog"
	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func demoRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, catalog.Register(reg, catalog.DemoDirectory()))
	return reg
}

func TestNew_FromRoutesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, catalog.Routes(), 0644))

	session := catalog.NewSession()
	app, err := New(context.Background(), Config{
		RoutesFile: path,
		Registry:   demoRegistry(t),
		NotFound:   catalog.NotFoundView,
		Session:    session,
		Preload:    true,
		Logger:     quiet,
	})
	require.NoError(t, err)

	assert.Equal(t, len(catalog.ViewIDs())-1, app.Loader().Stats().Cached,
		"every routed view is preloaded; the not-found view is not routed")

	c, err := app.Navigate(context.Background(), "/users/3")
	require.NoError(t, err)
	assert.True(t, c.Cached)
	assert.Equal(t, "users.detail", c.ViewID)

	m, err := app.Match("/admin/users/1")
	require.NoError(t, err)
	assert.Equal(t, "admin.user", m.Leaf().View())

	_, err = app.Navigate(context.Background(), "/")
	require.NoError(t, err)
	c, err = app.Back(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/users/3", c.Path)
	assert.Equal(t, c, app.Current())
}

func TestNew_MissingRoutesFile(t *testing.T) {
	_, err := New(context.Background(), Config{RoutesFile: "does-not-exist.yaml", Logger: quiet})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "W200")
}

func TestNew_FallbackFetcher(t *testing.T) {
	remote := loader.FetcherFunc(func(_ context.Context, id string) (view.Factory, error) {
		return view.Static("remote " + id), nil
	})
	app, err := New(context.Background(), Config{
		Table:    router.MustTable(router.Route{Path: "x", View: "remote.x"}),
		Fetchers: []loader.Fetcher{remote},
		Logger:   quiet,
	})
	require.NoError(t, err)

	c, err := app.Navigate(context.Background(), "/x")
	require.NoError(t, err)
	out, err := view.RenderToString(c.View)
	require.NoError(t, err)
	assert.Equal(t, "remote remote.x", out)
}

func TestApp_MetricsAndHandler(t *testing.T) {
	reg := demoRegistry(t)
	table, err := catalog.Table(reg)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		last navigation.State
	)
	app, err := New(context.Background(), Config{
		Table:    table,
		Registry: reg,
		Metrics:  true,
		Tracing:  true,
		Logger:   quiet,
		Observers: []navigation.Observer{navigation.ObserverFunc(func(e navigation.Event) {
			mu.Lock()
			last = e.State
			mu.Unlock()
		})},
	})
	require.NoError(t, err)
	require.NotNil(t, app.Metrics())

	srv := app.Handler()
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/navigate?path=/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mu.Lock()
	assert.Equal(t, navigation.Committed, last)
	mu.Unlock()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), `waypoint_views_committed_total{view="home"} 1`), string(body))
	assert.Contains(t, string(body), "waypoint_loader_fetches_total 1")
}
