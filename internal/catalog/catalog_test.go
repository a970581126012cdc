package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type demo struct {
	session *Session
	dir     *Directory
	reg     *registry.Registry
	coord   *navigation.Coordinator
}

func newDemo(t *testing.T) *demo {
	t.Helper()
	d := &demo{session: NewSession(), dir: DemoDirectory(), reg: registry.New()}
	require.NoError(t, Register(d.reg, d.dir))
	table, err := Table(d.reg)
	require.NoError(t, err)
	d.coord = navigation.New(table, loader.New(d.reg, loader.WithLogger(quiet)),
		navigation.WithLogger(quiet),
		navigation.WithSession(d.session),
		navigation.WithNotFound(NotFoundView),
	)
	return d
}

func (d *demo) navigate(t *testing.T, target string) (*navigation.Commit, string) {
	t.Helper()
	c, err := d.coord.Navigate(context.Background(), target)
	require.NoError(t, err, "navigate %s", target)
	out, err := view.RenderToString(c.View)
	require.NoError(t, err)
	return c, out
}

func TestTable_ReferencesResolve(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg, DemoDirectory()))

	table, err := Table(reg)
	require.NoError(t, err)

	table.Walk(func(n *router.Node, _ int) bool {
		if id := n.View(); id != "" {
			assert.True(t, reg.HasView(id), "view %s of %s is not registered", id, n)
		}
		return true
	})
	assert.Contains(t, ViewIDs(), NotFoundView)
	assert.Equal(t, []string{"auth", "feature", "maintenance", "role"}, reg.Guards())
	assert.Equal(t, []string{"currentUser", "listUsers", "loadUser"}, reg.Resolvers())
}

func TestRegister_Twice(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg, DemoDirectory()))
	assert.ErrorIs(t, Register(reg, DemoDirectory()), registry.ErrDuplicate)
}

func TestNavigate_Public(t *testing.T) {
	d := newDemo(t)

	c, out := d.navigate(t, "/")
	assert.Equal(t, "home", c.ViewID)
	assert.Contains(t, out, "<h1>Home</h1>")

	c, out = d.navigate(t, "/users/2")
	assert.Equal(t, "users.detail", c.ViewID)
	assert.Equal(t, "Users", c.Title)
	assert.Contains(t, out, "Alan Turing")
	assert.Contains(t, out, "Roles: editor")

	c, out = d.navigate(t, "/users")
	assert.Equal(t, "users.list", c.ViewID)
	assert.Contains(t, out, `<a href="/users/3">Grace Hopper</a>`)

	c, _ = d.navigate(t, "/u/3")
	assert.Equal(t, "/users/3", c.Path)
	assert.Equal(t, []string{"/u/3"}, c.Redirects)

	c, out = d.navigate(t, "/docs/guide/intro")
	assert.Equal(t, "docs", c.ViewID)
	assert.Contains(t, out, "Page: guide/intro")
}

func TestNavigate_UsersFilteredByRole(t *testing.T) {
	d := newDemo(t)

	c, out := d.navigate(t, "/users?role=editor")
	assert.Equal(t, "users.list", c.ViewID)
	assert.Contains(t, out, `<a href="/users/2">Alan Turing</a>`)
	assert.NotContains(t, out, "Ada Lovelace")
	assert.NotContains(t, out, "Grace Hopper")

	_, out = d.navigate(t, "/users?role=nobody")
	assert.NotContains(t, out, "<li>")
}

func TestNavigate_NotFound(t *testing.T) {
	d := newDemo(t)

	c, out := d.navigate(t, "/nowhere/at/all")
	assert.True(t, c.NotFound)
	assert.Equal(t, NotFoundView, c.ViewID)
	assert.Contains(t, out, "Nothing lives at /nowhere/at/all.")
}

func TestNavigate_AuthRedirectsToLogin(t *testing.T) {
	d := newDemo(t)

	c, out := d.navigate(t, "/admin/users")
	assert.Equal(t, LoginPath, c.Path)
	assert.Equal(t, "/admin/users", c.Query.Get("next"))
	assert.Contains(t, out, `value="/admin/users"`)
}

func TestNavigate_RoleDenied(t *testing.T) {
	d := newDemo(t)
	d.session.SignIn("2", "editor")

	_, err := d.coord.Navigate(context.Background(), "/admin/users")
	require.ErrorIs(t, err, router.ErrDenied)

	var denied *router.GuardDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "role", denied.Guard)
	assert.Equal(t, "missing role admin", denied.Reason)
	assert.Nil(t, d.coord.Current())
}

func TestNavigate_Admin(t *testing.T) {
	d := newDemo(t)
	d.session.SignIn("1", "admin")

	c, out := d.navigate(t, "/admin")
	assert.Equal(t, "/admin/users", c.Path)
	assert.Equal(t, "admin.users", c.ViewID)
	assert.Contains(t, out, "<td>Ada Lovelace</td>")

	_, err := d.coord.Navigate(context.Background(), "/admin/beta")
	require.ErrorIs(t, err, router.ErrDenied)
	assert.Equal(t, "/admin/users", d.coord.Current().Path, "denied navigation must keep the committed view")

	d.session.Enable("beta")
	c, out = d.navigate(t, "/admin/beta")
	assert.Equal(t, "admin.beta", c.ViewID)
	assert.Contains(t, out, "<h1>BETA</h1>")
}

func TestNavigate_Dashboard(t *testing.T) {
	d := newDemo(t)
	d.session.SignIn("3")

	c, out := d.navigate(t, "/old-dashboard")
	assert.Equal(t, "/dashboard", c.Path)
	assert.Contains(t, out, "Signed in as Grace Hopper (grace@example.com)")

	d.session.SetMaintenance(true)
	c, _ = d.navigate(t, "/dashboard")
	assert.Equal(t, MaintenancePath, c.Path)
	assert.Equal(t, "maintenance", c.ViewID)
}

func TestNavigate_UnknownUser(t *testing.T) {
	d := newDemo(t)

	_, err := d.coord.Navigate(context.Background(), "/users/42")
	require.ErrorIs(t, err, router.ErrResolve)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var rerr *router.ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "user", rerr.Key)
}

func TestSession(t *testing.T) {
	s := NewSession()
	_, ok := s.Value(KeyUser)
	assert.False(t, ok)

	s.SignIn("1", "admin", "editor")
	v, ok := s.Value(KeyRoles)
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "editor"}, v)

	s.Enable("beta")
	s.Enable("beta")
	v, _ = s.Value(KeyFeatures)
	assert.Equal(t, []string{"beta"}, v)

	s.SignOut()
	_, ok = s.Value(KeyUser)
	assert.False(t, ok)

	s.Set("k", 1)
	s.Delete("k")
	_, ok = s.Value("k")
	assert.False(t, ok)
}

func TestRequireRole_BadData(t *testing.T) {
	table := router.MustTable(router.Route{Path: "x", View: "x", Data: map[string]any{"requiredRole": 7}})
	m, err := table.Match("/x")
	require.NoError(t, err)

	_, err = RequireRole.Check(context.Background(), m, &router.NavigationContext{})
	assert.Error(t, err)
}

func TestDirectory(t *testing.T) {
	dir := NewDirectory()
	dir.Put(User{ID: "b", Name: "B"})
	dir.Put(User{ID: "a", Name: "A"})

	users, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dir.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = dir.CurrentUser().Resolve(context.Background(), nil, &router.NavigationContext{})
	assert.Error(t, err)
}
