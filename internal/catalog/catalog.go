package catalog

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/routeconf"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

// NotFoundView is the view id of the demo not-found page.
const NotFoundView = "not-found"

// RoutesFile is the name of the embedded route table.
const RoutesFile = "routes.yaml"

//go:embed routes.yaml views
var embedded embed.FS

// Routes returns the embedded route table document.
func Routes() []byte {
	data, err := embedded.ReadFile(RoutesFile)
	if err != nil {
		panic(err)
	}
	return data
}

// FS returns the embedded files.
func FS() fs.FS {
	return embedded
}

// ViewIDs returns the ids of the embedded views, sorted.
func ViewIDs() []string {
	entries, err := embedded.ReadDir("views")
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".tmpl") {
			ids = append(ids, strings.TrimSuffix(name, ".tmpl"))
		}
	}
	sort.Strings(ids)
	return ids
}

// Register adds the demo views, guards and resolvers to reg. Views are
// registered deferred: each template is parsed the first time it loads.
func Register(reg *registry.Registry, dir *Directory) error {
	for _, id := range ViewIDs() {
		file := path.Join("views", id+".tmpl")
		name := id
		load := func(context.Context) (view.Factory, error) {
			src, err := embedded.ReadFile(file)
			if err != nil {
				return nil, err
			}
			return view.ParseTemplate(name, string(src))
		}
		if err := reg.RegisterDeferred(id, load); err != nil {
			return err
		}
	}

	guards := map[string]router.Guard{
		"auth":        RequireAuth,
		"role":        RequireRole,
		"feature":     RequireFeature,
		"maintenance": Maintenance,
	}
	for name, g := range guards {
		if err := reg.RegisterGuard(name, g); err != nil {
			return err
		}
	}

	resolvers := map[string]router.Resolver{
		"loadUser":    dir.LoadUser(),
		"listUsers":   dir.ListUsers(),
		"currentUser": dir.CurrentUser(),
	}
	for name, r := range resolvers {
		if err := reg.RegisterResolver(name, r); err != nil {
			return err
		}
	}
	return nil
}

// Table parses the embedded route table against reg.
func Table(reg *registry.Registry) (*router.Table, error) {
	f, err := routeconf.Parse(Routes(), RoutesFile)
	if err != nil {
		return nil, err
	}
	return routeconf.Build(f, reg, routeconf.WithViewCheck(reg.HasView))
}
