// Package routeconf decodes route tables authored as YAML or JSON and
// compiles them into router.Route values, resolving guard, resolver and
// view names against a registry.
//
// A table file looks like:
//
//	routes:
//	  - path: ""
//	    view: home
//	    title: Home
//	  - path: admin
//	    guards: [auth]
//	    childGuards: [role]
//	    data:
//	      requiredRole: admin
//	    children:
//	      - path: users/:id
//	        view: admin.user
//	        resolvers:
//	          user: loadUser
//	  - path: "**"
//	    view: not-found
//
// JSON documents are accepted as well, since they parse as YAML.
package routeconf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/router"
)

// File is a decoded table document.
type File struct {
	// Source names the file the document came from, for error locations.
	Source string `yaml:"-"`

	Routes []RouteSpec `yaml:"routes"`
}

// RouteSpec is one route as written in a table file.
type RouteSpec struct {
	Path        string            `yaml:"path"`
	View        string            `yaml:"view,omitempty"`
	Title       string            `yaml:"title,omitempty"`
	RedirectTo  string            `yaml:"redirectTo,omitempty"`
	Guards      []string          `yaml:"guards,omitempty"`
	ChildGuards []string          `yaml:"childGuards,omitempty"`
	Resolvers   map[string]string `yaml:"resolvers,omitempty"`
	Data        map[string]any    `yaml:"data,omitempty"`
	Children    []RouteSpec       `yaml:"children,omitempty"`

	// Line and Column locate the route in its source document.
	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

var routeKeys = map[string]bool{
	"path": true, "view": true, "title": true, "redirectTo": true,
	"guards": true, "childGuards": true, "resolvers": true, "data": true,
	"children": true,
}

// UnmarshalYAML decodes a route and records its position. Unknown keys are
// rejected so a misspelt "gaurds" never silently drops a guard.
func (s *RouteSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: route must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !routeKeys[key.Value] {
			return fmt.Errorf("line %d: unknown route field %q", key.Line, key.Value)
		}
	}

	type plain RouteSpec
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = RouteSpec(p)
	s.Line, s.Column = n.Line, n.Column
	return nil
}

// Parse decodes a table document. source is used in error locations.
func Parse(data []byte, source string) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, werrors.New("W204").
				WithDetail(source + " is empty").
				WithSuggestion("Add a top-level \"routes:\" list")
		}
		e := werrors.New("W204").WithDetail(err.Error()).Wrap(err)
		if line := yamlErrorLine(err); line > 0 {
			e = e.WithLocation(source, line, 0)
		}
		return nil, e
	}
	f.Source = source
	return &f, nil
}

// ParseFile reads and decodes a table file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, werrors.New("W200").
			WithDetail(path).
			Wrap(err)
	}
	return Parse(data, path)
}

// Option configures Compile.
type Option func(*compiler)

// WithViewCheck makes Compile reject view ids for which known returns false.
// Without it, view ids are not checked, since a loader may fetch views
// from a source the registry does not know about.
func WithViewCheck(known func(id string) bool) Option {
	return func(c *compiler) { c.knownView = known }
}

type compiler struct {
	source    string
	reg       *registry.Registry
	knownView func(string) bool
}

// Compile resolves f against reg and returns the routes ready for
// router.NewTable.
func Compile(f *File, reg *registry.Registry, opts ...Option) ([]router.Route, error) {
	c := &compiler{source: f.Source, reg: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c.routes(f.Routes)
}

// Load parses the file at path, compiles it and builds the table.
func Load(path string, reg *registry.Registry, opts ...Option) (*router.Table, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Build(f, reg, opts...)
}

// Build compiles f and builds the table.
func Build(f *File, reg *registry.Registry, opts ...Option) (*router.Table, error) {
	routes, err := Compile(f, reg, opts...)
	if err != nil {
		return nil, err
	}
	table, err := router.NewTable(routes...)
	if err != nil {
		return nil, werrors.New("W205").
			WithDetail(err.Error()).
			Wrap(err).
			WithSuggestion("Check sibling patterns and parameter names")
	}
	return table, nil
}

func (c *compiler) routes(specs []RouteSpec) ([]router.Route, error) {
	out := make([]router.Route, 0, len(specs))
	for i := range specs {
		r, err := c.route(&specs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *compiler) route(s *RouteSpec) (router.Route, error) {
	r := router.Route{
		Path:       s.Path,
		View:       s.View,
		Title:      s.Title,
		RedirectTo: s.RedirectTo,
		Data:       s.Data,
	}

	if s.View != "" && s.RedirectTo != "" {
		return r, c.fail("W204", s, fmt.Sprintf("route %q sets both view and redirectTo", s.Path)).
			WithSuggestion("A route either renders a view or redirects")
	}
	if s.View != "" && c.knownView != nil && !c.knownView(s.View) {
		return r, c.fail("W203", s, fmt.Sprintf("view %q", s.View)).
			WithSuggestion(suggest("view", c.reg.Views()))
	}

	var err error
	if r.Guards, err = c.guards(s, s.Guards); err != nil {
		return r, err
	}
	if r.ChildGuards, err = c.guards(s, s.ChildGuards); err != nil {
		return r, err
	}

	if len(s.Resolvers) > 0 {
		r.Resolvers = make(map[string]router.Resolver, len(s.Resolvers))
		keys := make([]string, 0, len(s.Resolvers))
		for k := range s.Resolvers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			name := s.Resolvers[key]
			res, ok := c.reg.Resolver(name)
			if !ok {
				return r, c.fail("W202", s, fmt.Sprintf("resolver %q (key %q)", name, key)).
					WithSuggestion(suggest("resolver", c.reg.Resolvers()))
			}
			r.Resolvers[key] = res
		}
	}

	if r.Children, err = c.routes(s.Children); err != nil {
		return r, err
	}
	return r, nil
}

func (c *compiler) guards(s *RouteSpec, names []string) ([]router.Guard, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]router.Guard, 0, len(names))
	for _, name := range names {
		g, ok := c.reg.Guard(name)
		if !ok {
			return nil, c.fail("W201", s, fmt.Sprintf("guard %q", name)).
				WithSuggestion(suggest("guard", c.reg.Guards()))
		}
		out = append(out, g)
	}
	return out, nil
}

func (c *compiler) fail(code string, s *RouteSpec, detail string) *werrors.Error {
	e := werrors.New(code).WithDetail(detail)
	if c.source != "" && s.Line > 0 {
		e = e.WithLocation(c.source, s.Line, s.Column)
	}
	return e
}

func suggest(kind string, known []string) string {
	if len(known) == 0 {
		return fmt.Sprintf("No %ss are registered", kind)
	}
	return fmt.Sprintf("Registered %ss: %s", kind, strings.Join(known, ", "))
}

// yamlErrorLine extracts the line number from a yaml.v3 error message
// ("yaml: line 3: ...").
func yamlErrorLine(err error) int {
	var line int
	msg := err.Error()
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	if i := strings.Index(msg, "line "); i >= 0 {
		fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}
