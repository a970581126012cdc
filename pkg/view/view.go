// Package view defines what a route ultimately produces: a View built by
// a Factory from the props of a committed navigation.
//
// Factories are what the loader fetches and caches; a View is created once
// per committed navigation and is never shared between navigations.
package view

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/template"

	"github.com/vango-dev/waypoint/pkg/router"
)

// View is an instantiated, renderable view.
type View interface {
	// ID returns the view identifier it was created for.
	ID() string

	// Render writes the view to w.
	Render(w io.Writer) error
}

// Factory instantiates a view for one navigation.
type Factory func(props Props) (View, error)

// Props is everything a view receives from the navigation that produced it.
type Props struct {
	// ViewID is the identifier declared on the route.
	ViewID string

	// Path is the canonical navigated path.
	Path string

	// Title is the title of the matched route chain.
	Title string

	// Params are the matched route parameters.
	Params map[string]string

	// Query holds the navigation's query parameters.
	Query url.Values

	// Data holds the resolved values keyed by resolver key.
	Data map[string]any

	// Match is the match the navigation committed. Nil for the
	// not-found view of an unmatched path.
	Match *router.MatchResult
}

// Param returns a route parameter, or "".
func (p Props) Param(name string) string {
	return p.Params[name]
}

// RenderToString renders v into a string.
func RenderToString(v View) (string, error) {
	var buf bytes.Buffer
	if err := v.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Static returns a factory for a view that always renders text.
func Static(text string) Factory {
	return func(p Props) (View, error) {
		return &staticView{id: p.ViewID, text: text}, nil
	}
}

type staticView struct {
	id   string
	text string
}

func (v *staticView) ID() string { return v.id }

func (v *staticView) Render(w io.Writer) error {
	_, err := io.WriteString(w, v.text)
	return err
}

// Func returns a factory for a view rendered by fn.
func Func(fn func(w io.Writer, p Props) error) Factory {
	return func(p Props) (View, error) {
		return &funcView{props: p, fn: fn}, nil
	}
}

type funcView struct {
	props Props
	fn    func(w io.Writer, p Props) error
}

func (v *funcView) ID() string { return v.props.ViewID }

func (v *funcView) Render(w io.Writer) error {
	return v.fn(w, v.props)
}

// Funcs are the functions available to template views.
var Funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  strings.Join,
}

// ParseTemplate parses src as a text/template and returns a factory whose
// views execute it with their Props.
func ParseTemplate(name, src string) (Factory, error) {
	tmpl, err := template.New(name).Funcs(Funcs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return Template(tmpl), nil
}

// Template returns a factory for views that execute tmpl with their Props.
func Template(tmpl *template.Template) Factory {
	return func(p Props) (View, error) {
		return &templateView{props: p, tmpl: tmpl}, nil
	}
}

type templateView struct {
	props Props
	tmpl  *template.Template
}

func (v *templateView) ID() string { return v.props.ViewID }

func (v *templateView) Render(w io.Writer) error {
	return v.tmpl.Execute(w, v.props)
}
