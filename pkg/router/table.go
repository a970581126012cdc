package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// segmentKind classifies one segment of a route pattern.
type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

// patternSegment is one parsed segment of a route pattern.
type patternSegment struct {
	kind segmentKind

	// value is the literal text, or the parameter/wildcard name.
	value string
}

// Node is an immutable node of a built route table.
// Node identity (the pointer) is what the view loader caches on.
type Node struct {
	id       int
	pattern  string
	segments []patternSegment

	// class is the precedence class used by the matcher: the strongest
	// kind among the pattern's segments.
	class segmentKind

	view        string
	title       string
	redirectTo  string
	guards      []Guard
	childGuards []Guard
	resolvers   map[string]Resolver
	data        map[string]any

	parent   *Node
	children []*Node
}

// ID returns the node's pre-order index within its table. The root is 0.
func (n *Node) ID() int { return n.id }

// Pattern returns the normalized pattern, without leading or trailing slash.
func (n *Node) Pattern() string { return n.pattern }

// View returns the view identifier, or "" when the node has no view.
func (n *Node) View() string { return n.view }

// Title returns the node title.
func (n *Node) Title() string { return n.title }

// RedirectTo returns the static redirect target, or "".
func (n *Node) RedirectTo() string { return n.redirectTo }

// Parent returns the parent node; nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Guards returns a copy of the node's guards.
func (n *Node) Guards() []Guard { return append([]Guard(nil), n.guards...) }

// ChildGuards returns a copy of the node's child guards.
func (n *Node) ChildGuards() []Guard { return append([]Guard(nil), n.childGuards...) }

// ResolverKeys returns the resolver keys in sorted order.
func (n *Node) ResolverKeys() []string { return sortedKeys(n.resolvers) }

// Data returns a metadata value.
func (n *Node) Data(key string) (any, bool) {
	v, ok := n.data[key]
	return v, ok
}

// FullPath returns the pattern of this node joined with its ancestors'.
func (n *Node) FullPath() string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		if cur.pattern != "" {
			parts = append(parts, cur.pattern)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// String returns a short description used in logs.
func (n *Node) String() string {
	return "route#" + strconv.Itoa(n.id) + "(" + n.FullPath() + ")"
}

// Table is an immutable route tree. It is safe for concurrent use.
type Table struct {
	root  *Node
	nodes []*Node
}

// TableError reports an invalid route definition.
type TableError struct {
	// Route is the full pattern of the offending route.
	Route string

	// Reason describes the problem.
	Reason string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("route %q: %s", e.Route, e.Reason)
}

// NewTable validates routes and builds an immutable table.
//
// It rejects sibling routes with identical patterns, wildcards that are
// not the last segment, empty or repeated parameter names along one path,
// routes with both a view and a redirect, and nil guards or resolvers.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{}
	root := &Node{id: 0}
	t.root = root
	t.nodes = append(t.nodes, root)

	if err := t.build(root, routes, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tables
// written as Go literals.
func MustTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// build appends routes as children of parent. params holds the parameter
// names bound by the ancestors.
func (t *Table) build(parent *Node, routes []Route, params map[string]bool) error {
	seen := make(map[string]bool, len(routes))

	for _, r := range routes {
		pattern := strings.Join(routepath.Split(r.Path), "/")
		full := joinPattern(parent.FullPath(), pattern)

		if seen[pattern] {
			return &TableError{Route: full, Reason: "duplicate sibling pattern"}
		}
		seen[pattern] = true

		segments, err := parsePattern(pattern)
		if err != nil {
			return &TableError{Route: full, Reason: err.Error()}
		}

		bound := make(map[string]bool, len(params)+len(segments))
		for name := range params {
			bound[name] = true
		}
		for _, seg := range segments {
			if seg.kind == segLiteral || seg.value == "" {
				continue
			}
			if bound[seg.value] {
				return &TableError{Route: full, Reason: fmt.Sprintf("parameter %q bound twice", seg.value)}
			}
			bound[seg.value] = true
		}

		if r.View != "" && r.RedirectTo != "" {
			return &TableError{Route: full, Reason: "route has both a view and a redirect"}
		}
		if segments != nil && segments[len(segments)-1].kind == segWildcard && len(r.Children) > 0 {
			return &TableError{Route: full, Reason: "wildcard route cannot have children"}
		}
		for i, g := range r.Guards {
			if g == nil {
				return &TableError{Route: full, Reason: fmt.Sprintf("guard %d is nil", i)}
			}
		}
		for i, g := range r.ChildGuards {
			if g == nil {
				return &TableError{Route: full, Reason: fmt.Sprintf("child guard %d is nil", i)}
			}
		}
		for key, res := range r.Resolvers {
			if res == nil {
				return &TableError{Route: full, Reason: fmt.Sprintf("resolver %q is nil", key)}
			}
		}

		node := &Node{
			id:          len(t.nodes),
			pattern:     pattern,
			segments:    segments,
			class:       classify(segments),
			view:        r.View,
			title:       r.Title,
			redirectTo:  r.RedirectTo,
			guards:      append([]Guard(nil), r.Guards...),
			childGuards: append([]Guard(nil), r.ChildGuards...),
			resolvers:   copyMap(r.Resolvers),
			data:        copyMap(r.Data),
			parent:      parent,
		}
		t.nodes = append(t.nodes, node)
		parent.children = append(parent.children, node)

		if err := t.build(node, r.Children, bound); err != nil {
			return err
		}
	}
	return nil
}

// parsePattern splits a normalized pattern into typed segments.
func parsePattern(pattern string) ([]patternSegment, error) {
	parts := routepath.Split(pattern)
	if len(parts) == 0 {
		return nil, nil
	}

	segments := make([]patternSegment, len(parts))
	for i, part := range parts {
		switch {
		case part == "**":
			segments[i] = patternSegment{kind: segWildcard}
		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if strings.HasPrefix(name, "*") {
				return nil, fmt.Errorf("invalid wildcard segment %q", part)
			}
			segments[i] = patternSegment{kind: segWildcard, value: name}
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("parameter segment %q has no name", part)
			}
			segments[i] = patternSegment{kind: segParam, value: name}
		default:
			segments[i] = patternSegment{kind: segLiteral, value: part}
		}

		if segments[i].kind == segWildcard && i != len(parts)-1 {
			return nil, fmt.Errorf("wildcard %q must be the last segment", part)
		}
	}
	return segments, nil
}

// classify returns the precedence class of a pattern.
func classify(segments []patternSegment) segmentKind {
	class := segLiteral
	for _, seg := range segments {
		if seg.kind > class {
			class = seg.kind
		}
	}
	return class
}

// Root returns the synthetic root node. It has no pattern; its children
// are the top-level routes.
func (t *Table) Root() *Node {
	return t.root
}

// ChildrenOf returns the ordered children of node.
func (t *Table) ChildrenOf(node *Node) []*Node {
	if node == nil {
		return nil
	}
	return append([]*Node(nil), node.children...)
}

// Len returns the number of nodes in the table, including the root.
func (t *Table) Len() int {
	return len(t.nodes)
}

// Walk visits every node except the root in pre-order, passing its depth
// (1 for top-level routes). Returning false stops the walk.
func (t *Table) Walk(fn func(node *Node, depth int) bool) {
	var walk func(n *Node, depth int) bool
	walk = func(n *Node, depth int) bool {
		for _, c := range n.children {
			if !fn(c, depth) || !walk(c, depth+1) {
				return false
			}
		}
		return true
	}
	walk(t.root, 1)
}

func joinPattern(base, pattern string) string {
	if pattern == "" {
		return base
	}
	if base == "/" {
		return "/" + pattern
	}
	return base + "/" + pattern
}

func copyMap[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
