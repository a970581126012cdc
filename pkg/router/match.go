package router

import (
	"net/url"
	"strings"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// MatchResult is the outcome of matching a path against a table.
// It is built fresh for every attempt and must be treated as read-only.
type MatchResult struct {
	// Chain holds the matched nodes from the outermost route to the leaf.
	// The table's synthetic root is not included.
	Chain []*Node

	// Params maps parameter and named-wildcard names to decoded values.
	Params map[string]string

	// ConsumedPath is the canonical path consumed by literal and
	// parameter segments.
	ConsumedPath string

	// RemainingPath is the raw tail absorbed by a wildcard, without a
	// leading slash. Empty when no wildcard matched.
	RemainingPath string
}

// Leaf returns the terminal node of the chain.
func (m *MatchResult) Leaf() *Node {
	if m == nil || len(m.Chain) == 0 {
		return nil
	}
	return m.Chain[len(m.Chain)-1]
}

// Param returns a bound parameter, or "".
func (m *MatchResult) Param(name string) string {
	if m == nil {
		return ""
	}
	return m.Params[name]
}

// Path returns the full matched path, including any wildcard tail.
func (m *MatchResult) Path() string {
	if m == nil {
		return ""
	}
	if m.RemainingPath == "" {
		return m.ConsumedPath
	}
	if m.ConsumedPath == "/" {
		return "/" + m.RemainingPath
	}
	return m.ConsumedPath + "/" + m.RemainingPath
}

// Title returns the title of the deepest node that has one.
func (m *MatchResult) Title() string {
	if m == nil {
		return ""
	}
	for i := len(m.Chain) - 1; i >= 0; i-- {
		if t := m.Chain[i].title; t != "" {
			return t
		}
	}
	return ""
}

// Data looks up a metadata key, starting at the leaf and walking outwards.
func (m *MatchResult) Data(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for i := len(m.Chain) - 1; i >= 0; i-- {
		if v, ok := m.Chain[i].data[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// precedence is the fixed order in which sibling classes are tried.
var precedence = [...]segmentKind{segLiteral, segParam, segWildcard}

// binding is one parameter bound during matching.
type binding struct {
	name  string
	value string
}

// matcher holds the backtracking state of one Match call.
type matcher struct {
	raw     []string
	decoded []string

	chain    []*Node
	bindings []binding
	tail     []string
	end      int
}

// Match resolves path against the table.
//
// The path is canonicalized first, so "/a/b/", "a//b" and "/a/b" are
// equivalent; any query string is ignored. At each level the children are
// tried literal patterns first, then parameterized, then wildcard, each
// class in declared order, backtracking when a subtree fails. A node that
// consumed the whole path is terminal when it has no children, or when
// none of its children match and it carries a view or a redirect.
//
// When nothing matches, Match returns a *NoMatchError.
func (t *Table) Match(path string) (*MatchResult, error) {
	target, err := routepath.Canonicalize(path)
	if err != nil {
		return nil, &NoMatchError{Path: path, Err: err}
	}

	m := &matcher{
		raw:     target.Segments,
		decoded: make([]string, len(target.Segments)),
	}
	for i, seg := range target.Segments {
		d, err := url.PathUnescape(seg)
		if err != nil {
			d = seg
		}
		m.decoded[i] = d
	}

	if !m.descend(t.root, 0) {
		return nil, &NoMatchError{Path: target.Path}
	}

	params := make(map[string]string, len(m.bindings))
	for _, b := range m.bindings {
		params[b.name] = b.value
	}

	return &MatchResult{
		Chain:         append([]*Node(nil), m.chain...),
		Params:        params,
		ConsumedPath:  routepath.Join(m.raw[:m.end]),
		RemainingPath: strings.Join(m.tail, "/"),
	}, nil
}

// descend tries the children of node against the segments from pos, then
// node itself as the terminal.
func (m *matcher) descend(node *Node, pos int) bool {
	for _, class := range precedence {
		for _, child := range node.children {
			if child.class == class && m.try(child, pos) {
				return true
			}
		}
	}

	if pos != len(m.raw) || node.parent == nil {
		return false
	}
	if node.IsLeaf() || node.view != "" || node.redirectTo != "" {
		if m.tail == nil {
			m.end = pos
		}
		return true
	}
	return false
}

// try matches the pattern of child at pos and descends into it. On
// failure all state added by this attempt is rolled back.
func (m *matcher) try(child *Node, pos int) bool {
	chainLen, bindLen := len(m.chain), len(m.bindings)
	m.chain = append(m.chain, child)

	if p, ok := m.consume(child, pos); ok && m.descend(child, p) {
		return true
	}

	m.chain = m.chain[:chainLen]
	m.bindings = m.bindings[:bindLen]
	m.tail = nil
	return false
}

// consume matches the segments of child's pattern starting at pos and
// returns the position after them.
func (m *matcher) consume(child *Node, pos int) (int, bool) {
	p := pos
	for _, seg := range child.segments {
		switch seg.kind {
		case segLiteral:
			if p >= len(m.raw) || m.decoded[p] != seg.value {
				return 0, false
			}
			p++

		case segParam:
			if p >= len(m.raw) {
				return 0, false
			}
			v, err := routepath.DecodeSegment(m.raw[p])
			if err != nil {
				return 0, false
			}
			m.bindings = append(m.bindings, binding{name: seg.value, value: v})
			p++

		case segWildcard:
			tail := m.raw[p:]
			if seg.value != "" {
				v, err := routepath.DecodeTail(tail)
				if err != nil {
					return 0, false
				}
				m.bindings = append(m.bindings, binding{name: seg.value, value: v})
			}
			m.end = p
			m.tail = append([]string{}, tail...)
			p = len(m.raw)
		}
	}
	return p, true
}
