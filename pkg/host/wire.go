package host

import (
	"sort"
	"time"

	"github.com/vango-dev/waypoint/pkg/navigation"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/view"
)

// CommitJSON is the wire form of a navigation.Commit.
type CommitJSON struct {
	ID         string            `json:"id"`
	Generation uint64            `json:"generation"`
	Requested  string            `json:"requested"`
	Path       string            `json:"path"`
	URL        string            `json:"url"`
	Redirects  []string          `json:"redirects,omitempty"`
	NotFound   bool              `json:"notFound,omitempty"`
	Route      string            `json:"route,omitempty"`
	View       string            `json:"view,omitempty"`
	Title      string            `json:"title,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Data       []string          `json:"data,omitempty"`
	Cached     bool              `json:"cached,omitempty"`
	HTML       string            `json:"html,omitempty"`
	At         time.Time         `json:"at"`
}

func commitJSON(c *navigation.Commit, withHTML bool) CommitJSON {
	out := CommitJSON{
		ID:         c.ID,
		Generation: c.Generation,
		Requested:  c.Requested,
		Path:       c.Path,
		URL:        c.URL(),
		Redirects:  c.Redirects,
		NotFound:   c.NotFound,
		View:       c.ViewID,
		Title:      c.Title,
		Cached:     c.Cached,
		At:         c.At,
	}
	if c.Match != nil {
		out.Route = c.Match.Leaf().FullPath()
		if len(c.Match.Params) > 0 {
			out.Params = c.Match.Params
		}
	}
	for k := range c.Data {
		out.Data = append(out.Data, k)
	}
	sort.Strings(out.Data)
	if withHTML && c.View != nil {
		if html, err := view.RenderToString(c.View); err == nil {
			out.HTML = html
		}
	}
	return out
}

// EventJSON is the wire form of a navigation.Event.
type EventJSON struct {
	Navigation string      `json:"navigation"`
	Generation uint64      `json:"generation"`
	State      string      `json:"state"`
	Path       string      `json:"path,omitempty"`
	Redirects  int         `json:"redirects,omitempty"`
	Error      string      `json:"error,omitempty"`
	ElapsedMS  float64     `json:"elapsedMs"`
	Commit     *CommitJSON `json:"commit,omitempty"`
}

func eventJSON(e navigation.Event) EventJSON {
	out := EventJSON{
		Navigation: e.NavigationID,
		Generation: e.Generation,
		State:      e.State.String(),
		Path:       e.Path,
		Redirects:  e.Redirects,
		ElapsedMS:  float64(e.Elapsed) / float64(time.Millisecond),
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	if e.Commit != nil {
		c := commitJSON(e.Commit, false)
		out.Commit = &c
	}
	return out
}

// RouteJSON describes one table node. A default child shares Path with
// its parent; Index marks it and Parent links the two.
type RouteJSON struct {
	ID          int      `json:"id"`
	Parent      int      `json:"parent"`
	Index       bool     `json:"index,omitempty"`
	Depth       int      `json:"depth"`
	Pattern     string   `json:"pattern"`
	Path        string   `json:"path"`
	View        string   `json:"view,omitempty"`
	Title       string   `json:"title,omitempty"`
	RedirectTo  string   `json:"redirectTo,omitempty"`
	Guards      []string `json:"guards,omitempty"`
	ChildGuards []string `json:"childGuards,omitempty"`
	Resolvers   []string `json:"resolvers,omitempty"`
}

// Routes lists the nodes of table in pre-order.
func Routes(table *router.Table) []RouteJSON {
	var out []RouteJSON
	table.Walk(func(n *router.Node, depth int) bool {
		r := RouteJSON{
			ID:         n.ID(),
			Parent:     n.Parent().ID(),
			Index:      n.Pattern() == "",
			Depth:      depth,
			Pattern:    n.Pattern(),
			Path:       n.FullPath(),
			View:       n.View(),
			Title:      n.Title(),
			RedirectTo: n.RedirectTo(),
			Resolvers:  n.ResolverKeys(),
		}
		for _, g := range n.Guards() {
			r.Guards = append(r.Guards, router.GuardName(g))
		}
		for _, g := range n.ChildGuards() {
			r.ChildGuards = append(r.ChildGuards, router.GuardName(g))
		}
		out = append(out, r)
		return true
	})
	return out
}

// ErrorJSON is the body of a failed request.
type ErrorJSON struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome,omitempty"`
}
