package router

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func allowAll() Guard {
	return GuardFunc(func(context.Context, *MatchResult, *NavigationContext) (Outcome, error) {
		return Allow(), nil
	})
}

func TestNewTableRejectsInvalidRoutes(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		reason string
	}{
		{
			name:   "duplicate siblings",
			routes: []Route{{Path: "about", View: "a"}, {Path: "/about/", View: "b"}},
			reason: "duplicate sibling pattern",
		},
		{
			name:   "wildcard not last",
			routes: []Route{{Path: "files/**/edit", View: "a"}},
			reason: "must be the last segment",
		},
		{
			name:   "empty param name",
			routes: []Route{{Path: "users/:", View: "a"}},
			reason: "has no name",
		},
		{
			name: "param bound twice along path",
			routes: []Route{{
				Path:     "users/:id",
				Children: []Route{{Path: "posts/:id", View: "a"}},
			}},
			reason: `parameter "id" bound twice`,
		},
		{
			name:   "view and redirect",
			routes: []Route{{Path: "old", View: "a", RedirectTo: "/new"}},
			reason: "both a view and a redirect",
		},
		{
			name:   "wildcard with children",
			routes: []Route{{Path: "**", Children: []Route{{Path: "x", View: "a"}}}},
			reason: "cannot have children",
		},
		{
			name:   "nil guard",
			routes: []Route{{Path: "a", View: "a", Guards: []Guard{nil}}},
			reason: "guard 0 is nil",
		},
		{
			name:   "nil resolver",
			routes: []Route{{Path: "a", View: "a", Resolvers: map[string]Resolver{"user": nil}}},
			reason: `resolver "user" is nil`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.routes...)
			var te *TableError
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *TableError", err)
			}
			if !strings.Contains(te.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", te.Reason, tt.reason)
			}
		})
	}
}

func TestNewTableAllowsSameNameInSiblings(t *testing.T) {
	_, err := NewTable(
		Route{Path: "users/:id", View: "user"},
		Route{Path: "posts/:id", View: "post"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTableIsImmutable(t *testing.T) {
	routes := []Route{{
		Path:   "admin",
		Title:  "Admin",
		Guards: []Guard{allowAll()},
		Data:   map[string]any{"requiredRole": "admin"},
		Children: []Route{
			{Path: "users", View: "admin.users"},
		},
	}}

	table, err := NewTable(routes...)
	if err != nil {
		t.Fatal(err)
	}

	routes[0].Title = "changed"
	routes[0].Data["requiredRole"] = "guest"
	routes[0].Guards[0] = nil
	routes[0].Children[0].View = "changed"

	admin := table.ChildrenOf(table.Root())[0]
	if admin.Title() != "Admin" {
		t.Errorf("Title = %q", admin.Title())
	}
	if v, _ := admin.Data("requiredRole"); v != "admin" {
		t.Errorf("Data = %v", v)
	}
	if admin.Guards()[0] == nil {
		t.Error("guard slice shared with input")
	}
	if table.ChildrenOf(admin)[0].View() != "admin.users" {
		t.Error("child view shared with input")
	}

	// Mutating a returned slice does not affect the table.
	children := table.ChildrenOf(table.Root())
	children[0] = nil
	if table.ChildrenOf(table.Root())[0] == nil {
		t.Error("ChildrenOf returned internal slice")
	}
}

func TestTableWalk(t *testing.T) {
	table := MustTable(
		Route{Path: "", View: "home"},
		Route{Path: "admin", Children: []Route{
			{Path: "users", View: "admin.users"},
			{Path: "settings", View: "admin.settings"},
		}},
		Route{Path: "**", View: "not-found"},
	)

	var got []string
	table.Walk(func(n *Node, depth int) bool {
		got = append(got, strings.Repeat(">", depth)+n.FullPath())
		return true
	})

	want := []string{">/", ">/admin", ">>/admin/users", ">>/admin/settings", ">/**"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Walk = %v, want %v", got, want)
	}
	if table.Len() != 6 {
		t.Errorf("Len = %d, want 6", table.Len())
	}

	var visited int
	table.Walk(func(*Node, int) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("walk did not stop: visited %d", visited)
	}
}

func TestNodeIDsArePreOrder(t *testing.T) {
	table := MustTable(
		Route{Path: "a", Children: []Route{{Path: "b", View: "b"}}},
		Route{Path: "c", View: "c"},
	)

	var ids []int
	table.Walk(func(n *Node, _ int) bool {
		ids = append(ids, n.ID())
		return true
	})
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("ids = %v", ids)
		}
	}
	if table.Root().ID() != 0 || table.Root().Parent() != nil {
		t.Error("root should have ID 0 and no parent")
	}
}

func TestMustTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustTable(Route{Path: "a"}, Route{Path: "a"})
}
