package router

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBind(t *testing.T) {
	table := MustTable(
		Route{Path: "users/:id/posts/:slug", View: "post"},
		Route{Path: "files/*path", View: "files"},
	)

	type postParams struct {
		ID    int      `param:"id"`
		Slug  string   `param:"slug"`
		Page  uint     `query:"page"`
		Draft bool     `query:"draft"`
		Tags  []string `query:"tag"`
		Score float64  `query:"score"`
		Other string
	}

	var p postParams
	query := url.Values{"page": {"3"}, "draft": {"true"}, "tag": {"go", "web"}, "score": {"1.5"}}
	if err := Bind(mustMatch(t, table, "/users/42/posts/hello"), query, &p); err != nil {
		t.Fatal(err)
	}
	want := postParams{ID: 42, Slug: "hello", Page: 3, Draft: true, Tags: []string{"go", "web"}, Score: 1.5}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Bind mismatch (-want +got):\n%s", diff)
	}

	var f struct {
		Path []string `param:"path"`
	}
	if err := Bind(mustMatch(t, table, "/files/a/b/c"), nil, &f); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, f.Path); diff != "" {
		t.Errorf("tail mismatch:\n%s", diff)
	}
}

func TestBindErrors(t *testing.T) {
	table := MustTable(Route{Path: "users/:id", View: "user"})
	m := mustMatch(t, table, "/users/abc")

	var bad struct {
		ID int `param:"id"`
	}
	if err := Bind(m, nil, &bad); err == nil {
		t.Error("expected error for non-integer id")
	}

	var notPtr struct{}
	if err := Bind(m, nil, notPtr); err == nil {
		t.Error("expected error for non-pointer target")
	}

	n := 1
	if err := Bind(m, nil, &n); err == nil {
		t.Error("expected error for pointer to non-struct")
	}

	if err := Bind(m, nil, nil); err != nil {
		t.Errorf("nil target: %v", err)
	}
}
