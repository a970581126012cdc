package routepath

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPath     string
		wantSegments []string
		wantQuery    url.Values
		wantChanged  bool
		wantErr      error
	}{
		{name: "root", input: "/", wantPath: "/", wantQuery: url.Values{}},
		{name: "empty string", input: "", wantPath: "/", wantQuery: url.Values{}, wantChanged: true},
		{name: "no leading slash", input: "about", wantPath: "/about", wantSegments: []string{"about"}, wantQuery: url.Values{}, wantChanged: true},
		{name: "trailing slash", input: "/admin/users/", wantPath: "/admin/users", wantSegments: []string{"admin", "users"}, wantQuery: url.Values{}, wantChanged: true},
		{name: "collapse slashes", input: "/blog//post", wantPath: "/blog/post", wantSegments: []string{"blog", "post"}, wantQuery: url.Values{}, wantChanged: true},
		{name: "dot segments", input: "/a/./b/../c", wantPath: "/a/c", wantSegments: []string{"a", "c"}, wantQuery: url.Values{}, wantChanged: true},
		{name: "query parsed", input: "/search?q=go&page=2", wantPath: "/search", wantSegments: []string{"search"}, wantQuery: url.Values{"q": {"go"}, "page": {"2"}}},
		{name: "fragment dropped", input: "/docs#intro", wantPath: "/docs", wantSegments: []string{"docs"}, wantQuery: url.Values{}, wantChanged: true},
		{name: "encoded segment kept raw", input: "/users/a%20b", wantPath: "/users/a%20b", wantSegments: []string{"users", "a%20b"}, wantQuery: url.Values{}},
		{name: "backslash", input: "/a\\b", wantErr: ErrBackslashInPath},
		{name: "null byte", input: "/a%00b", wantErr: ErrNullByteInPath},
		{name: "bad escape", input: "/a%GG", wantErr: ErrInvalidPercentEscape},
		{name: "truncated escape", input: "/a%2", wantErr: ErrInvalidPercentEscape},
		{name: "escapes root", input: "/../secret", wantErr: ErrPathEscapesRoot},
		{name: "absolute url", input: "https://evil.example/x", wantErr: ErrInvalidPath},
		{name: "protocol relative", input: "//evil.example/x", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if len(got.Segments) != len(tt.wantSegments) || (len(tt.wantSegments) > 0 && !reflect.DeepEqual(got.Segments, tt.wantSegments)) {
				t.Errorf("Segments = %q, want %q", got.Segments, tt.wantSegments)
			}
			if !reflect.DeepEqual(got.Query, tt.wantQuery) {
				t.Errorf("Query = %v, want %v", got.Query, tt.wantQuery)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
		})
	}
}

func TestSplitAndJoin(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"admin", []string{"admin"}},
		{"/admin//users/", []string{"admin", "users"}},
		{"users/:id", []string{"users", ":id"}},
	}
	for _, tt := range tests {
		if got := Split(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if Join(nil) != "/" {
		t.Errorf("Join(nil) = %q", Join(nil))
	}
	if Join([]string{"a", "b"}) != "/a/b" {
		t.Errorf("Join = %q", Join([]string{"a", "b"}))
	}
}

func TestDecodeSegment(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"plain", "plain", nil},
		{"a%20b", "a b", nil},
		{"caf%C3%A9", "café", nil},
		{"a%2Fb", "a/b", nil},
		{"%2E%2E", "..", nil},
		{"%zz", "", ErrInvalidPercentEscape},
	}
	for _, tt := range tests {
		got, err := DecodeSegment(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("DecodeSegment(%q) err = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeTail(t *testing.T) {
	got, err := DecodeTail([]string{"docs", "a%20b", "x%2Fy"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "docs/a b/x/y" {
		t.Errorf("DecodeTail = %q", got)
	}
	if _, err := DecodeTail([]string{"%zz"}); !errors.Is(err, ErrInvalidPercentEscape) {
		t.Errorf("err = %v", err)
	}
}

func TestFill(t *testing.T) {
	path, query := Fill("/users/:id/posts", map[string]string{"id": "a b", "tab": "recent"})
	if path != "/users/a%20b/posts" {
		t.Errorf("path = %q", path)
	}
	if query.Get("tab") != "recent" || query.Has("id") {
		t.Errorf("query = %v", query)
	}

	path, query = Fill("/login?next=%2Fadmin", nil)
	if path != "/login" || query.Get("next") != "/admin" {
		t.Errorf("Fill = %q %v", path, query)
	}
}

func TestWithQuery(t *testing.T) {
	if got := WithQuery("/a", nil); got != "/a" {
		t.Errorf("WithQuery = %q", got)
	}
	if got := WithQuery("/a", url.Values{"x": {"1"}}); got != "/a?x=1" {
		t.Errorf("WithQuery = %q", got)
	}
}
