// Package routepath normalizes navigation targets and route patterns.
//
// Both the route table and the matcher go through this package so that a
// pattern and a request path are split the same way: leading, trailing and
// repeated slashes never produce empty segments.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Target is a canonicalized navigation target.
type Target struct {
	// Path is the canonical path, always starting with "/" and never
	// ending with one (except the root).
	Path string

	// Segments are the raw (still percent-encoded) path segments.
	Segments []string

	// Query holds the parsed query string.
	Query url.Values

	// Changed reports whether canonicalization modified the input path.
	Changed bool
}

// Canonicalization errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrInvalidQuery         = errors.New("invalid query string")
)

// Canonicalize normalizes a navigation target.
//
// The path part is normalized as follows:
//   - a missing leading slash is added
//   - repeated slashes collapse and a trailing slash is dropped
//   - "." segments are removed and ".." pops the previous segment
//
// Only literal dot segments are resolved; "%2E%2E" is an ordinary segment.
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the
// root are rejected. Absolute URLs ("http://", "//host") are rejected so a
// navigation can never leave the application.
func Canonicalize(input string) (Target, error) {
	if strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "//") {
		return Target{}, ErrInvalidPath
	}

	original, rawQuery := SplitPathAndQuery(input)
	rawPath := original
	if i := strings.IndexByte(rawQuery, '#'); i >= 0 {
		rawQuery = rawQuery[:i]
	}
	if i := strings.IndexByte(rawPath, '#'); i >= 0 {
		rawPath = rawPath[:i]
	}

	if strings.Contains(rawPath, "\\") {
		return Target{}, ErrBackslashInPath
	}
	if strings.Contains(rawPath, "\x00") || strings.Contains(strings.ToUpper(rawPath), "%00") {
		return Target{}, ErrNullByteInPath
	}
	if strings.Contains(rawPath, "%") {
		if err := validatePercentEscapes(rawPath); err != nil {
			return Target{}, err
		}
	}

	segments := make([]string, 0, strings.Count(rawPath, "/")+1)
	for _, seg := range strings.Split(rawPath, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return Target{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Target{}, ErrInvalidQuery
	}

	path := Join(segments)
	return Target{
		Path:     path,
		Segments: segments,
		Query:    query,
		Changed:  path != original,
	}, nil
}

// Split splits a path or route pattern into its non-empty segments.
func Split(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Join builds a canonical path from segments.
func Join(segments []string) string {
	return "/" + strings.Join(segments, "/")
}

// SplitPathAndQuery splits input at the first "?".
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// WithQuery appends an encoded query to path, if any.
func WithQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// validatePercentEscapes checks that every "%" is followed by two hex digits.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
