package routepath

import (
	"net/url"
	"strings"
)

// DecodeSegment percent-decodes a single path segment.
//
// Paths are split on raw slashes before decoding, so an encoded slash
// ("%2F") stays inside its segment and decodes to "/".
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	return decoded, nil
}

// DecodeTail decodes each segment of a wildcard tail and joins them with
// "/". An encoded slash inside one segment is preserved in the output.
func DecodeTail(segments []string) (string, error) {
	decoded := make([]string, len(segments))
	for i, seg := range segments {
		d, err := url.PathUnescape(seg)
		if err != nil {
			return "", ErrInvalidPercentEscape
		}
		decoded[i] = d
	}
	return strings.Join(decoded, "/"), nil
}

// Fill substitutes ":name" segments of a redirect target with values from
// params. Params that have no placeholder are returned as query values so
// the caller can append them. Substituted values are path-escaped.
func Fill(target string, params map[string]string) (string, url.Values) {
	path, rawQuery := SplitPathAndQuery(target)
	query, _ := url.ParseQuery(rawQuery)

	used := make(map[string]bool, len(params))
	segments := Split(path)
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		if v, ok := params[name]; ok {
			segments[i] = url.PathEscape(v)
			used[name] = true
		}
	}

	for k, v := range params {
		if !used[k] {
			query.Set(k, v)
		}
	}
	return Join(segments), query
}
