package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// httpURLPattern matches references that are already absolute HTTP(S) URLs.
var httpURLPattern = regexp.MustCompile(`(?i)^(http|https)://`)

// IsHTTPURL reports whether s starts with "http://" or "https://" (any case).
func IsHTTPURL(s string) bool {
	return httpURLPattern.MatchString(s)
}

// Resolve converts reference into an absolute URL using baseURL, the URL of
// the document the reference was found in.
//
// Rules, applied in order:
//  1. absolute http/https references are returned unchanged
//  2. "//host/path" gets the scheme of baseURL
//  3. "/path" gets the origin of baseURL (scheme, userinfo, host, port)
//  4. anything else gets the origin plus the directory of baseURL's path
//
// Query strings and fragments are carried along verbatim. The only error is
// ErrInvalidURL when baseURL cannot be parsed.
func Resolve(reference, baseURL string) (string, error) {
	if IsHTTPURL(reference) {
		return reference, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, baseURL, err)
	}

	switch {
	case strings.HasPrefix(reference, "//"):
		return base.Scheme + ":" + reference, nil
	case strings.HasPrefix(reference, "/"):
		return origin(base) + reference, nil
	default:
		return origin(base) + directory(base) + reference, nil
	}
}

// origin returns scheme://[userinfo@]host[:port] of u.
func origin(u *url.URL) string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")
	if u.User != nil && u.User.String() != "" {
		sb.WriteString(u.User.String())
		sb.WriteString("@")
	}
	sb.WriteString(u.Host)
	return sb.String()
}

// directory returns the path of u up to and including its last '/'.
// A path without a trailing slash ends in a script name, which is dropped.
func directory(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}
	if strings.HasSuffix(path, "/") {
		return path
	}

	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/"
	}
	return path[:idx+1]
}
