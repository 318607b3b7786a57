package rewriter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Resolve when no rule matches the request path.
var ErrNotFound = errors.New("no rewrite rule matches path")

const separator = "/"

// Rewriter maps a path prefix (From) to a target prefix (To).
//
// From is compared case-insensitively and a leading separator is optional.
// To is either a path, which the caller resolves against its upstream, or an
// absolute URI carrying its own scheme and host.
type Rewriter struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func (r *Rewriter) pattern() string {
	return strings.TrimPrefix(r.From, separator)
}

// IsMatch reports whether path equals From or continues it with a separator.
// "/foo" matches "/foo" and "/FOO/bar", never "/foobar".
// path is compared as given, so pass the decoded request path.
func (r *Rewriter) IsMatch(path string) bool {
	return match(strings.TrimPrefix(path, separator), r.pattern())
}

// Rewrite replaces the matched From segment of path with To and keeps the
// remainder as is. A path r does not match is returned unchanged.
func (r *Rewriter) Rewrite(path string) string {
	if !r.IsMatch(path) {
		return path
	}

	return r.join(r.remainder(path))
}

// remainder is the part of a matching path after the From segment.
func (r *Rewriter) remainder(path string) string {
	return strings.TrimPrefix(path, separator)[len(r.pattern()):]
}

func (r *Rewriter) join(rest string) string {
	if strings.HasSuffix(r.To, separator) && strings.HasPrefix(rest, separator) {
		rest = rest[1:]
	}

	return r.To + rest
}

// match folds case only between equal byte lengths, so a match always
// covers exactly path[:len(pattern)].
func match(path, pattern string) bool {
	n := len(pattern)
	switch {
	case len(path) == n:
		return strings.EqualFold(path, pattern)
	case len(path) > n:
		return path[n] == '/' && strings.EqualFold(path[:n], pattern)
	default:
		return false
	}
}

// Rewriters is an ordered rewrite table. The first matching rule wins.
type Rewriters []Rewriter

// Match returns the first rule matching path.
func (r Rewriters) Match(path string) (*Rewriter, bool) {
	for i := range r {
		if r[i].IsMatch(path) {
			return &r[i], true
		}
	}

	return nil, false
}

// Rewrite rewrites path with the first matching rule, or returns it unchanged.
func (r Rewriters) Rewrite(path string) string {
	if rewriter, ok := r.Match(path); ok {
		return rewriter.Rewrite(path)
	}

	return path
}

// Resolve maps the path and query of u to a target URI. Rules are matched
// against the decoded path; the remainder keeps the request's own escaping and
// the query string is carried over untouched. The returned URL is absolute
// only when the matched rule's To is absolute.
func (r Rewriters) Resolve(u *url.URL) (*url.URL, error) {
	rewriter, ok := r.Match(u.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u.Path)
	}

	rest := escapedSuffix(u.EscapedPath(), rewriter.remainder(u.Path))
	return parseTarget(withQuery(rewriter.join(rest), u.RawQuery))
}

// ResolveLowercase is Resolve with the legacy substitution: path, query and
// target prefix are lowercased and every occurrence of the pattern is
// replaced, not only the leading one.
func (r Rewriters) ResolveLowercase(u *url.URL) (*url.URL, error) {
	rewriter, ok := r.Match(u.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u.Path)
	}

	target := strings.ToLower(withQuery(u.EscapedPath(), u.RawQuery))
	to := strings.ToLower(rewriter.To)
	if rewriter.pattern() == "" {
		// "/" alone would replace every separator
		target = to + strings.TrimPrefix(target, separator)
	} else {
		pattern := strings.ToLower((&url.URL{Path: separator + rewriter.pattern()}).EscapedPath())
		target = strings.ReplaceAll(target, pattern, to)
	}

	return parseTarget(target)
}

// escapedSuffix returns the tail of the escaped path that decodes to rest.
func escapedSuffix(escaped, rest string) string {
	for i := len(escaped) - len(rest); i >= 0; i-- {
		if decoded, err := url.PathUnescape(escaped[i:]); err == nil && decoded == rest {
			return escaped[i:]
		}
	}

	return (&url.URL{Path: rest}).EscapedPath()
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	return path + "?" + rawQuery
}

func parseTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid rewrite target %q: %w", target, err)
	}

	return u, nil
}
