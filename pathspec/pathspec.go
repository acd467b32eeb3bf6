// Package pathspec compiles route path specifications into matchers.
//
// A path specification is a literal path with optional named placeholders:
//
//	/widget/:id        ":id" captures a single path segment
//	/files/::rest      "::rest" captures everything that remains, separators included
//	*                  matches every path and captures nothing
//
// Matching is case-insensitive and anchored at both ends of the path. Literal
// text is matched exactly, so characters such as "." or "+" carry no special
// meaning.
package pathspec

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Wildcard is the specification that matches every path.
const Wildcard = "*"

var (
	// ErrEmpty is returned when compiling an empty specification.
	ErrEmpty = errors.New("pathspec: empty specification")
	// ErrDuplicateToken is returned when two placeholders share a name.
	ErrDuplicateToken = errors.New("pathspec: duplicate placeholder name")
)

// placeholder finds ":name" and "::name" in a specification.
var placeholder = regexp.MustCompile(`::?([A-Za-z0-9_-]+)`)

const (
	segmentGroup = `([^/]+?)`
	greedyGroup  = `(.+)`
)

// Matcher is a compiled path specification.
type Matcher struct {
	spec   string
	re     *regexp.Regexp
	tokens []string
}

// Compile turns a path specification into a Matcher. Placeholder names are
// recorded in the order they appear and correspond one to one with the
// capture groups of the resulting pattern.
func Compile(spec string) (*Matcher, error) {
	if spec == "" {
		return nil, ErrEmpty
	}
	if spec == Wildcard {
		return &Matcher{spec: spec, re: regexp.MustCompile(`^`)}, nil
	}

	var (
		pattern strings.Builder
		tokens  []string
		seen    = make(map[string]struct{})
		last    int
	)
	pattern.WriteString(`(?i)^`)
	for _, loc := range placeholder.FindAllStringSubmatchIndex(spec, -1) {
		start, end := loc[0], loc[1]
		name := spec[loc[2]:loc[3]]
		if _, dup := seen[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateToken, "%q in %q", name, spec)
		}
		seen[name] = struct{}{}
		tokens = append(tokens, name)

		pattern.WriteString(regexp.QuoteMeta(spec[last:start]))
		if strings.HasPrefix(spec[start:end], "::") {
			pattern.WriteString(greedyGroup)
		} else {
			pattern.WriteString(segmentGroup)
		}
		last = end
	}
	pattern.WriteString(regexp.QuoteMeta(spec[last:]))
	pattern.WriteString(`$`)

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, errors.Wrapf(err, "pathspec: compiling %q", spec)
	}
	return &Matcher{spec: spec, re: re, tokens: tokens}, nil
}

// MustCompile is like Compile but panics if the specification is invalid.
func MustCompile(spec string) *Matcher {
	m, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return m
}

// Prefix returns a matcher for prefix itself and every path beneath it.
// A trailing separator on prefix is ignored.
func Prefix(prefix string) *Matcher {
	p := strings.TrimSuffix(prefix, "/")
	return &Matcher{
		spec: p + "/" + Wildcard,
		re:   regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(p) + `(?:/.*)?$`),
	}
}

// FromRegexp wraps a caller-compiled pattern. No tokens are recorded, so
// matching it never yields parameters; the caller owns the meaning of any
// capture groups.
func FromRegexp(re *regexp.Regexp) *Matcher {
	return &Matcher{spec: re.String(), re: re}
}

// Match reports whether path satisfies the matcher and returns the captured
// parameters keyed by placeholder name.
func (m *Matcher) Match(path string) (map[string]string, bool) {
	groups := m.re.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}
	if len(m.tokens) == 0 {
		return nil, true
	}
	params := make(map[string]string, len(m.tokens))
	// groups[0] is the whole match.
	for i, token := range m.tokens {
		if i+1 < len(groups) {
			params[token] = groups[i+1]
		}
	}
	return params, true
}

// Tokens returns a copy of the placeholder names in capture order.
func (m *Matcher) Tokens() []string {
	return append([]string(nil), m.tokens...)
}

// Regexp returns the compiled pattern.
func (m *Matcher) Regexp() *regexp.Regexp {
	return m.re
}

// String returns the specification the matcher was built from.
func (m *Matcher) String() string {
	return m.spec
}
