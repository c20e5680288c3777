package query

import (
	"fmt"
	"regexp"

	"github.com/briangreenhill/poewatch/record"
)

type matchKind int

const (
	exactMatch matchKind = iota
	patternMatch
)

// Match is an expected field value: either an exact value or a pattern the
// field's text must match.
type Match struct {
	kind    matchKind
	value   any
	pattern *regexp.Regexp
}

// Exact matches fields equal to v. Numbers compare by value, so Exact(1)
// matches a JSON 1 or 1.0.
func Exact(v any) Match {
	return Match{kind: exactMatch, value: v}
}

// Pattern matches fields whose text matches re
func Pattern(re *regexp.Regexp) Match {
	return Match{kind: patternMatch, pattern: re}
}

// Regexp compiles expr into a pattern match
func Regexp(expr string) (Match, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Match{}, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return Pattern(re), nil
}

// MustRegexp is like Regexp but panics on a bad expression
func MustRegexp(expr string) Match {
	return Pattern(regexp.MustCompile(expr))
}

// IsPattern reports whether m is a pattern match
func (m Match) IsPattern() bool { return m.kind == patternMatch }

// Matches reports whether v satisfies m. Null values never match a pattern.
func (m Match) Matches(v record.Value) bool {
	switch m.kind {
	case patternMatch:
		if m.pattern == nil || v.IsNull() {
			return false
		}
		return m.pattern.MatchString(v.Text())
	default:
		return v.Equal(m.value)
	}
}

func (m Match) String() string {
	if m.kind == patternMatch {
		return "/" + m.pattern.String() + "/"
	}
	return fmt.Sprintf("%v", m.value)
}

// Fielder is anything with named fields to match against
type Fielder interface {
	Get(name string) (record.Value, bool)
}

// Predicates maps field names to expected values. All of them must match.
type Predicates map[string]Match

// Match reports whether every predicate holds for f. Missing fields never
// match; an empty Predicates matches everything.
func (p Predicates) Match(f Fielder) bool {
	for name, m := range p {
		v, ok := f.Get(name)
		if !ok || !m.Matches(v) {
			return false
		}
	}
	return true
}
