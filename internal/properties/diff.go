package properties

import (
	"regexp"
	"slices"
)

// Diff returns the sorted symmetric difference of two property maps: keys
// that were added, removed, or whose value changed.
func Diff(previous, current map[string]string) []string {
	var changed []string
	for k, v := range current {
		if old, ok := previous[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range previous {
		if _, ok := current[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

// Patterns is an ordered set of key patterns.
type Patterns []*regexp.Regexp

// MustCompilePatterns compiles expressions into Patterns and panics on an
// invalid expression. Intended for package-level defaults.
func MustCompilePatterns(exprs ...string) Patterns {
	p := make(Patterns, 0, len(exprs))
	for _, e := range exprs {
		p = append(p, regexp.MustCompile(e))
	}
	return p
}

// CompilePatterns compiles expressions into Patterns.
func CompilePatterns(exprs ...string) (Patterns, error) {
	p := make(Patterns, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, err
		}
		p = append(p, re)
	}
	return p, nil
}

// Matches reports whether key matches any pattern.
func (p Patterns) Matches(key string) bool {
	for _, re := range p {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any of keys matches any pattern.
func (p Patterns) MatchesAny(keys []string) bool {
	return slices.ContainsFunc(keys, p.Matches)
}
