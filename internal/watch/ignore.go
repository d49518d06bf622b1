package watch

import (
	"path"
	"path/filepath"
	"strings"
)

type ruleKind int

const (
	// ruleSegment matches a whole path segment: "node_modules".
	ruleSegment ruleKind = iota
	// ruleNameGlob matches the base name: "*.swp".
	ruleNameGlob
	// rulePathGlob matches the slash path: "build/*.o".
	rulePathGlob
	// ruleSubpath matches consecutive segments: "web/dist".
	ruleSubpath
)

type rule struct {
	kind     ruleKind
	pattern  string
	segments []string
}

// Matcher decides which paths are ignored.
type Matcher struct {
	rules []rule
}

// NewMatcher compiles ignore patterns. Blank patterns are skipped.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}

		hasSep := strings.Contains(p, "/")
		hasGlob := strings.ContainsAny(p, "*?[")
		switch {
		case hasGlob && hasSep:
			m.rules = append(m.rules, rule{kind: rulePathGlob, pattern: p})
		case hasGlob:
			m.rules = append(m.rules, rule{kind: ruleNameGlob, pattern: p})
		case hasSep:
			m.rules = append(m.rules, rule{kind: ruleSubpath, segments: segments(p)})
		default:
			m.rules = append(m.rules, rule{kind: ruleSegment, pattern: p})
		}
	}
	return m
}

// Match reports whether p is ignored.
func (m *Matcher) Match(p string) bool {
	slashed := filepath.ToSlash(p)
	name := path.Base(slashed)
	parts := segments(slashed)

	for _, r := range m.rules {
		switch r.kind {
		case ruleSegment:
			for _, part := range parts {
				if part == r.pattern {
					return true
				}
			}
		case ruleNameGlob:
			if ok, _ := path.Match(r.pattern, name); ok {
				return true
			}
		case rulePathGlob:
			if ok, _ := path.Match(r.pattern, slashed); ok {
				return true
			}
		case ruleSubpath:
			if containsRun(parts, r.segments) {
				return true
			}
		}
	}
	return false
}

// containsRun reports whether run appears as consecutive elements of parts.
func containsRun(parts, run []string) bool {
	if len(run) == 0 || len(run) > len(parts) {
		return false
	}
outer:
	for i := 0; i+len(run) <= len(parts); i++ {
		for j := range run {
			if parts[i+j] != run[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

func segments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}
