package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Excluder matches slash-separated relative paths against exclude globs.
// A pattern without "/" is tried against every path element, like .gitignore.
type Excluder struct {
	anywhere []glob.Glob
	rooted   []glob.Glob
}

func (c *Config) Excluder() (*Excluder, error) {
	return NewExcluder(c.Scan.Exclude)
}

func NewExcluder(patterns []string) (*Excluder, error) {
	ex := &Excluder{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.TrimPrefix(p, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if strings.Contains(p, "/") {
			ex.rooted = append(ex.rooted, g)
		} else {
			ex.anywhere = append(ex.anywhere, g)
		}
	}
	return ex, nil
}

// Match reports whether rel (relative to the scan root) is excluded.
func (e *Excluder) Match(rel string) bool {
	if e == nil {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	for _, g := range e.rooted {
		if g.Match(rel) {
			return true
		}
	}
	for _, part := range strings.Split(rel, "/") {
		for _, g := range e.anywhere {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}
