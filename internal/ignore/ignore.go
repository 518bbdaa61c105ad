// Package ignore implements the .gittyignore predicate the walker
// consults while deciding which directory entries to surface, modeled
// loosely on gitignore semantics.
package ignore

import (
	"bufio"
	"os"
	"path"
	"strings"
)

type rule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool // pattern contained a "/" before the final segment
}

// Matcher evaluates a directory's worth of .gittyignore rules against
// slash-separated paths relative to the snapshot source root.
type Matcher struct {
	rules []rule
}

// Empty returns a Matcher with no rules; ShouldSkip always returns false.
func Empty() *Matcher {
	return &Matcher{}
}

// Load reads a .gittyignore file. A missing file yields an empty
// Matcher, the same "nothing to ignore" behaviour as no file present.
func Load(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, err
	}
	defer f.Close()

	m := &Matcher{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := rule{pattern: line}
		if strings.HasPrefix(r.pattern, "!") {
			r.negate = true
			r.pattern = r.pattern[1:]
		}
		if strings.HasSuffix(r.pattern, "/") {
			r.dirOnly = true
			r.pattern = strings.TrimSuffix(r.pattern, "/")
		}
		if strings.Contains(strings.TrimPrefix(r.pattern, "/"), "/") || strings.HasPrefix(r.pattern, "/") {
			r.anchored = true
			r.pattern = strings.TrimPrefix(r.pattern, "/")
		}
		if r.pattern == "" {
			continue
		}
		m.rules = append(m.rules, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// ShouldSkip reports whether relPath (slash-separated, relative to the
// snapshot source root) should be excluded from the walk. isDir lets
// directory-only patterns (a trailing "/") apply correctly. Later rules
// override earlier ones, and a "!"-prefixed rule re-includes a path an
// earlier rule excluded, the usual gitignore last-match-wins order.
func (m *Matcher) ShouldSkip(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	skip := false
	base := path.Base(relPath)
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		var matched bool
		if r.anchored {
			matched, _ = path.Match(r.pattern, relPath)
		} else {
			matched, _ = path.Match(r.pattern, base)
			if !matched {
				matched, _ = path.Match(r.pattern, relPath)
			}
		}
		if matched {
			skip = !r.negate
		}
	}
	return skip
}
