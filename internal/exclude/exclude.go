// Package exclude decides which documents the logger should ignore: its own
// log parts, non-file surfaces (output panes, terminals), and user-configured
// patterns. The decision is a pure function of document identity so it can be
// tested without a store.
package exclude

import (
	"path/filepath"
	"regexp"
	"strings"
)

// partName matches the logger's own output files,
// {studentId}_{base}_{sessionId}_part{N}.json.
var partName = regexp.MustCompile(`_part\d+\.json$`)

// Rule is a set of exclusion patterns applied on top of the built-in checks.
type Rule struct {
	// Patterns are glob patterns matched against the base name and the path.
	Patterns []string
}

// Excluded reports whether the document identified by path and scheme should
// be ignored. Scheme "" is treated as "file"; anything else (output,
// terminal, untitled, ...) is not a real document and is always excluded.
func (r Rule) Excluded(path, scheme string) bool {
	if scheme != "" && scheme != "file" {
		return true
	}
	base := filepath.Base(path)
	if partName.MatchString(base) || strings.HasSuffix(base, ".json.tmp") {
		return true
	}
	// Hidden files and editor droppings are never student work.
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range r.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
