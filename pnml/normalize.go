package pnml

import (
	"regexp"
	"strings"
)

var pluralKeyRE = regexp.MustCompile(`^(\s*)(places|transitions|arcs)(:\s*)$`)

var pluralToSingular = map[string]string{
	"places":      "place",
	"transitions": "transition",
	"arcs":        "arc",
}

var pageKeyRE = regexp.MustCompile(`^(\s*)page(:\s*)$`)
var netListIDRE = regexp.MustCompile(`^\s*-\s*id:\s*`)

// Normalize applies the input-tolerant preprocessing pass described in
// spec.md §4.1: it rewrites plural section keys (places/transitions/
// arcs) to their singular form at the same indent, and wraps a bare
// page: block under net: with a synthetic "- id: generated_net" list
// item when the block has no list entry of its own. It is idempotent:
// Normalize(Normalize(t)) == Normalize(t).
func Normalize(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := pluralKeyRE.FindStringSubmatch(line); m != nil {
			out = append(out, m[1]+pluralToSingular[m[2]]+m[3])
			continue
		}
		if m := pageKeyRE.FindStringSubmatch(line); m != nil {
			indent := m[1]
			out = append(out, line)
			if !pageHasListEntry(lines, i, len(indent)) {
				out = append(out, indent+"  - id: generated_net")
			}
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// pageHasListEntry reports whether the page: block's first nested line
// (the one immediately after line index pageLine, whose key sits at
// indent pageIndent) is itself a "- id: ..." list entry, i.e. the page
// is already written as a list of page items rather than a single
// flat block.
func pageHasListEntry(lines []string, pageLine, pageIndent int) bool {
	for j := pageLine + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := leadingSpaces(lines[j])
		if indent <= pageIndent {
			return false
		}
		return netListIDRE.MatchString(lines[j])
	}
	return false
}
