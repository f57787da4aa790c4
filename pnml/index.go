package pnml

import (
	"sort"
	"strings"
)

// ExtractPlaceIndex builds a line index of every place block in text
// without constructing a full Net. It is cheaper than Parse when a
// caller (the debug driver reloading after an edit, or a language
// server computing document symbols) only needs line ranges.
func ExtractPlaceIndex(text string) []*PlaceIndex {
	lines := splitLines(text)
	var stack []stackEntry
	var places []*PlaceIndex
	var current *PlaceIndex

	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}
		indent := leadingSpaces(raw)
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}
		stripped := strings.TrimLeft(raw, " ")

		if m := keyRE.FindStringSubmatch(stripped); m != nil {
			key, value := m[1], m[2]
			if value == "" {
				stack = append(stack, stackEntry{name: key, indent: indent})
			}
			continue
		}

		if m := listIDRE.FindStringSubmatch(stripped); m != nil && activeSection(stack) == "place" {
			if current != nil {
				current.EndLine = i - 1
			}
			current = &PlaceIndex{ID: m[1], IDLine: i, StartLine: i, EndLine: i}
			places = append(places, current)
			continue
		}

		if current != nil && i > current.EndLine {
			current.EndLine = i
		}
	}

	if current != nil && len(lines)-1 > current.EndLine {
		current.EndLine = len(lines) - 1
	}

	return places
}

// FindPlaceForLine returns the place whose block contains line. If line
// falls in a gap between blocks (e.g. on a comment or blank line), it
// returns the next place starting after line, matching the behavior a
// debugger wants when a breakpoint lands just above a place's id line.
// It returns nil if no place matches or follows.
func FindPlaceForLine(places []*PlaceIndex, line int) *PlaceIndex {
	for _, p := range places {
		if p.StartLine <= line && line <= p.EndLine {
			return p
		}
	}
	var after []*PlaceIndex
	for _, p := range places {
		if p.StartLine > line {
			after = append(after, p)
		}
	}
	if len(after) == 0 {
		return nil
	}
	sort.Slice(after, func(i, j int) bool { return after[i].StartLine < after[j].StartLine })
	return after[0]
}
