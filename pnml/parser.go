package pnml

import (
	"regexp"
	"strings"

	"github.com/evoflow/pnmlcore/registry"
)

var (
	keyRE     = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*:\s*(.*)$`)
	listIDRE  = regexp.MustCompile(`^-\s*id:\s*([A-Za-z0-9_\-]+)\s*$`)
	valueRE   = regexp.MustCompile(`^-\s*value:\s*(.+)$`)
	sectioned = map[string]bool{
		"net": true, "place": true, "transition": true, "arc": true,
		"initialTokens": true, "inscriptions": true,
	}
)

type stackEntry struct {
	name   string
	indent int
}

func activeSection(stack []stackEntry) string {
	for i := len(stack) - 1; i >= 0; i-- {
		if sectioned[stack[i].name] {
			return stack[i].name
		}
	}
	return ""
}

func stackContains(stack []stackEntry, name string) bool {
	for _, e := range stack {
		if e.name == name {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// Parse parses text into a Net plus its PlaceIndex line index, following
// the same single-pass indent-stack algorithm as ExtractPlaceIndex so
// the two never disagree about where a place's block starts and ends.
func Parse(text string) (*Net, []*PlaceIndex) {
	lines := splitLines(text)
	var stack []stackEntry
	net := newNet()
	var placeIndex []*PlaceIndex

	var currentPlaceID string
	var currentTransitionID string
	var currentArc *Arc
	var currentPlaceEntry *PlaceIndex
	var currentInscription *Inscription
	var currentInscriptionOwner string
	var currentInscriptionAdded bool
	codeIndent := -1
	var currentNetID string

	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}
		indent := leadingSpaces(raw)

		if codeIndent >= 0 {
			if indent > codeIndent {
				if currentInscription != nil {
					tail := ""
					if codeIndent+1 <= len(raw) {
						tail = raw[codeIndent+1:]
					}
					currentInscription.Code += tail + "\n"
				}
				continue
			}
			codeIndent = -1
		}

		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}
		stripped := strings.TrimLeft(raw, " ")

		if m := keyRE.FindStringSubmatch(stripped); m != nil {
			key, value := m[1], m[2]
			if key == "code" && strings.TrimSpace(value) == "|" {
				codeIndent = indent
				if currentInscription != nil {
					currentInscription.Code = ""
				}
				continue
			}
			if value == "" {
				stack = append(stack, stackEntry{name: key, indent: indent})
			} else {
				if currentInscription != nil && activeSection(stack) == "inscriptions" {
					switch key {
					case "language":
						currentInscription.Language = strings.TrimSpace(value)
					case "kind":
						currentInscription.Kind = strings.TrimSpace(value)
					case "source":
						currentInscription.Source = strings.TrimSpace(value)
					case "id":
						currentInscription.ID = strings.TrimSpace(value)
					case "execMode":
						currentInscription.ExecMode = strings.TrimSpace(value)
					case "code":
						currentInscription.Code = parseScalar(value).String()
					}
					switch key {
					case "language", "kind", "source", "id", "execMode", "code":
						syncInscriptionOwner(net, currentInscription, currentNetID, currentTransitionID,
							currentArc, currentInscriptionOwner, &currentInscriptionAdded)
					}
				}
				if activeSection(stack) == "arc" && currentArc != nil {
					switch key {
					case "source":
						currentArc.Source = strings.TrimSpace(value)
					case "target":
						currentArc.Target = strings.TrimSpace(value)
					}
				}
			}
			continue
		}

		if m := listIDRE.FindStringSubmatch(stripped); m != nil {
			itemID := m[1]
			section := activeSection(stack)
			switch {
			case section == "net" && !anyStackContains(stack, "page", "place", "transition", "arc", "inscriptions"):
				currentNetID = itemID
				net.ID = itemID
				continue
			case section == "place":
				if currentPlaceEntry != nil {
					currentPlaceEntry.EndLine = i - 1
				}
				currentPlaceID = itemID
				currentPlaceEntry = &PlaceIndex{ID: itemID, IDLine: i, StartLine: i, EndLine: i}
				placeIndex = append(placeIndex, currentPlaceEntry)
				net.Places[itemID] = &Place{ID: itemID}
				continue
			case section == "transition":
				currentTransitionID = itemID
				net.Transitions[itemID] = &Transition{ID: itemID}
				net.TransitionOrder = append(net.TransitionOrder, itemID)
				continue
			case section == "inscriptions":
				currentInscription = &Inscription{ID: itemID}
				currentInscriptionAdded = false
				if len(stack) > 0 {
					currentInscriptionOwner = activeSection(stack[:len(stack)-1])
				} else {
					currentInscriptionOwner = ""
				}
				syncInscriptionOwner(net, currentInscription, currentNetID, currentTransitionID,
					currentArc, currentInscriptionOwner, &currentInscriptionAdded)
				continue
			case section == "arc":
				currentArc = &Arc{ID: itemID}
				net.Arcs = append(net.Arcs, currentArc)
				continue
			}
		}

		if m := valueRE.FindStringSubmatch(stripped); m != nil && activeSection(stack) == "initialTokens" && currentPlaceID != "" {
			tok := parseScalar(m[1])
			if p := net.Places[currentPlaceID]; p != nil {
				p.Tokens = append(p.Tokens, tok)
			}
		}

		if currentPlaceEntry != nil && i > currentPlaceEntry.EndLine {
			currentPlaceEntry.EndLine = i
		}
	}

	if currentPlaceEntry != nil && len(lines)-1 > currentPlaceEntry.EndLine {
		currentPlaceEntry.EndLine = len(lines) - 1
	}

	return net, placeIndex
}

func anyStackContains(stack []stackEntry, names ...string) bool {
	for _, n := range names {
		if stackContains(stack, n) {
			return true
		}
	}
	return false
}

// syncInscriptionOwner recomputes ins's owner id and registry key on
// every call (kind is often set on a later line than id, so the key
// must be refreshed each time a field changes), but appends ins to its
// owner's inscription list at most once.
func syncInscriptionOwner(net *Net, ins *Inscription, netID, transitionID string, arc *Arc, ownerSection string, added *bool) {
	if ownerSection == "transition" && transitionID != "" {
		ins.OwnerID = transitionID
		ins.RegistryKey = registryKey(netID, transitionID, ins.Kind)
		if !*added {
			if t := net.Transitions[transitionID]; t != nil {
				t.Inscriptions = append(t.Inscriptions, ins)
				*added = true
			}
		}
		return
	}
	if ownerSection == "arc" && arc != nil {
		ins.OwnerID = arc.ID
		ins.RegistryKey = registryKey(netID, arc.ID, ins.Kind)
		if !*added {
			arc.Inscriptions = append(arc.Inscriptions, ins)
			*added = true
		}
	}
}

func registryKey(netID, ownerID, kind string) string {
	if netID == "" {
		netID = "pnml"
	}
	return registry.BuildKey(netID, ownerID, kind)
}
