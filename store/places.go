package store

import "strings"

// placesSep separates place ids in the flattened produced_places column.
// Place ids are restricted to [A-Za-z0-9_-] by the parser (see pnml
// package), so a comma can never appear inside one.
const placesSep = ","

func joinPlaces(places []string) string {
	return strings.Join(places, placesSep)
}

func splitPlaces(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, placesSep)
}
