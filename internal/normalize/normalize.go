// Package normalize canonicalizes raw extractor field values into the fixed
// vocabulary used by stored records.
//
// Every function is pure and never fails: a value that cannot be mapped is
// returned in a best-effort form together with an issue string.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Result is the outcome of normalizing a single field value.
type Result[T any] struct {
	Value         T
	WasNormalized bool
	OriginalValue string
	Issues        []string
}

// entry maps one lowercase alias onto a canonical value.
type entry struct {
	alias     string
	canonical string
}

// table is an ordered lookup table. Order matters for the containment
// fallback: the first entry whose alias occurs in the input wins.
type table []entry

func (t table) exact(key string) (string, bool) {
	for _, e := range t {
		if e.alias == key {
			return e.canonical, true
		}
	}
	return "", false
}

func (t table) contains(key string) (string, bool) {
	for _, e := range t {
		if strings.Contains(key, e.alias) {
			return e.canonical, true
		}
	}
	return "", false
}

// cleanText folds unicode compatibility forms, drops trademark marks and
// collapses inner whitespace.
func cleanText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.NewReplacer("®", "", "™", "", " ", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func lookupKey(s string) string {
	return strings.ToLower(cleanText(s))
}

// matchText runs the three-stage lookup shared by all vocabulary fields:
// exact lowercase match, containment fallback, then title casing.
func matchText(raw string, t table, what string) Result[string] {
	res := Result[string]{OriginalValue: raw}
	if strings.TrimSpace(raw) == "" {
		return res
	}

	key := lookupKey(raw)
	if v, ok := t.exact(key); ok {
		res.Value = v
	} else if v, ok := t.contains(key); ok {
		res.Value = v
	} else {
		res.Value = cases.Title(language.English).String(key)
		res.Issues = append(res.Issues, "unrecognized "+what+" "+quote(raw))
	}
	res.WasNormalized = res.Value != raw
	return res
}

// ShipName maps a raw ship name onto the fleet list.
func ShipName(raw string) Result[string] { return matchText(raw, shipTable, "ship name") }

// PortName maps a raw departure port onto its canonical "City, Region" form.
func PortName(raw string) Result[string] { return matchText(raw, portTable, "port") }

// CabinType maps a raw stateroom category onto Interior, Ocean View, Balcony or Suite.
func CabinType(raw string) Result[string] { return matchText(raw, cabinTable, "cabin type") }

// Destination maps a raw itinerary region onto a canonical destination.
func Destination(raw string) Result[string] { return matchText(raw, destinationTable, "destination") }

// KnownShip reports whether name is already a canonical fleet name.
func KnownShip(name string) bool {
	for _, e := range shipTable {
		if e.canonical == name {
			return true
		}
	}
	return false
}

// KnownCabinType reports whether name is one of the canonical categories.
func KnownCabinType(name string) bool {
	for _, c := range CabinTypes {
		if c == name {
			return true
		}
	}
	return false
}

func quote(s string) string {
	return "\"" + s + "\""
}
