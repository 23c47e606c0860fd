package reconcile

import (
	"strings"
	"unicode"

	"cruisesync/pkg/models"
)

// OfferKey is the offer code when present, else the normalized offer name.
func OfferKey(o models.CanonicalOffer) string {
	if code := strings.TrimSpace(o.OfferCode); code != "" {
		return strings.ToUpper(code)
	}
	return normalizeKey(o.OfferName)
}

// CruiseKey is the record id when present, else the ship/sail date/cabin tuple.
func CruiseKey(c models.CanonicalCruise) string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return TupleKey(c)
}

// BookedKey is the booking id when present, else the ship/sail date/cabin tuple.
func BookedKey(b models.BookedCruise) string {
	if id := strings.TrimSpace(b.BookingID); id != "" {
		return id
	}
	return TupleKey(b.CanonicalCruise)
}

// ProgramKey identifies a loyalty program.
func ProgramKey(p models.ProgramStatus) string {
	return normalizeKey(p.Program)
}

// TupleKey joins the normalized ship name, sail date and cabin type. A
// record with neither ship nor sail date has no identity and gets "".
func TupleKey(c models.CanonicalCruise) string {
	ship, date := normalizeKey(c.ShipName), strings.TrimSpace(c.SailDate)
	if ship == "" && date == "" {
		return ""
	}
	return ship + "|" + date + "|" + normalizeKey(c.CabinType)
}

// normalizeKey lowercases, drops everything that is not a letter or digit
// and compresses the gaps into single spaces.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
