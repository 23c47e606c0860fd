package validate

import (
	"cruisesync/internal/normalize"
	"cruisesync/pkg/models"
)

// QualityScore is an informational 0-100 rating of a cruise collection.
// It never gates repair or sync.
type QualityScore struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`
	Overall      float64 `json:"overall"`
	Records      int     `json:"records"`
}

const (
	penaltyUnknownShip      = 20
	penaltyBadDate          = 30
	penaltyBadNights        = 20
	penaltyNightsMismatch   = 25
	timelinessOver90Days    = 85
	timelinessOver180Days   = 70
	timelinessOver365Days   = 50
	requiredFieldsPerCruise = 6
)

// Quality scores a collection of cruises. An empty collection scores 0 on
// every axis.
func (v Validator) Quality(cruises []models.CanonicalCruise) QualityScore {
	q := QualityScore{Records: len(cruises)}
	if len(cruises) == 0 {
		return q
	}

	var populated, accuracy, consistency, timeliness float64
	for _, c := range cruises {
		populated += float64(populatedFields(c))
		accuracy += v.accuracy(c)
		consistency += v.consistency(c)
		timeliness += v.timeliness(c)
	}

	n := float64(len(cruises))
	q.Completeness = clampScore(populated / (n * requiredFieldsPerCruise) * 100)
	q.Accuracy = clampScore(accuracy / n)
	q.Consistency = clampScore(consistency / n)
	q.Timeliness = clampScore(timeliness / n)
	q.Overall = clampScore((q.Completeness + q.Accuracy + q.Consistency + q.Timeliness) / 4)
	return q
}

func populatedFields(c models.CanonicalCruise) int {
	n := 0
	for _, s := range []string{c.ShipName, c.SailDate, c.ReturnDate, c.DeparturePort, c.CabinType} {
		if s != "" {
			n++
		}
	}
	if c.Nights > 0 {
		n++
	}
	return n
}

func (v Validator) accuracy(c models.CanonicalCruise) float64 {
	score := 100.0
	if !normalize.KnownShip(c.ShipName) {
		score -= penaltyUnknownShip
	}
	if _, err := normalize.ParseDate(c.SailDate); err != nil {
		score -= penaltyBadDate
	}
	if c.Nights <= 0 || c.Nights > MaxReasonableNights {
		score -= penaltyBadNights
	}
	return clampScore(score)
}

func (v Validator) consistency(c models.CanonicalCruise) float64 {
	sail, ret, ok := parsedRange(&c)
	if !ok || c.Nights <= 0 {
		return 100
	}
	if absInt(normalize.DaysBetween(sail, ret)-c.Nights) > 1 {
		return 100 - penaltyNightsMismatch
	}
	return 100
}

func (v Validator) timeliness(c models.CanonicalCruise) float64 {
	sail, err := normalize.ParseDate(c.SailDate)
	if err != nil || !sail.Before(v.AsOf) {
		return 100
	}
	switch age := normalize.DaysBetween(sail, v.AsOf); {
	case age > 365:
		return timelinessOver365Days
	case age > 180:
		return timelinessOver180Days
	case age > 90:
		return timelinessOver90Days
	}
	return 100
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
