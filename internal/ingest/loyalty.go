package ingest

import (
	"fmt"
	"time"

	"cruisesync/pkg/models"
)

// flatPrograms maps key prefixes of flattened loyalty records onto program
// names, e.g. {"clubRoyaleTier": "Prime", "clubRoyalePoints": 2500}.
var flatPrograms = []struct {
	prefix  string
	program string
}{
	{"crownAndAnchor", "Crown & Anchor Society"},
	{"clubRoyale", "Club Royale"},
	{"captainsClub", "Captain's Club"},
	{"blueChip", "Blue Chip Club"},
}

// Programs decodes one raw loyalty record into its programs.
func Programs(r models.RawRecord) ([]models.ProgramStatus, error) {
	if nested := records(r, "programs", "loyaltyPrograms"); len(nested) > 0 {
		var out []models.ProgramStatus
		for _, n := range nested {
			if progs, err := Programs(n); err == nil {
				out = append(out, progs...)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	if name := str(r, "program", "programName", "loyaltyProgram"); name != "" {
		return []models.ProgramStatus{{
			Program: name,
			Tier:    str(r, "tier", "tierName", "level"),
			Points:  integer(r, "points", "balance", "pointBalance", "nights"),
		}}, nil
	}

	var out []models.ProgramStatus
	for _, p := range flatPrograms {
		tier := str(r, p.prefix+"Tier", p.prefix+"Level")
		_, hasPoints := lookup(r, p.prefix+"Points")
		if tier == "" && !hasPoints {
			continue
		}
		out = append(out, models.ProgramStatus{Program: p.program, Tier: tier, Points: integer(r, p.prefix+"Points")})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("loyalty record without program: %w", ErrMalformed)
	}
	return out, nil
}

// Loyalty folds raw loyalty records into one snapshot. Later records win
// for the same program. It returns nil when nothing could be decoded.
func Loyalty(raw []models.RawRecord, source string, authoritative bool, at time.Time) (*models.LoyaltyStatus, []Skip) {
	status := &models.LoyaltyStatus{
		Programs:      map[string]models.ProgramStatus{},
		Source:        source,
		Authoritative: authoritative,
		CapturedAt:    at,
	}
	var skipped []Skip
	for i, r := range raw {
		progs, err := Programs(r)
		if err != nil {
			skipped = append(skipped, Skip{Index: i, Err: err})
			continue
		}
		for _, p := range progs {
			status.Programs[p.Program] = p
		}
	}
	if len(status.Programs) == 0 {
		return nil, skipped
	}
	return status, skipped
}
