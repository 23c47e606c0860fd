package reconcile

import (
	"sort"

	"cruisesync/pkg/models"
)

// LoyaltyDelta describes how one program would change.
type LoyaltyDelta struct {
	Program  string                `json:"program"`
	Previous *models.ProgramStatus `json:"previous,omitempty"`
	Current  models.ProgramStatus  `json:"current"`
	Changed  bool                  `json:"changed"`
	Applied  bool                  `json:"applied"`
}

// LoyaltyPreview is the loyalty block of a SyncPreview.
type LoyaltyPreview struct {
	Captured      bool           `json:"captured"`
	Authoritative bool           `json:"authoritative"`
	Source        string         `json:"source,omitempty"`
	Deltas        []LoyaltyDelta `json:"deltas"`
}

func (p LoyaltyPreview) Counts() Counts {
	var c Counts
	for _, d := range p.Deltas {
		switch {
		case d.Previous == nil && d.Applied:
			c.New++
		case d.Changed && d.Applied:
			c.Updated++
		default:
			c.Unchanged++
		}
	}
	return c
}

// AcceptLoyalty decides whether an incoming capture may replace the one
// already held by the session. An authoritative capture always wins; a
// fallback capture is accepted only while no authoritative one was seen.
func AcceptLoyalty(authoritativeSeen bool, incoming *models.LoyaltyStatus) bool {
	if incoming == nil {
		return false
	}
	return incoming.Authoritative || !authoritativeSeen
}

// BuildLoyalty compares a captured snapshot with the stored programs.
// An authoritative capture replaces stored values; a fallback capture only
// fills programs that are not stored yet.
func BuildLoyalty(incoming *models.LoyaltyStatus, existing []models.ProgramStatus) LoyaltyPreview {
	p := LoyaltyPreview{Deltas: []LoyaltyDelta{}}
	if incoming == nil {
		return p
	}
	p.Captured = true
	p.Authoritative = incoming.Authoritative
	p.Source = incoming.Source

	stored := make(map[string]models.ProgramStatus, len(existing))
	for _, e := range existing {
		stored[ProgramKey(e)] = e
	}

	for _, cur := range incoming.ProgramList() {
		d := LoyaltyDelta{Program: cur.Program, Current: cur}
		if prev, ok := stored[ProgramKey(cur)]; ok {
			prev := prev
			d.Previous = &prev
			d.Changed = prev != cur
			d.Applied = d.Changed && incoming.Authoritative
		} else {
			d.Changed = true
			d.Applied = true
		}
		p.Deltas = append(p.Deltas, d)
	}
	return p
}

// ApplyLoyalty writes the applied deltas over existing. Programs that the
// capture did not mention are kept.
func ApplyLoyalty(existing []models.ProgramStatus, p LoyaltyPreview) []models.ProgramStatus {
	byKey := make(map[string]models.ProgramStatus, len(existing)+len(p.Deltas))
	for _, e := range existing {
		byKey[ProgramKey(e)] = e
	}
	for _, d := range p.Deltas {
		if d.Applied {
			byKey[ProgramKey(d.Current)] = d.Current
		}
	}

	out := make([]models.ProgramStatus, 0, len(byKey))
	for _, v := range byKey {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return ProgramKey(out[i]) < ProgramKey(out[j]) })
	return out
}
