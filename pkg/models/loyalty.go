package models

import (
	"sort"
	"time"
)

// ProgramStatus is the tier and balance of one loyalty program.
type ProgramStatus struct {
	Program string `json:"program"`
	Tier    string `json:"tier,omitempty"`
	Points  int    `json:"points"`
}

// LoyaltyStatus is a single snapshot of every program the member belongs to.
// It is replaced wholesale, never merged field by field.
type LoyaltyStatus struct {
	Programs      map[string]ProgramStatus `json:"programs"`
	Source        string                   `json:"source,omitempty"`
	Authoritative bool                     `json:"authoritative"`
	CapturedAt    time.Time                `json:"captured_at"`
}

// ProgramList returns the programs in a stable order.
func (l *LoyaltyStatus) ProgramList() []ProgramStatus {
	if l == nil {
		return nil
	}
	out := make([]ProgramStatus, 0, len(l.Programs))
	for _, p := range l.Programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Program < out[j].Program })
	return out
}
