package repair

// Summary splits a repaired collection three ways.
type Summary struct {
	Total int `json:"total"`
	// FullyValid counts records with no errors after repair, including
	// records that were valid to begin with.
	FullyValid int `json:"fully_valid"`
	// Improved counts records that received at least one action but still
	// carry errors.
	Improved int `json:"improved"`
	// Unrepaired counts invalid records no action applied to.
	Unrepaired int `json:"unrepaired"`
	Actions    int `json:"actions"`
}

// Batch repairs every record with fn and summarizes the outcomes.
func Batch[T any](recs []T, fn func(T) Outcome[T]) ([]Outcome[T], Summary) {
	out := make([]Outcome[T], 0, len(recs))
	s := Summary{Total: len(recs)}
	for _, rec := range recs {
		o := fn(rec)
		out = append(out, o)
		s.Actions += len(o.Actions)
		switch {
		case o.FullyValid():
			s.FullyValid++
		case len(o.Actions) > 0:
			s.Improved++
		default:
			s.Unrepaired++
		}
	}
	return out, s
}

// Records unwraps the repaired records.
func Records[T any](outcomes []Outcome[T]) []T {
	recs := make([]T, len(outcomes))
	for i, o := range outcomes {
		recs[i] = o.Record
	}
	return recs
}
