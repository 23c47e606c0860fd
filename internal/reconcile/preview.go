// Package reconcile classifies freshly repaired records against a stored
// snapshot and merges them without ever deleting or blanking stored data.
package reconcile

import (
	"sort"

	"cruisesync/pkg/models"
)

// Update is a stored record that at least one incoming field changes.
type Update[T any] struct {
	Key     string        `json:"key"`
	Changes []FieldChange `json:"changes"`
}

// Counts summarizes a KindPreview.
type Counts struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// KindPreview is the side-effect free classification of one entity kind.
type KindPreview[T any] struct {
	New       []T         `json:"new"`
	Updated   []Update[T] `json:"updated"`
	Unchanged []string    `json:"unchanged"`
}

func (p KindPreview[T]) Counts() Counts {
	return Counts{New: len(p.New), Updated: len(p.Updated), Unchanged: len(p.Unchanged)}
}

// Collapse merges incoming records that share an identity key into one
// record and returns them ordered by key.
func Collapse[T any](incoming []T, key func(T) string) ([]string, map[string]T) {
	byKey := make(map[string]T, len(incoming))
	for _, rec := range incoming {
		k := key(rec)
		if k == "" {
			continue
		}
		if existing, ok := byKey[k]; ok {
			byKey[k] = fill(existing, rec)
			continue
		}
		byKey[k] = rec
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, byKey
}

// Build classifies incoming against existing. It does not modify either slice.
func Build[T any](incoming, existing []T, key func(T) string) KindPreview[T] {
	stored := index(existing, key)
	keys, byKey := Collapse(incoming, key)

	p := KindPreview[T]{
		New:       []T{},
		Updated:   []Update[T]{},
		Unchanged: []string{},
	}
	for _, k := range keys {
		rec := byKey[k]
		cur, ok := stored[k]
		if !ok {
			p.New = append(p.New, rec)
			continue
		}
		if changes := Diff(existing[cur], rec); len(changes) > 0 {
			p.Updated = append(p.Updated, Update[T]{Key: k, Changes: changes})
			continue
		}
		p.Unchanged = append(p.Unchanged, k)
	}
	return p
}

// Apply merges a preview into existing. Stored records keep their order,
// updated ones get their changed fields overwritten and new ones are
// appended. Records absent from the preview are kept as they are.
func Apply[T any](existing []T, p KindPreview[T], key func(T) string) []T {
	out := make([]T, len(existing), len(existing)+len(p.New))
	copy(out, existing)

	stored := index(out, key)
	for _, u := range p.Updated {
		if i, ok := stored[u.Key]; ok {
			out[i] = Merge(out[i], u.Changes)
		}
	}
	for _, rec := range p.New {
		if _, ok := stored[key(rec)]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func index[T any](recs []T, key func(T) string) map[string]int {
	m := make(map[string]int, len(recs))
	for i, r := range recs {
		k := key(r)
		if _, dup := m[k]; dup || k == "" {
			continue
		}
		m[k] = i
	}
	return m
}

// SyncPreview is the reviewable changeset shown before a commit.
type SyncPreview struct {
	Offers        KindPreview[models.CanonicalOffer]  `json:"offers"`
	Cruises       KindPreview[models.CanonicalCruise] `json:"cruises"`
	BookedCruises KindPreview[models.BookedCruise]    `json:"booked_cruises"`
	Loyalty       LoyaltyPreview                      `json:"loyalty"`
}

// Summary returns the per-kind counts.
func (p SyncPreview) Summary() map[models.Kind]Counts {
	return map[models.Kind]Counts{
		models.KindOffers:        p.Offers.Counts(),
		models.KindCruises:       p.Cruises.Counts(),
		models.KindBookedCruises: p.BookedCruises.Counts(),
		models.KindLoyalty:       p.Loyalty.Counts(),
	}
}
