//go:build property
// +build property

package reconcile

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cruisesync/pkg/models"
)

var ships = []string{"", "Icon of the Seas", "Wonder of the Seas", "Utopia of the Seas"}

func genCruise() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.IntRange(0, len(ships)-1),
		gen.IntRange(0, 14),
		gen.Float64Range(0, 5000),
		gen.OneConstOf("", "Balcony", "Interior", "Suite"),
	).Map(func(v []any) models.CanonicalCruise {
		id := ""
		if n := v[0].(int); n > 0 {
			id = string(rune('a' + n))
		}
		return models.CanonicalCruise{
			ID:        id,
			ShipName:  ships[v[1].(int)],
			SailDate:  "03-15-2026",
			Nights:    v[2].(int),
			Price:     v[3].(float64),
			CabinType: v[4].(string),
		}
	})
}

func TestReconcileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("preview and merge are idempotent", prop.ForAll(
		func(incoming, existing []models.CanonicalCruise) bool {
			p1 := Build(incoming, existing, CruiseKey)
			p2 := Build(incoming, existing, CruiseKey)
			if !reflect.DeepEqual(p1, p2) {
				return false
			}
			return reflect.DeepEqual(Apply(existing, p1, CruiseKey), Apply(existing, p2, CruiseKey))
		},
		gen.SliceOf(genCruise()),
		gen.SliceOf(genCruise()),
	))

	properties.Property("empty incoming fields never blank stored ones", prop.ForAll(
		func(stored models.CanonicalCruise, price float64) bool {
			stored.ID = "x"
			incoming := models.CanonicalCruise{ID: "x", Price: price}
			merged := Apply([]models.CanonicalCruise{stored}, Build([]models.CanonicalCruise{incoming}, []models.CanonicalCruise{stored}, CruiseKey), CruiseKey)
			m := merged[0]
			return m.ShipName == stored.ShipName &&
				m.SailDate == stored.SailDate &&
				m.Nights == stored.Nights &&
				m.CabinType == stored.CabinType &&
				(price == 0 && m.Price == stored.Price || price != 0 && m.Price == price)
		},
		genCruise(),
		gen.Float64Range(0, 5000),
	))

	properties.Property("equal keys in either order reconcile to one record", prop.ForAll(
		func(a, b models.CanonicalCruise) bool {
			b.ID = a.ID
			if a.ID == "" {
				b.ShipName, b.SailDate, b.CabinType = a.ShipName, a.SailDate, a.CabinType
			}
			if CruiseKey(a) == "" {
				return true
			}
			p1 := Build([]models.CanonicalCruise{a, b}, nil, CruiseKey)
			p2 := Build([]models.CanonicalCruise{b, a}, nil, CruiseKey)
			return len(p1.New) == 1 && len(p2.New) == 1 && CruiseKey(p1.New[0]) == CruiseKey(p2.New[0])
		},
		genCruise(),
		genCruise(),
	))

	properties.Property("stored records survive any merge", prop.ForAll(
		func(incoming, existing []models.CanonicalCruise) bool {
			merged := Apply(existing, Build(incoming, existing, CruiseKey), CruiseKey)
			return len(merged) >= len(existing)
		},
		gen.SliceOf(genCruise()),
		gen.SliceOf(genCruise()),
	))

	properties.TestingRun(t)
}
