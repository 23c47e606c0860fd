package repair

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisesync/internal/validate"
	"cruisesync/pkg/models"
)

var asOf = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func newRepairer() *Repairer { return New(validate.New(asOf)) }

func kinds(actions []Action) []Kind {
	out := make([]Kind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestCruise_DerivesReturnDate(t *testing.T) {
	out := newRepairer().Cruise(models.CanonicalCruise{SailDate: "03-15-2026", Nights: 7})

	assert.Equal(t, "03-22-2026", out.Record.ReturnDate)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, Calculate, out.Actions[0].Kind)
	assert.Equal(t, "return_date", out.Actions[0].Field)
}

func TestCruise_DerivesSailDateAndNights(t *testing.T) {
	r := newRepairer()

	out := r.Cruise(models.CanonicalCruise{ReturnDate: "03-22-2026", Nights: 7})
	assert.Equal(t, "03-15-2026", out.Record.SailDate)

	out = r.Cruise(models.CanonicalCruise{SailDate: "03-15-2026", ReturnDate: "03-22-2026"})
	assert.Equal(t, 7, out.Record.Nights)
}

func TestCruise_OverwritesInconsistentNights(t *testing.T) {
	out := newRepairer().Cruise(models.CanonicalCruise{
		ID: "x", ShipName: "Icon of the Seas", SailDate: "03-15-2026", ReturnDate: "03-22-2026", Nights: 4,
	})
	assert.Equal(t, 7, out.Record.Nights)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, 4, out.Actions[0].Original)
	assert.True(t, out.FullyValid())
	assert.Empty(t, out.After.Issues)
}

func TestCruise_NormalizesAndClamps(t *testing.T) {
	out := newRepairer().Cruise(models.CanonicalCruise{
		ID:        "x",
		ShipName:  "icon of the seas",
		SailDate:  "3/15/2026",
		Nights:    -7,
		CabinType: "veranda",
		Price:     -899,
	})

	rec := out.Record
	assert.Equal(t, "Icon of the Seas", rec.ShipName)
	assert.Equal(t, "03-15-2026", rec.SailDate)
	assert.Equal(t, "Balcony", rec.CabinType)
	assert.Equal(t, 7, rec.Nights)
	assert.Equal(t, 899.0, rec.Price)
	assert.Equal(t, "03-22-2026", rec.ReturnDate)
	assert.Equal(t, []Kind{Normalize, Normalize, Normalize, Normalize, Normalize, Calculate}, kinds(out.Actions))
	assert.Greater(t, out.Before.Errors(), 0)
	assert.True(t, out.FullyValid())
}

func TestCruise_PastUpcomingCompleted(t *testing.T) {
	out := newRepairer().Cruise(models.CanonicalCruise{
		ID: "x", ShipName: "Icon of the Seas", SailDate: "06-01-2025", Nights: 7, Status: models.StatusUpcoming,
	})
	assert.Equal(t, models.StatusCompleted, out.Record.Status)
	assert.True(t, out.Record.Completed)
}

func TestCruise_SurrogateIDIsDeterministic(t *testing.T) {
	r := newRepairer()
	a := r.Cruise(models.CanonicalCruise{ShipName: "icon of the seas", SailDate: "03-15-2026"})
	b := r.Cruise(models.CanonicalCruise{ShipName: "Icon of the Seas", SailDate: "03/15/2026"})

	require.NotEmpty(t, a.Record.ID)
	assert.Equal(t, a.Record.ID, b.Record.ID)
	assert.Equal(t, Default, a.Actions[len(a.Actions)-1].Kind)
}

func TestBookedCruise(t *testing.T) {
	out := newRepairer().BookedCruise(models.BookedCruise{
		CanonicalCruise: models.CanonicalCruise{ShipName: "Wonder of the Seas", SailDate: "05-01-2026", Nights: 7, Status: models.StatusUpcoming},
		BookingID:       " 1234567 ",
		Guests:          -2,
		IsCourtesyHold:  true,
		HoldExpiry:      "2026-02-01",
	})

	rec := out.Record
	assert.Equal(t, "1234567", rec.BookingID)
	assert.Equal(t, 2, rec.Guests)
	assert.Equal(t, models.StatusCourtesyHold, rec.Status)
	assert.Equal(t, "02-01-2026", rec.HoldExpiry)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, out.FullyValid())
}

func TestOffer(t *testing.T) {
	out := newRepairer().Offer(models.CanonicalOffer{
		OfferCode: " abc123",
		OfferName: "Spring Sail",
		Sailings: []models.OfferSailing{
			{ShipName: "icon of the seas", SailDate: "03/15/2026"},
			{ShipName: "Icon of the Seas", SailDate: "03-15-2026"},
		},
	})

	rec := out.Record
	assert.Equal(t, "ABC123", rec.OfferCode)
	require.Len(t, rec.Sailings, 1)
	assert.Equal(t, "Icon of the Seas", rec.Sailings[0].ShipName)
	assert.Equal(t, "03-15-2026", rec.Sailings[0].SailDate)
	assert.Contains(t, kinds(out.Actions), Remove)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, out.FullyValid())
}

func TestOffer_LeavesInputUntouched(t *testing.T) {
	in := models.CanonicalOffer{
		OfferCode: "A1",
		Sailings: []models.OfferSailing{
			{ShipName: "icon of the seas", SailDate: "03/15/2026"},
			{ShipName: "Icon of the Seas", SailDate: "03-15-2026"},
			{ShipName: "wonder of the seas", SailDate: "04/01/2026"},
		},
	}
	want := append([]models.OfferSailing(nil), in.Sailings...)

	out := newRepairer().Offer(in)

	assert.Equal(t, want, in.Sailings)
	require.Len(t, out.Record.Sailings, 2)
	assert.Equal(t, "Wonder of the Seas", out.Record.Sailings[1].ShipName)
	assert.Equal(t, "04-01-2026", out.Record.Sailings[1].SailDate)
}

func TestBatchSummary(t *testing.T) {
	r := newRepairer()
	recs := []models.CanonicalCruise{
		{ID: "a", ShipName: "Icon of the Seas", SailDate: "03-15-2026", Nights: 7},
		{ID: "b", SailDate: "03/15/2026"},
		{ID: "c", SailDate: "03-15-2026"},
		{ID: "d", ShipName: "Icon of the Seas", SailDate: "03-15-2026", ReturnDate: "03-22-2026", Nights: 7},
	}

	outcomes, s := Batch(recs, r.Cruise)
	require.Len(t, outcomes, 4)
	assert.Equal(t, Summary{Total: 4, FullyValid: 2, Improved: 1, Unrepaired: 1, Actions: 2}, s)
	assert.Equal(t, "03-22-2026", Records(outcomes)[0].ReturnDate)
}

func TestRepairNeverAddsErrors(t *testing.T) {
	r := newRepairer()
	samples := []models.CanonicalCruise{
		{},
		{ShipName: "unknown vessel", SailDate: "garbage", Nights: -3},
		{SailDate: "03-22-2026", ReturnDate: "03-15-2026", Nights: 7},
		{SailDate: "01/05/2025", Nights: 400, Status: models.StatusUpcoming, AmountPaid: 10, RetailValue: 5},
		{ReturnDate: "2026-04-01", Nights: 3, Price: -1, Taxes: -2, PointsEarned: -5},
	}
	for _, c := range samples {
		first := r.Cruise(c)
		second := r.Cruise(first.Record)
		assert.LessOrEqual(t, first.After.Errors(), first.Before.Errors())
		assert.LessOrEqual(t, second.After.Errors(), first.After.Errors())
	}
}

func TestKindText(t *testing.T) {
	b, err := Calculate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "calculate", string(b))

	_, err = Kind(0).MarshalText()
	assert.Error(t, err)
}
