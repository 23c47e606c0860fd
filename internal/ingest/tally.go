package ingest

import (
	"cruisesync/internal/reconcile"
	"cruisesync/pkg/models"
)

// Counts is the headline summary shown when extraction finishes.
type Counts struct {
	Offers   int `json:"offers"`
	Sailings int `json:"sailings"`
	Upcoming int `json:"upcoming"`
	Holds    int `json:"holds"`
	Programs int `json:"programs"`
}

// Tally counts unique offers, their sailings, upcoming cruises and courtesy
// holds in the raw buffers. Malformed records are not counted.
func Tally(offerRecs, bookingRecs []models.RawRecord, loyalty *models.LoyaltyStatus) Counts {
	var c Counts

	offers, _ := Offers(offerRecs)
	keys, merged := reconcile.Collapse(offers, reconcile.OfferKey)
	c.Offers = len(keys)
	for _, k := range keys {
		c.Sailings += len(merged[k].Sailings)
	}

	bookings, _ := Bookings(bookingRecs)
	keys, byKey := reconcile.Collapse(bookings, reconcile.BookedKey)
	for _, k := range keys {
		b := byKey[k]
		switch {
		case b.IsCourtesyHold:
			c.Holds++
		case b.Status != models.StatusCompleted && !b.Completed:
			c.Upcoming++
		}
	}

	if loyalty != nil {
		c.Programs = len(loyalty.Programs)
	}
	return c
}
