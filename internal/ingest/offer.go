package ingest

import (
	"fmt"

	"cruisesync/pkg/models"
)

// Offer decodes a raw offer. Either a code or a name is required.
func Offer(r models.RawRecord) (models.CanonicalOffer, error) {
	o := models.CanonicalOffer{
		OfferCode:     str(r, "offerCode", "offer_code", "code", "campaignCode"),
		OfferName:     str(r, "offerName", "offer_name", "name", "title", "campaignName"),
		OfferType:     str(r, "offerType", "offer_type", "type", "category"),
		ExpiryDate:    str(r, "expiryDate", "expiry_date", "expires", "expirationDate", "reserveByDate"),
		TradeInValue:  money(r, "tradeInValue", "trade_in_value", "tradeIn", "value"),
		FreePlay:      money(r, "freePlay", "free_play", "freeplay"),
		OnboardCredit: money(r, "onboardCredit", "onboard_credit", "obc"),
		Perks:         stringList(r, "perks", "benefits"),
		Source:        str(r, "source"),
	}
	if o.OfferCode == "" && o.OfferName == "" {
		return o, fmt.Errorf("offer without code or name: %w", ErrMalformed)
	}
	for _, s := range records(r, "sailings", "sails", "eligibleSailings") {
		o.Sailings = append(o.Sailings, sailing(s))
	}
	return o, nil
}

func sailing(r models.RawRecord) models.OfferSailing {
	return models.OfferSailing{
		ShipName:      str(r, "shipName", "ship_name", "ship"),
		SailDate:      str(r, "sailDate", "sail_date", "date", "departureDate"),
		Nights:        integer(r, "nights", "numberOfNights", "duration"),
		DeparturePort: str(r, "departurePort", "departure_port", "port"),
		Itinerary:     str(r, "itinerary", "itineraryDescription", "destination"),
		CabinType:     str(r, "cabinType", "cabin_type", "roomType", "stateroomType"),
	}
}

// Offers decodes a buffer of raw offers in arrival order.
func Offers(raw []models.RawRecord) ([]models.CanonicalOffer, []Skip) {
	return decodeAll(raw, Offer)
}

// SailingCruises expands the sailing rows of offers into cruises.
func SailingCruises(offers []models.CanonicalOffer) []models.CanonicalCruise {
	var out []models.CanonicalCruise
	for _, o := range offers {
		for _, s := range o.Sailings {
			out = append(out, models.CanonicalCruise{
				ShipName:      s.ShipName,
				SailDate:      s.SailDate,
				Nights:        s.Nights,
				DeparturePort: s.DeparturePort,
				Destination:   s.Itinerary,
				CabinType:     s.CabinType,
				Status:        models.StatusUpcoming,
				OfferCode:     o.OfferCode,
			})
		}
	}
	return out
}

func decodeAll[T any](raw []models.RawRecord, fn func(models.RawRecord) (T, error)) ([]T, []Skip) {
	out := make([]T, 0, len(raw))
	var skipped []Skip
	for i, r := range raw {
		rec, err := fn(r)
		if err != nil {
			skipped = append(skipped, Skip{Index: i, Err: err})
			continue
		}
		out = append(out, rec)
	}
	return out, skipped
}
