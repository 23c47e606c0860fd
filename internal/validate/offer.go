package validate

import (
	"fmt"

	"cruisesync/internal/normalize"
	"cruisesync/pkg/models"
)

type offerCheck func(v Validator, o *models.CanonicalOffer, r *Report)

var offerChecks = []offerCheck{
	checkOfferIdentity,
	checkOfferExpiry,
	checkOfferValues,
	checkOfferSailings,
}

// Offer validates a canonical offer and each of its sailing rows.
func (v Validator) Offer(o models.CanonicalOffer) Report {
	r := Report{Kind: string(models.KindOffers), Key: o.OfferCode}
	for _, check := range offerChecks {
		check(v, &o, &r)
	}
	return r
}

func checkOfferIdentity(_ Validator, o *models.CanonicalOffer, r *Report) {
	switch {
	case o.OfferCode == "" && o.OfferName == "":
		r.add(Issue{Field: "offer_code", Message: "offer code or name is required", Severity: SeverityError})
	case o.OfferName == "":
		r.add(Issue{Field: "offer_name", Message: "offer has no display name", Severity: SeverityWarning})
	}
}

func checkOfferExpiry(v Validator, o *models.CanonicalOffer, r *Report) {
	if o.ExpiryDate == "" {
		return
	}
	dateIssue(r, "expiry_date", o.ExpiryDate)
	if t, err := normalize.ParseDate(o.ExpiryDate); err == nil && t.Before(v.AsOf) {
		r.add(Issue{Field: "expiry_date", Message: "offer has expired", Severity: SeverityInfo, CurrentValue: o.ExpiryDate})
	}
}

func checkOfferValues(_ Validator, o *models.CanonicalOffer, r *Report) {
	money(r, "trade_in_value", o.TradeInValue)
	money(r, "free_play", o.FreePlay)
	money(r, "onboard_credit", o.OnboardCredit)
}

func checkOfferSailings(_ Validator, o *models.CanonicalOffer, r *Report) {
	for i, s := range o.Sailings {
		prefix := fmt.Sprintf("sailings[%d].", i)
		if s.ShipName == "" {
			r.add(Issue{Field: prefix + "ship_name", Message: "sailing has no ship", Severity: SeverityError})
		}
		shipIssue(r, prefix+"ship_name", s.ShipName)
		if s.SailDate == "" {
			r.add(Issue{Field: prefix + "sail_date", Message: "sailing has no date", Severity: SeverityError})
		}
		dateIssue(r, prefix+"sail_date", s.SailDate)
		cabinIssue(r, prefix+"cabin_type", s.CabinType)
		if s.Nights < 0 {
			r.add(Issue{
				Field: prefix + "nights", Message: "nights cannot be negative", Severity: SeverityError,
				CurrentValue: s.Nights, SuggestedValue: -s.Nights, AutoFixable: true,
			})
		}
	}
}
