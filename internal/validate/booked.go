package validate

import "cruisesync/pkg/models"

type bookedCheck func(v Validator, b *models.BookedCruise, r *Report)

var bookedChecks = []bookedCheck{
	checkBookingID,
	checkCourtesyHold,
	checkGuests,
	checkCompletedFlag,
}

// BookedCruise is the base cruise report followed by the booking-only checks.
// Base issues are carried over untouched.
func (v Validator) BookedCruise(b models.BookedCruise) Report {
	r := v.Cruise(b.CanonicalCruise)
	r.Kind = string(models.KindBookedCruises)
	r.Key = b.BookingID
	for _, check := range bookedChecks {
		check(v, &b, &r)
	}
	return r
}

func checkBookingID(_ Validator, b *models.BookedCruise, r *Report) {
	if b.BookingID == "" {
		r.add(Issue{
			Field: "booking_id", Message: "booking id is missing; identity falls back to ship, sail date and cabin",
			Severity: SeverityWarning,
		})
	}
}

func checkCourtesyHold(_ Validator, b *models.BookedCruise, r *Report) {
	if !b.IsCourtesyHold {
		return
	}
	if b.Status != models.StatusCourtesyHold {
		r.add(Issue{
			Field: "status", Message: "courtesy hold is not tagged as a hold", Severity: SeverityWarning,
			CurrentValue: b.Status, SuggestedValue: models.StatusCourtesyHold, AutoFixable: true,
		})
	}
	if b.HoldExpiry == "" {
		r.add(Issue{Field: "hold_expiry", Message: "courtesy hold has no expiry", Severity: SeverityWarning})
		return
	}
	dateIssue(r, "hold_expiry", b.HoldExpiry)
}

func checkGuests(_ Validator, b *models.BookedCruise, r *Report) {
	if b.Guests < 0 {
		r.add(Issue{
			Field: "guests", Message: "guest count cannot be negative", Severity: SeverityError,
			CurrentValue: b.Guests, SuggestedValue: -b.Guests, AutoFixable: true,
		})
	}
}

func checkCompletedFlag(v Validator, b *models.BookedCruise, r *Report) {
	if !b.Completed || b.Status != models.StatusUpcoming {
		return
	}
	// a past upcoming sailing is already reported by the base checks
	if end, ok := EndDate(b.CanonicalCruise); ok && end.Before(v.AsOf) {
		return
	}
	r.add(Issue{
		Field: "status", Message: "completed cruise is tagged upcoming", Severity: SeverityWarning,
		CurrentValue: b.Status, SuggestedValue: models.StatusCompleted, AutoFixable: true,
	})
}

// IsPast reports whether the booking has already ended as of v.AsOf.
func (v Validator) IsPast(c models.CanonicalCruise) bool {
	end, ok := EndDate(c)
	return ok && end.Before(v.AsOf)
}
