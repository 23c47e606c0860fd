package validate

import (
	"fmt"
	"math"
	"time"

	"cruisesync/internal/normalize"
	"cruisesync/pkg/models"
)

// MaxReasonableNights bounds the nights count of a single sailing.
const MaxReasonableNights = 60

// Validator evaluates records against a fixed reference date so that a
// report is a pure function of its input.
type Validator struct {
	AsOf time.Time
}

func New(asOf time.Time) Validator {
	y, m, d := asOf.UTC().Date()
	return Validator{AsOf: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

type cruiseCheck func(v Validator, c *models.CanonicalCruise, r *Report)

// cruiseChecks run in this order; reports list issues in the same order.
var cruiseChecks = []cruiseCheck{
	checkShipPresent,
	checkSailDatePresent,
	checkShipKnown,
	checkSailDate,
	checkReturnDate,
	checkDateRange,
	checkNightsConsistent,
	checkNightsReasonable,
	checkNonNegative,
	checkRetailVsPaid,
	checkPastUpcoming,
	checkCabinType,
	checkPort,
}

// Cruise validates a canonical cruise.
func (v Validator) Cruise(c models.CanonicalCruise) Report {
	r := Report{Kind: string(models.KindCruises), Key: c.ID}
	for _, check := range cruiseChecks {
		check(v, &c, &r)
	}
	return r
}

func checkShipPresent(_ Validator, c *models.CanonicalCruise, r *Report) {
	if c.ShipName == "" {
		r.add(Issue{Field: "ship_name", Message: "ship name is required", Severity: SeverityError})
	}
}

func checkSailDatePresent(_ Validator, c *models.CanonicalCruise, r *Report) {
	if c.SailDate == "" {
		r.add(Issue{Field: "sail_date", Message: "sail date is required", Severity: SeverityError})
	}
}

func checkShipKnown(_ Validator, c *models.CanonicalCruise, r *Report) {
	shipIssue(r, "ship_name", c.ShipName)
}

func shipIssue(r *Report, field, name string) {
	if name == "" || normalize.KnownShip(name) {
		return
	}
	n := normalize.ShipName(name)
	if normalize.KnownShip(n.Value) {
		r.add(Issue{
			Field: field, Message: "ship name is not in canonical form", Severity: SeverityWarning,
			CurrentValue: name, SuggestedValue: n.Value, AutoFixable: true,
		})
		return
	}
	r.add(Issue{Field: field, Message: "unknown ship " + name, Severity: SeverityInfo, CurrentValue: name})
}

func checkSailDate(_ Validator, c *models.CanonicalCruise, r *Report) {
	dateIssue(r, "sail_date", c.SailDate)
}

func dateIssue(r *Report, field, value string) {
	if value == "" || normalize.IsCanonicalDate(value) {
		return
	}
	t, err := normalize.ParseDate(value)
	if err != nil {
		r.add(Issue{Field: field, Message: "date cannot be parsed", Severity: SeverityError, CurrentValue: value})
		return
	}
	r.add(Issue{
		Field: field, Message: "date is not in MM-DD-YYYY form", Severity: SeverityWarning,
		CurrentValue: value, SuggestedValue: normalize.FormatDate(t), AutoFixable: true,
	})
}

func checkReturnDate(_ Validator, c *models.CanonicalCruise, r *Report) {
	if c.ReturnDate != "" {
		dateIssue(r, "return_date", c.ReturnDate)
		return
	}
	sail, err := normalize.ParseDate(c.SailDate)
	if err != nil || c.Nights <= 0 {
		return
	}
	r.add(Issue{
		Field: "return_date", Message: "return date is missing and can be derived from nights",
		Severity: SeverityInfo, SuggestedValue: normalize.FormatDate(sail.AddDate(0, 0, c.Nights)), AutoFixable: true,
	})
}

func checkDateRange(_ Validator, c *models.CanonicalCruise, r *Report) {
	sail, ret, ok := parsedRange(c)
	if !ok {
		return
	}
	if !ret.After(sail) {
		r.add(Issue{
			Field: "return_date", Message: "return date must be after sail date",
			Severity: SeverityError, CurrentValue: c.ReturnDate,
		})
	}
}

func checkNightsConsistent(_ Validator, c *models.CanonicalCruise, r *Report) {
	sail, ret, ok := parsedRange(c)
	if !ok || c.Nights <= 0 || !ret.After(sail) {
		return
	}
	days := normalize.DaysBetween(sail, ret)
	if absInt(days-c.Nights) > 1 {
		r.add(Issue{
			Field: "nights", Message: fmt.Sprintf("nights (%d) disagree with date range (%d days)", c.Nights, days),
			Severity: SeverityWarning, CurrentValue: c.Nights, SuggestedValue: days, AutoFixable: true,
		})
	}
}

func checkNightsReasonable(_ Validator, c *models.CanonicalCruise, r *Report) {
	switch {
	case c.Nights < 0:
		r.add(Issue{
			Field: "nights", Message: "nights cannot be negative", Severity: SeverityError,
			CurrentValue: c.Nights, SuggestedValue: -c.Nights, AutoFixable: true,
		})
	case c.Nights > MaxReasonableNights:
		r.add(Issue{
			Field: "nights", Message: "nights count is unreasonably large", Severity: SeverityWarning,
			CurrentValue: c.Nights,
		})
	}
}

func checkNonNegative(_ Validator, c *models.CanonicalCruise, r *Report) {
	money(r, "price", c.Price)
	money(r, "retail_value", c.RetailValue)
	money(r, "amount_paid", c.AmountPaid)
	money(r, "taxes", c.Taxes)
	if c.PointsEarned < 0 {
		r.add(Issue{
			Field: "points_earned", Message: "points cannot be negative", Severity: SeverityError,
			CurrentValue: c.PointsEarned, SuggestedValue: -c.PointsEarned, AutoFixable: true,
		})
	}
}

func money(r *Report, field string, v float64) {
	if v < 0 {
		r.add(Issue{
			Field: field, Message: "amount cannot be negative", Severity: SeverityError,
			CurrentValue: v, SuggestedValue: math.Abs(v), AutoFixable: true,
		})
	}
}

func checkRetailVsPaid(_ Validator, c *models.CanonicalCruise, r *Report) {
	if c.RetailValue > 0 && c.AmountPaid > c.RetailValue {
		r.add(Issue{
			Field: "retail_value", Message: "retail value is less than the amount paid",
			Severity: SeverityWarning, CurrentValue: c.RetailValue,
		})
	}
}

func checkPastUpcoming(v Validator, c *models.CanonicalCruise, r *Report) {
	if c.Status != models.StatusUpcoming {
		return
	}
	end, ok := EndDate(*c)
	if !ok || !end.Before(v.AsOf) {
		return
	}
	r.add(Issue{
		Field: "status", Message: "sailing is in the past but still tagged upcoming",
		Severity: SeverityWarning, CurrentValue: c.Status, SuggestedValue: models.StatusCompleted, AutoFixable: true,
	})
}

func checkCabinType(_ Validator, c *models.CanonicalCruise, r *Report) {
	cabinIssue(r, "cabin_type", c.CabinType)
}

func cabinIssue(r *Report, field, value string) {
	if value == "" || normalize.KnownCabinType(value) {
		return
	}
	n := normalize.CabinType(value)
	if normalize.KnownCabinType(n.Value) {
		r.add(Issue{
			Field: field, Message: "cabin type is not in canonical form", Severity: SeverityWarning,
			CurrentValue: value, SuggestedValue: n.Value, AutoFixable: true,
		})
		return
	}
	r.add(Issue{Field: field, Message: "unknown cabin type", Severity: SeverityInfo, CurrentValue: value})
}

func checkPort(_ Validator, c *models.CanonicalCruise, r *Report) {
	if c.DeparturePort == "" {
		return
	}
	if n := normalize.PortName(c.DeparturePort); n.WasNormalized && len(n.Issues) == 0 {
		r.add(Issue{
			Field: "departure_port", Message: "port is not in canonical form", Severity: SeverityInfo,
			CurrentValue: c.DeparturePort, SuggestedValue: n.Value, AutoFixable: true,
		})
	}
}

// EndDate is the return date, or the sail date plus nights when the
// return date is absent.
func EndDate(c models.CanonicalCruise) (time.Time, bool) {
	if ret, err := normalize.ParseDate(c.ReturnDate); err == nil {
		return ret, true
	}
	sail, err := normalize.ParseDate(c.SailDate)
	if err != nil {
		return time.Time{}, false
	}
	return sail.AddDate(0, 0, max(c.Nights, 0)), true
}

func parsedRange(c *models.CanonicalCruise) (time.Time, time.Time, bool) {
	sail, err := normalize.ParseDate(c.SailDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	ret, err := normalize.ParseDate(c.ReturnDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return sail, ret, true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
