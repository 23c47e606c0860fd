package repair

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"cruisesync/internal/normalize"
	"cruisesync/internal/reconcile"
	"cruisesync/internal/validate"
	"cruisesync/pkg/models"
)

// DefaultPasses bounds the repair/re-validate loop.
const DefaultPasses = 3

// surrogate ids are name-based so the same record always gets the same id
var idSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cruisesync"))

// Outcome is the result of repairing one record.
type Outcome[T any] struct {
	Record  T               `json:"record"`
	Actions []Action        `json:"actions"`
	Before  validate.Report `json:"before"`
	After   validate.Report `json:"after"`
}

// FullyValid reports whether the repaired record has no errors left.
func (o Outcome[T]) FullyValid() bool { return o.After.IsValid() }

type Repairer struct {
	v      validate.Validator
	passes int
}

func New(v validate.Validator) *Repairer {
	return &Repairer{v: v, passes: DefaultPasses}
}

// run alternates fix and validate until the report has no auto-fixable
// issue left, a pass changes nothing, or the pass limit is hit.
func run[T any](r *Repairer, rec T, check func(T) validate.Report, fix func(*T, *log)) Outcome[T] {
	out := Outcome[T]{Record: rec, Before: check(rec)}
	var actions log
	report := out.Before
	for pass := 0; pass < r.passes; pass++ {
		n := len(actions)
		fix(&out.Record, &actions)
		report = check(out.Record)
		if len(actions) == n || report.AutoFixable() == 0 {
			break
		}
	}
	out.Actions = []Action(actions)
	if out.Actions == nil {
		out.Actions = []Action{}
	}
	out.After = report
	return out
}

// Cruise repairs a canonical cruise.
func (r *Repairer) Cruise(c models.CanonicalCruise) Outcome[models.CanonicalCruise] {
	return run(r, c, r.v.Cruise, func(c *models.CanonicalCruise, l *log) {
		r.fixCruise(c, l)
		if c.ID == "" && c.ShipName != "" && c.SailDate != "" {
			c.ID = surrogate("cruise", reconcile.TupleKey(*c))
			l.add("id", nil, c.ID, Default, "generated id from ship, sail date and cabin")
		}
	})
}

// BookedCruise repairs the base cruise fields and then the booking fields.
func (r *Repairer) BookedCruise(b models.BookedCruise) Outcome[models.BookedCruise] {
	return run(r, b, r.v.BookedCruise, func(b *models.BookedCruise, l *log) {
		r.fixCruise(&b.CanonicalCruise, l)
		r.fixBooking(b, l)
		if b.ID == "" && b.ShipName != "" && b.SailDate != "" {
			b.ID = surrogate("booking", reconcile.BookedKey(*b))
			l.add("id", nil, b.ID, Default, "generated id from booking identity")
		}
	})
}

// Offer repairs an offer and its sailing rows.
func (r *Repairer) Offer(o models.CanonicalOffer) Outcome[models.CanonicalOffer] {
	return run(r, o, r.v.Offer, func(o *models.CanonicalOffer, l *log) {
		fixOffer(o, l)
		if o.ID == "" {
			if key := reconcile.OfferKey(*o); key != "" {
				o.ID = surrogate("offer", key)
				l.add("id", nil, o.ID, Default, "generated id from offer identity")
			}
		}
	})
}

func surrogate(kind, key string) string {
	return uuid.NewSHA1(idSpace, []byte(kind+":"+key)).String()
}

func (r *Repairer) fixCruise(c *models.CanonicalCruise, l *log) {
	text(l, "ship_name", &c.ShipName, normalize.ShipName)
	text(l, "departure_port", &c.DeparturePort, normalize.PortName)
	text(l, "cabin_type", &c.CabinType, normalize.CabinType)
	text(l, "destination", &c.Destination, normalize.Destination)
	text(l, "sail_date", &c.SailDate, normalize.Date)
	text(l, "return_date", &c.ReturnDate, normalize.Date)

	amount(l, "price", &c.Price)
	amount(l, "retail_value", &c.RetailValue)
	amount(l, "amount_paid", &c.AmountPaid)
	amount(l, "taxes", &c.Taxes)
	count(l, "points_earned", &c.PointsEarned)
	count(l, "nights", &c.Nights)

	deriveDates(c, l)

	if c.Status == models.StatusUpcoming && r.v.IsPast(*c) {
		l.add("status", c.Status, models.StatusCompleted, Calculate, "sailing has ended")
		c.Status = models.StatusCompleted
		c.Completed = true
	}
}

// deriveDates fills whichever of sail date, return date and nights is
// missing, and trusts the dates over nights when all three disagree.
func deriveDates(c *models.CanonicalCruise, l *log) {
	sail, sailErr := normalize.ParseDate(c.SailDate)
	ret, retErr := normalize.ParseDate(c.ReturnDate)

	switch {
	case sailErr == nil && c.ReturnDate == "" && c.Nights > 0:
		v := normalize.FormatDate(sail.AddDate(0, 0, c.Nights))
		l.add("return_date", nil, v, Calculate, "return date derived from sail date and nights")
		c.ReturnDate = v
	case retErr == nil && c.SailDate == "" && c.Nights > 0:
		v := normalize.FormatDate(ret.AddDate(0, 0, -c.Nights))
		l.add("sail_date", nil, v, Calculate, "sail date derived from return date and nights")
		c.SailDate = v
	case sailErr == nil && retErr == nil && ret.After(sail):
		days := normalize.DaysBetween(sail, ret)
		switch {
		case c.Nights == 0:
			l.add("nights", nil, days, Calculate, "nights derived from date range")
			c.Nights = days
		case absInt(days-c.Nights) > 1:
			l.add("nights", c.Nights, days, Calculate, "nights disagreed with date range")
			c.Nights = days
		}
	}
}

func (r *Repairer) fixBooking(b *models.BookedCruise, l *log) {
	text(l, "hold_expiry", &b.HoldExpiry, normalize.Date)
	count(l, "guests", &b.Guests)
	b.BookingID = strings.TrimSpace(b.BookingID)

	switch {
	case b.Status == "":
		status := models.StatusUpcoming
		if b.IsCourtesyHold {
			status = models.StatusCourtesyHold
		} else if b.Completed || r.v.IsPast(b.CanonicalCruise) {
			status = models.StatusCompleted
		}
		l.add("status", nil, status, Default, "missing status defaulted")
		b.Status = status
	case b.IsCourtesyHold && b.Status != models.StatusCourtesyHold:
		l.add("status", b.Status, models.StatusCourtesyHold, Normalize, "courtesy hold tagged as hold")
		b.Status = models.StatusCourtesyHold
	case b.Completed && b.Status == models.StatusUpcoming:
		l.add("status", b.Status, models.StatusCompleted, Normalize, "completed booking tagged upcoming")
		b.Status = models.StatusCompleted
	}
}

func fixOffer(o *models.CanonicalOffer, l *log) {
	if code := strings.ToUpper(strings.TrimSpace(o.OfferCode)); code != o.OfferCode {
		l.add("offer_code", o.OfferCode, code, Normalize, "offer code trimmed and upper-cased")
		o.OfferCode = code
	}
	text(l, "expiry_date", &o.ExpiryDate, normalize.Date)
	amount(l, "trade_in_value", &o.TradeInValue)
	amount(l, "free_play", &o.FreePlay)
	amount(l, "onboard_credit", &o.OnboardCredit)

	// rows are rewritten in place; the caller's capture keeps its own
	o.Sailings = slices.Clone(o.Sailings)
	for i := range o.Sailings {
		s := &o.Sailings[i]
		prefix := "sailings[" + strconv.Itoa(i) + "]."
		text(l, prefix+"ship_name", &s.ShipName, normalize.ShipName)
		text(l, prefix+"departure_port", &s.DeparturePort, normalize.PortName)
		text(l, prefix+"cabin_type", &s.CabinType, normalize.CabinType)
		text(l, prefix+"sail_date", &s.SailDate, normalize.Date)
		count(l, prefix+"nights", &s.Nights)
	}

	kept := o.Sailings[:0]
	seen := make(map[models.OfferSailing]bool, len(o.Sailings))
	for _, s := range o.Sailings {
		if seen[s] {
			l.add("sailings", s, nil, Remove, "duplicate sailing row")
			continue
		}
		seen[s] = true
		kept = append(kept, s)
	}
	o.Sailings = kept
}

// text rewrites *field with its normalized form. Values the normalizer
// could not interpret are left alone.
func text(l *log, field string, v *string, fn func(string) normalize.Result[string]) {
	res := fn(*v)
	if !res.WasNormalized || res.Value == *v {
		return
	}
	l.add(field, *v, res.Value, Normalize, "normalized "+strings.ReplaceAll(field, "_", " "))
	*v = res.Value
}

func amount(l *log, field string, v *float64) {
	if *v >= 0 {
		return
	}
	l.add(field, *v, math.Abs(*v), Normalize, "negative amount clamped")
	*v = math.Abs(*v)
}

func count(l *log, field string, v *int) {
	if *v >= 0 {
		return
	}
	l.add(field, *v, -*v, Normalize, "negative count clamped")
	*v = -*v
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
