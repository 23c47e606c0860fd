package models

const (
	StatusUpcoming     = "upcoming"
	StatusCompleted    = "completed"
	StatusCourtesyHold = "courtesy_hold"
)

// CanonicalCruise is a normalized sailing, either offered or booked.
//
// Dates are kept in the canonical MM-DD-YYYY form produced by the
// normalizer so that stored and freshly scraped rows compare equal.
type CanonicalCruise struct {
	ID            string  `json:"id,omitempty"`
	ShipName      string  `json:"ship_name,omitempty"`
	SailDate      string  `json:"sail_date,omitempty"`
	ReturnDate    string  `json:"return_date,omitempty"`
	Nights        int     `json:"nights,omitempty"`
	DeparturePort string  `json:"departure_port,omitempty"`
	Destination   string  `json:"destination,omitempty"`
	CabinType     string  `json:"cabin_type,omitempty"`
	Price         float64 `json:"price,omitempty"`
	RetailValue   float64 `json:"retail_value,omitempty"`
	AmountPaid    float64 `json:"amount_paid,omitempty"`
	Taxes         float64 `json:"taxes,omitempty"`
	Status        string  `json:"status,omitempty"` // upcoming, completed, courtesy_hold
	Completed     bool    `json:"completed,omitempty"`
	PointsEarned  int     `json:"points_earned,omitempty"`
	OfferCode     string  `json:"offer_code,omitempty"`
}

// BookedCruise is a cruise the member actually holds a reservation (or a
// courtesy hold) for.
type BookedCruise struct {
	CanonicalCruise
	BookingID       string `json:"booking_id,omitempty"`
	StateroomNumber string `json:"stateroom_number,omitempty"`
	Guests          int    `json:"guests,omitempty"`
	IsCourtesyHold  bool   `json:"is_courtesy_hold,omitempty"`
	HoldExpiry      string `json:"hold_expiry,omitempty"`
}
