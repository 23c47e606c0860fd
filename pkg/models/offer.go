package models

// CanonicalOffer is the normalized form of a casino/loyalty offer.
type CanonicalOffer struct {
	ID            string         `json:"id,omitempty"`             // surrogate id (deterministic)
	OfferCode     string         `json:"offer_code,omitempty"`     // e.g. "26SPR103"
	OfferName     string         `json:"offer_name,omitempty"`     // display name
	OfferType     string         `json:"offer_type,omitempty"`     // "free_play", "cruise", ...
	ExpiryDate    string         `json:"expiry_date,omitempty"`    // MM-DD-YYYY
	TradeInValue  float64        `json:"trade_in_value,omitempty"` // USD
	FreePlay      float64        `json:"free_play,omitempty"`      // USD
	OnboardCredit float64        `json:"onboard_credit,omitempty"` // USD
	Perks         []string       `json:"perks,omitempty"`
	Sailings      []OfferSailing `json:"sailings,omitempty"`
	Source        string         `json:"source,omitempty"` // "network" or "dom"
}

// OfferSailing is one eligible sailing row attached to an offer.
type OfferSailing struct {
	ShipName      string `json:"ship_name,omitempty"`
	SailDate      string `json:"sail_date,omitempty"`
	Nights        int    `json:"nights,omitempty"`
	DeparturePort string `json:"departure_port,omitempty"`
	Itinerary     string `json:"itinerary,omitempty"`
	CabinType     string `json:"cabin_type,omitempty"`
}
