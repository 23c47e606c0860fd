package models

// Kind names a persisted entity collection.
type Kind string

const (
	KindOffers        Kind = "offers"
	KindCruises       Kind = "cruises"
	KindBookedCruises Kind = "booked_cruises"
	KindLoyalty       Kind = "loyalty"
)

// Kinds lists the persisted kinds in commit order.
var Kinds = []Kind{KindOffers, KindCruises, KindBookedCruises, KindLoyalty}

func (k Kind) Valid() bool {
	switch k {
	case KindOffers, KindCruises, KindBookedCruises, KindLoyalty:
		return true
	}
	return false
}

// RecordKind names a raw record buffer filled by the extractor.
type RecordKind string

const (
	RecordOffers   RecordKind = "offers"
	RecordBookings RecordKind = "bookings"
	RecordLoyalty  RecordKind = "loyalty"
)

func (k RecordKind) Valid() bool {
	switch k {
	case RecordOffers, RecordBookings, RecordLoyalty:
		return true
	}
	return false
}

// RawRecord is an untyped, partially populated bag of fields exactly as the
// extractor emitted it. It is never persisted.
type RawRecord map[string]any
