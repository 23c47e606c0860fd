package ingest

import (
	"fmt"
	"strings"

	"cruisesync/pkg/models"
)

// Booking decodes a raw booking or courtesy hold. It needs either a
// booking id or a ship and sail date.
func Booking(r models.RawRecord) (models.BookedCruise, error) {
	b := models.BookedCruise{
		CanonicalCruise: models.CanonicalCruise{
			ID:            str(r, "id"),
			ShipName:      str(r, "shipName", "ship_name", "ship"),
			SailDate:      str(r, "sailDate", "sail_date", "departureDate", "date"),
			ReturnDate:    str(r, "returnDate", "return_date", "arrivalDate"),
			Nights:        integer(r, "nights", "numberOfNights", "duration"),
			DeparturePort: str(r, "departurePort", "departure_port", "port"),
			Destination:   str(r, "destination", "itinerary"),
			CabinType:     str(r, "cabinType", "cabin_type", "stateroomType", "roomType"),
			Price:         money(r, "price", "totalPrice", "total"),
			RetailValue:   money(r, "retailValue", "retail_value", "retail"),
			AmountPaid:    money(r, "amountPaid", "amount_paid", "paid"),
			Taxes:         money(r, "taxes", "taxesAndFees"),
			PointsEarned:  integer(r, "pointsEarned", "points_earned", "points"),
			OfferCode:     str(r, "offerCode", "offer_code"),
		},
		BookingID:       str(r, "bookingId", "booking_id", "reservationId", "confirmationNumber"),
		StateroomNumber: str(r, "stateroomNumber", "stateroom_number", "cabinNumber", "stateroom"),
		Guests:          integer(r, "guests", "numberOfGuests", "guestCount"),
		IsCourtesyHold:  boolean(r, "isCourtesyHold", "courtesyHold", "is_courtesy_hold"),
		HoldExpiry:      str(r, "holdExpiry", "hold_expiry", "holdExpirationDate"),
	}
	b.Completed = boolean(r, "completed", "isCompleted")
	b.Status, b.IsCourtesyHold = status(str(r, "status", "bookingStatus"), b.IsCourtesyHold)

	if b.BookingID == "" && (b.ShipName == "" || b.SailDate == "") {
		return b, fmt.Errorf("booking without id or ship and sail date: %w", ErrMalformed)
	}
	return b, nil
}

func status(raw string, hold bool) (string, bool) {
	s := strings.ToLower(raw)
	switch {
	case hold || strings.Contains(s, "hold"):
		return models.StatusCourtesyHold, true
	case strings.Contains(s, "complete") || strings.Contains(s, "past") || strings.Contains(s, "sailed"):
		return models.StatusCompleted, false
	case s == "":
		return "", false
	}
	return models.StatusUpcoming, false
}

// Bookings decodes a buffer of raw bookings in arrival order.
func Bookings(raw []models.RawRecord) ([]models.BookedCruise, []Skip) {
	return decodeAll(raw, Booking)
}
