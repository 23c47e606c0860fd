package bridge

import (
	"encoding/json"

	"cruisesync/pkg/models"
)

// Decoded is what a network decoder extracted from a payload.
type Decoded struct {
	Decoder string
	Kind    models.RecordKind
	Records []models.RawRecord
}

type networkDecoder struct {
	name   string
	kind   models.RecordKind
	decode func([]byte) ([]models.RawRecord, bool)
}

// shape builds a decoder from a typed view of one response shape. It
// succeeds only when pick finds at least one record.
func shape[T any](pick func(T) []models.RawRecord) func([]byte) ([]models.RawRecord, bool) {
	return func(b []byte) ([]models.RawRecord, bool) {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, false
		}
		recs := pick(v)
		return recs, len(recs) > 0
	}
}

func one(r models.RawRecord) []models.RawRecord {
	if len(r) == 0 {
		return nil
	}
	return []models.RawRecord{r}
}

type (
	offersEnvelope struct {
		Offers []models.RawRecord `json:"offers"`
	}
	casinoOffers struct {
		Data *struct {
			Offers []models.RawRecord `json:"offers"`
		} `json:"data"`
	}
	sailingInfo struct {
		Payload *struct {
			SailingInfo []models.RawRecord `json:"sailingInfo"`
		} `json:"payload"`
	}
	profileBookings struct {
		Data *struct {
			Bookings []models.RawRecord `json:"bookings"`
		} `json:"data"`
	}
	loyaltyInformation struct {
		Payload *struct {
			LoyaltyInformation models.RawRecord `json:"loyaltyInformation"`
		} `json:"payload"`
	}
	loyaltyAccount struct {
		Data *struct {
			Loyalty models.RawRecord `json:"loyalty"`
		} `json:"data"`
	}
)

// networkDecoders are tried in order; the first that succeeds wins.
var networkDecoders = []networkDecoder{
	{"offers", models.RecordOffers, shape(func(v offersEnvelope) []models.RawRecord { return v.Offers })},
	{"casino_offers", models.RecordOffers, shape(func(v casinoOffers) []models.RawRecord {
		if v.Data == nil {
			return nil
		}
		return v.Data.Offers
	})},
	{"sailing_info", models.RecordBookings, shape(func(v sailingInfo) []models.RawRecord {
		if v.Payload == nil {
			return nil
		}
		return v.Payload.SailingInfo
	})},
	{"profile_bookings", models.RecordBookings, shape(func(v profileBookings) []models.RawRecord {
		if v.Data == nil {
			return nil
		}
		return v.Data.Bookings
	})},
	{"loyalty_information", models.RecordLoyalty, shape(func(v loyaltyInformation) []models.RawRecord {
		if v.Payload == nil {
			return nil
		}
		return one(v.Payload.LoyaltyInformation)
	})},
	{"loyalty_account", models.RecordLoyalty, shape(func(v loyaltyAccount) []models.RawRecord {
		if v.Data == nil {
			return nil
		}
		return one(v.Data.Loyalty)
	})},
}

// DecodeNetwork runs the decoder list over a payload.
func DecodeNetwork(payload []byte) (Decoded, bool) {
	for _, d := range networkDecoders {
		if recs, ok := d.decode(payload); ok {
			return Decoded{Decoder: d.name, Kind: d.kind, Records: recs}, true
		}
	}
	return Decoded{}, false
}
