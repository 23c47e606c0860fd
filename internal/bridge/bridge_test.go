package bridge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cruisesync/internal/session"
	"cruisesync/pkg/models"
)

var now = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func handle(t *testing.T, b *Bridge, s *session.Session, raw string) Effect {
	t.Helper()
	env, err := Parse([]byte(raw))
	require.NoError(t, err)
	return b.Handle(s, env, now)
}

func lastLog(s *session.Session) string {
	if len(s.Logs) == 0 {
		return ""
	}
	return s.Logs[len(s.Logs)-1].Message
}

func TestParse(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte(`{"step":1}`))
	assert.ErrorIs(t, err, ErrMalformed)

	env, err := Parse([]byte(`{"type":"progress","step":2,"current":3,"total":10}`))
	require.NoError(t, err)
	assert.Equal(t, 3, env.Current)
}

func TestHandle_UnknownTypeIsDropped(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)
	eff := handle(t, b, s, `{"type":"telemetry","step":1}`)

	assert.Equal(t, Effect{}, eff)
	assert.Contains(t, lastLog(s), `unknown type "telemetry"`)
	assert.Empty(t, s.Buffers)
}

func TestHandle_RecordBatchesConcatenate(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)
	handle(t, b, s, `{"type":"record_batch","kind":"offers","step":1,"data":[{"offerCode":"A"},{"offerCode":"B"}]}`)
	eff := handle(t, b, s, `{"type":"record_batch","step":1,"data":[{"offerCode":"C"}],"isFinal":true,"totalCount":3}`)

	assert.True(t, eff.Heartbeat)
	recs := s.Buffers[models.RecordOffers]
	require.Len(t, recs, 3)
	assert.Equal(t, "C", recs[2]["offerCode"])
	assert.Contains(t, lastLog(s), "final batch of 3")

	handle(t, b, s, `{"type":"record_batch","kind":"ships","data":[{}]}`)
	assert.Contains(t, lastLog(s), "unknown kind")
}

func TestHandle_StepCompleteAndAuth(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)

	eff := handle(t, b, s, `{"type":"step_complete","step":2}`)
	assert.Equal(t, 2, eff.Completed)

	eff = handle(t, b, s, `{"type":"auth_status","authenticated":true}`)
	require.NotNil(t, eff.Auth)
	assert.True(t, *eff.Auth)
	assert.False(t, eff.Heartbeat)

	eff = handle(t, b, s, `{"type":"auth_status"}`)
	require.NotNil(t, eff.Auth)
	assert.False(t, *eff.Auth)
}

func TestHandle_EveryMessageLogs(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)
	msgs := []string{
		`{"type":"log","message":"scrolling"}`,
		`{"type":"progress","current":1,"total":2}`,
		`{"type":"error","message":"button not found"}`,
		`{"type":"step_complete","step":1}`,
	}
	for _, m := range msgs {
		handle(t, b, s, m)
	}
	assert.Len(t, s.Logs, len(msgs))
	assert.Equal(t, session.Progress{Current: 1, Total: 2}, s.Progress)
}

func TestHandle_NetworkPayloadDedupe(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)
	msg := `{"type":"network_payload","step":2,"endpoint":"/profileBookings","url":"https://example.test/a",
		"payload":{"payload":{"sailingInfo":[{"bookingId":"1"},{"bookingId":"2"}]}}}`

	handle(t, b, s, msg)
	handle(t, b, s, msg)

	assert.Len(t, s.Buffers[models.RecordBookings], 2)
	assert.Contains(t, lastLog(s), "ignored repeated payload")
	assert.Len(t, s.SeenPayloads, 1)
}

func TestHandle_NetworkPayloadAsString(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)
	handle(t, b, s, `{"type":"network_payload","endpoint":"/offers","payload":"{\"offers\":[{\"offerCode\":\"A1\"}]}"}`)
	assert.Len(t, s.Buffers[models.RecordOffers], 1)

	handle(t, b, s, `{"type":"network_payload","endpoint":"/weather","payload":{"temp":21}}`)
	assert.Contains(t, lastLog(s), "unrecognized payload shape")
}

func TestHandle_LoyaltyPrecedence(t *testing.T) {
	b, s := New(zap.NewNop()), session.New(now)

	handle(t, b, s, `{"type":"record_batch","kind":"loyalty","data":[{"clubRoyaleTier":"Choice","clubRoyalePoints":10}]}`)
	require.NotNil(t, s.Loyalty)
	assert.False(t, s.LoyaltyAuthoritative)

	handle(t, b, s, `{"type":"network_payload","endpoint":"/loyalty","payload":{"payload":{"loyaltyInformation":{"clubRoyaleTier":"Prime","clubRoyalePoints":2500}}}}`)
	assert.True(t, s.LoyaltyAuthoritative)
	assert.Equal(t, 2500, s.Loyalty.Programs["Club Royale"].Points)

	handle(t, b, s, `{"type":"record_batch","kind":"loyalty","data":[{"clubRoyaleTier":"Choice","clubRoyalePoints":10}]}`)
	assert.Equal(t, 2500, s.Loyalty.Programs["Club Royale"].Points)
	assert.True(t, strings.HasPrefix(lastLog(s), "ignored loyalty from record_batch"))
	assert.Equal(t, session.LevelWarn, s.Logs[len(s.Logs)-1].Level)
}

func TestDecodeNetworkOrder(t *testing.T) {
	cases := []struct {
		payload string
		decoder string
		kind    models.RecordKind
	}{
		{`{"offers":[{"offerCode":"A"}]}`, "offers", models.RecordOffers},
		{`{"data":{"offers":[{"offerCode":"A"}]}}`, "casino_offers", models.RecordOffers},
		{`{"offers":[],"data":{"offers":[{"offerCode":"A"}]}}`, "casino_offers", models.RecordOffers},
		{`{"payload":{"sailingInfo":[{"bookingId":"1"}]}}`, "sailing_info", models.RecordBookings},
		{`{"data":{"bookings":[{"bookingId":"1"}]}}`, "profile_bookings", models.RecordBookings},
		{`{"payload":{"loyaltyInformation":{"clubRoyaleTier":"Prime"}}}`, "loyalty_information", models.RecordLoyalty},
		{`{"data":{"loyalty":{"programs":[{"program":"Club Royale"}]}}}`, "loyalty_account", models.RecordLoyalty},
	}
	for _, tc := range cases {
		d, ok := DecodeNetwork([]byte(tc.payload))
		require.True(t, ok, tc.payload)
		assert.Equal(t, tc.decoder, d.Decoder, tc.payload)
		assert.Equal(t, tc.kind, d.Kind, tc.payload)
	}

	_, ok := DecodeNetwork([]byte(`[1,2,3]`))
	assert.False(t, ok)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("/e", "u", []byte("payload"))
	assert.Equal(t, a, Fingerprint("/e", "u", []byte("payload")))
	assert.NotEqual(t, a, Fingerprint("/e", "v", []byte("payload")))
	assert.NotEqual(t, a, Fingerprint("/f", "u", []byte("payload")))
	assert.Len(t, a, 64)

	long := []byte(strings.Repeat("x", FingerprintPrefix+10))
	other := append([]byte(strings.Repeat("x", FingerprintPrefix)), []byte("yyyyyyyyyy")...)
	assert.Equal(t, Fingerprint("/e", "u", long), Fingerprint("/e", "u", other))
}
