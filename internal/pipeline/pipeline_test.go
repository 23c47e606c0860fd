package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cruisesync/internal/reconcile"
	"cruisesync/internal/store"
	"cruisesync/pkg/models"
)

func newPipeline(st store.Store) *Pipeline {
	p := New(st, zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC) }
	return p
}

func rawRecords(t *testing.T, s string) []models.RawRecord {
	t.Helper()
	var out []models.RawRecord
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func seed[T any](t *testing.T, st store.Store, kind models.Kind, key func(T) string, recs ...T) {
	t.Helper()
	docs, err := store.Encode(recs, key)
	require.NoError(t, err)
	require.NoError(t, st.WriteSnapshot(context.Background(), kind, docs))
}

func TestPrepare_NewOfferWithoutPriorData(t *testing.T) {
	p := newPipeline(store.NewMemory())
	prep, err := p.Prepare(context.Background(), Input{
		Offers: rawRecords(t, `[{"code":"ABC123","name":"Spring Sail","sailings":[{"ship":"icon of the seas","date":"03/15/2026"}]}]`),
	})
	require.NoError(t, err)

	offers := prep.Preview.Offers
	require.Len(t, offers.New, 1)
	assert.Empty(t, offers.Updated)
	assert.Empty(t, offers.Unchanged)
	assert.Equal(t, "ABC123", reconcile.OfferKey(offers.New[0]))
	assert.Equal(t, "Icon of the Seas", offers.New[0].Sailings[0].ShipName)
	assert.Equal(t, "03-15-2026", offers.New[0].Sailings[0].SailDate)

	require.Len(t, prep.Preview.Cruises.New, 1)
	assert.Equal(t, "ABC123", prep.Preview.Cruises.New[0].OfferCode)
	assert.Equal(t, reconcile.Counts{New: 1}, prep.Summary[models.KindOffers])
}

func TestCommit_PartialUpdatePreservesPrice(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, models.KindBookedCruises, reconcile.BookedKey, models.BookedCruise{
		BookingID:       "X",
		CanonicalCruise: models.CanonicalCruise{Price: 899, CabinType: "Balcony"},
	})
	p := newPipeline(st)

	prep, err := p.Prepare(context.Background(), Input{
		Bookings: rawRecords(t, `[{"bookingId":"X","cabinType":"balcony"}]`),
	})
	require.NoError(t, err)
	require.Len(t, prep.Preview.BookedCruises.Updated, 1)
	for _, ch := range prep.Preview.BookedCruises.Updated[0].Changes {
		assert.NotEqual(t, "price", ch.Field)
		assert.NotEqual(t, "cabin_type", ch.Field)
	}

	_, err = p.Commit(context.Background(), prep)
	require.NoError(t, err)

	docs, err := st.ReadSnapshot(context.Background(), models.KindBookedCruises)
	require.NoError(t, err)
	got, err := store.Decode[models.BookedCruise](docs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 899.0, got[0].Price)
	assert.Equal(t, "Balcony", got[0].CabinType)
}

func TestCommit_IsIdempotent(t *testing.T) {
	st := store.NewMemory()
	p := newPipeline(st)
	in := Input{
		Offers:   rawRecords(t, `[{"offerCode":"A1","offerName":"Winter","sailings":[{"shipName":"Wonder of the Seas","sailDate":"02-01-2026","nights":4}]}]`),
		Bookings: rawRecords(t, `[{"bookingId":"77","ship":"Utopia of the Seas","sailDate":"2026-03-01","nights":3}]`),
		Loyalty: &models.LoyaltyStatus{Authoritative: true, Programs: map[string]models.ProgramStatus{
			"Club Royale": {Program: "Club Royale", Tier: "Prime", Points: 2500},
		}},
	}

	prep, err := p.Prepare(context.Background(), in)
	require.NoError(t, err)
	res, err := p.Commit(context.Background(), prep)
	require.NoError(t, err)
	assert.Equal(t, models.Kinds, res.Written)

	before := map[models.Kind][]store.Document{}
	for _, k := range models.Kinds {
		before[k], _ = st.ReadSnapshot(context.Background(), k)
	}

	again, err := p.Prepare(context.Background(), in)
	require.NoError(t, err)
	for _, k := range models.Kinds {
		c := again.Summary[k]
		assert.Zero(t, c.New, k)
		assert.Zero(t, c.Updated, k)
	}
	_, err = p.Commit(context.Background(), again)
	require.NoError(t, err)

	for _, k := range models.Kinds {
		after, _ := st.ReadSnapshot(context.Background(), k)
		assert.Equal(t, before[k], after, k)
	}
}

func TestCommit_FailureKeepsEarlierKinds(t *testing.T) {
	st := store.NewMemory()
	boom := errors.New("disk full")
	st.FailWrite[models.KindBookedCruises] = boom
	p := newPipeline(st)

	prep, err := p.Prepare(context.Background(), Input{
		Offers:   rawRecords(t, `[{"offerCode":"A1","sailings":[{"ship":"Icon of the Seas","date":"03-15-2026"}]}]`),
		Bookings: rawRecords(t, `[{"bookingId":"1","ship":"Icon of the Seas","sailDate":"03-15-2026"}]`),
	})
	require.NoError(t, err)

	res, err := p.Commit(context.Background(), prep)
	require.Error(t, err)
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.KindBookedCruises, ce.Kind)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []models.Kind{models.KindOffers, models.KindCruises}, res.Written)
	assert.Equal(t, []models.Kind{models.KindBookedCruises, models.KindLoyalty}, res.Unwritten)
	assert.Equal(t, res.Unwritten, ce.Unwritten)

	offers, _ := st.ReadSnapshot(context.Background(), models.KindOffers)
	assert.Len(t, offers, 1)
}

// hookStore calls afterWrite once a kind has been written.
type hookStore struct {
	*store.Memory
	afterWrite func(kind models.Kind)
}

func (h hookStore) WriteSnapshot(ctx context.Context, kind models.Kind, docs []store.Document) error {
	if err := h.Memory.WriteSnapshot(ctx, kind, docs); err != nil {
		return err
	}
	h.afterWrite(kind)
	return nil
}

func TestCommit_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := hookStore{Memory: store.NewMemory(), afterWrite: func(kind models.Kind) {
		if kind == models.KindOffers {
			cancel()
		}
	}}
	p := newPipeline(st)

	prep, err := p.Prepare(context.Background(), Input{
		Offers:   rawRecords(t, `[{"offerCode":"A1","sailings":[{"ship":"Icon of the Seas","date":"03-15-2027"}]}]`),
		Bookings: rawRecords(t, `[{"bookingId":"1","ship":"Icon of the Seas","sailDate":"03-15-2027"}]`),
	})
	require.NoError(t, err)

	res, err := p.Commit(ctx, prep)
	require.ErrorIs(t, err, context.Canceled)
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.KindCruises, ce.Kind)
	assert.Equal(t, []models.Kind{models.KindOffers}, res.Written)
	assert.Equal(t, []models.Kind{models.KindCruises, models.KindBookedCruises, models.KindLoyalty}, res.Unwritten)

	for _, k := range res.Unwritten {
		docs, err := st.ReadSnapshot(context.Background(), k)
		require.NoError(t, err)
		assert.Empty(t, docs, k)
	}
}

func TestTransform_SkipsMalformedAndScores(t *testing.T) {
	p := newPipeline(store.NewMemory())
	prep := p.Transform(Input{
		Offers:   rawRecords(t, `[{"perks":"nothing else"},{"offerCode":"B2"}]`),
		Bookings: rawRecords(t, `[{"ship":"only a ship"}]`),
	})
	assert.Equal(t, 1, prep.Skipped[models.RecordOffers])
	assert.Equal(t, 1, prep.Skipped[models.RecordBookings])
	assert.Len(t, prep.Offers, 1)
	assert.Equal(t, 1, prep.Repair[models.KindOffers].Total)
	assert.Zero(t, prep.Quality.Records)
}

func TestCommit_NothingPrepared(t *testing.T) {
	_, err := newPipeline(store.NewMemory()).Commit(context.Background(), nil)
	assert.Error(t, err)
}
