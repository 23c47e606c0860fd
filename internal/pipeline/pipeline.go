// Package pipeline turns buffered extractor output into a reviewable
// changeset and commits it to the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cruisesync/internal/ingest"
	"cruisesync/internal/reconcile"
	"cruisesync/internal/repair"
	"cruisesync/internal/store"
	"cruisesync/internal/validate"
	"cruisesync/pkg/models"
)

// Input is the final content of the session buffers.
type Input struct {
	Offers   []models.RawRecord
	Bookings []models.RawRecord
	Loyalty  *models.LoyaltyStatus
}

// Prepared is everything shown to the operator before confirming.
type Prepared struct {
	Offers        []models.CanonicalOffer          `json:"-"`
	Cruises       []models.CanonicalCruise         `json:"-"`
	BookedCruises []models.BookedCruise            `json:"-"`
	Loyalty       *models.LoyaltyStatus            `json:"loyalty,omitempty"`
	Skipped       map[models.RecordKind]int        `json:"skipped"`
	Repair        map[models.Kind]repair.Summary   `json:"repair"`
	Issues        []validate.Report                `json:"issues"`
	Quality       validate.QualityScore            `json:"quality"`
	Preview       reconcile.SyncPreview            `json:"preview"`
	Summary       map[models.Kind]reconcile.Counts `json:"summary"`
	PreparedAt    time.Time                        `json:"prepared_at"`
}

// CommitResult lists the kinds written before the commit stopped.
type CommitResult struct {
	Written   []models.Kind                    `json:"written"`
	Failed    models.Kind                      `json:"failed,omitempty"`
	Unwritten []models.Kind                    `json:"unwritten,omitempty"`
	Summary   map[models.Kind]reconcile.Counts `json:"summary"`
}

// CommitError reports the kind whose write failed or was not attempted
// because ctx ended. Kinds written before it stay written; Unwritten lists
// the kinds left untouched, Kind included.
type CommitError struct {
	Kind      models.Kind
	Unwritten []models.Kind
	Err       error
}

func (e *CommitError) Error() string { return fmt.Sprintf("write %s: %v", e.Kind, e.Err) }
func (e *CommitError) Unwrap() error { return e.Err }

type Pipeline struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func New(st store.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{store: st, logger: logger.Named("pipeline"), now: time.Now}
}

// Transform decodes, repairs and scores the input. It is pure apart from
// logging and does not touch the store.
func (p *Pipeline) Transform(in Input) *Prepared {
	now := p.now().UTC()
	v := validate.New(now)
	r := repair.New(v)

	prep := &Prepared{
		Skipped:    map[models.RecordKind]int{},
		Repair:     map[models.Kind]repair.Summary{},
		Issues:     []validate.Report{},
		PreparedAt: now,
	}

	offers, skipped := ingest.Offers(in.Offers)
	p.logSkipped(models.RecordOffers, skipped)
	prep.Skipped[models.RecordOffers] = len(skipped)

	bookings, skipped := ingest.Bookings(in.Bookings)
	p.logSkipped(models.RecordBookings, skipped)
	prep.Skipped[models.RecordBookings] = len(skipped)

	offerOut, s := repair.Batch(offers, r.Offer)
	prep.Offers = repair.Records(offerOut)
	prep.Repair[models.KindOffers] = s
	collectIssues(prep, offerOut)

	cruiseOut, s := repair.Batch(ingest.SailingCruises(prep.Offers), r.Cruise)
	prep.Cruises = repair.Records(cruiseOut)
	prep.Repair[models.KindCruises] = s
	collectIssues(prep, cruiseOut)

	bookedOut, s := repair.Batch(bookings, r.BookedCruise)
	prep.BookedCruises = repair.Records(bookedOut)
	prep.Repair[models.KindBookedCruises] = s
	collectIssues(prep, bookedOut)

	prep.Loyalty = in.Loyalty

	scored := append([]models.CanonicalCruise{}, prep.Cruises...)
	for _, b := range prep.BookedCruises {
		scored = append(scored, b.CanonicalCruise)
	}
	prep.Quality = v.Quality(scored)

	p.logger.Info("pipeline: transformed",
		zap.Int("offers", len(prep.Offers)),
		zap.Int("cruises", len(prep.Cruises)),
		zap.Int("booked_cruises", len(prep.BookedCruises)),
		zap.Bool("loyalty", prep.Loyalty != nil),
		zap.Float64("quality", prep.Quality.Overall),
	)
	return prep
}

func (p *Pipeline) logSkipped(kind models.RecordKind, skipped []ingest.Skip) {
	for _, s := range skipped {
		p.logger.Warn("pipeline: skipped malformed record",
			zap.String("kind", string(kind)), zap.Int("index", s.Index), zap.Error(s.Err))
	}
}

func collectIssues[T any](prep *Prepared, outs []repair.Outcome[T]) {
	for _, o := range outs {
		if len(o.After.Issues) > 0 {
			prep.Issues = append(prep.Issues, o.After)
		}
	}
}

// Prepare transforms the input and classifies it against the stored
// snapshot. When the store cannot be read the transformed records are still
// returned, without a preview, together with the error.
func (p *Pipeline) Prepare(ctx context.Context, in Input) (*Prepared, error) {
	prep := p.Transform(in)
	snap, err := p.read(ctx)
	if err != nil {
		return prep, err
	}
	prep.Preview = snap.preview(prep)
	prep.Summary = prep.Preview.Summary()
	return prep, nil
}

// Commit re-reads the store, rebuilds the preview against it and writes
// each kind in turn. Writes are best effort per kind and not transactional
// across kinds: when a write fails, earlier kinds stay committed and the
// returned error is a *CommitError.
func (p *Pipeline) Commit(ctx context.Context, prep *Prepared) (CommitResult, error) {
	if prep == nil {
		return CommitResult{}, errors.New("nothing prepared")
	}
	snap, err := p.read(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	preview := snap.preview(prep)
	res := CommitResult{Summary: preview.Summary()}

	writes := []struct {
		kind models.Kind
		docs func() ([]store.Document, error)
	}{
		{models.KindOffers, func() ([]store.Document, error) {
			return store.Encode(reconcile.Apply(snap.offers, preview.Offers, reconcile.OfferKey), reconcile.OfferKey)
		}},
		{models.KindCruises, func() ([]store.Document, error) {
			return store.Encode(reconcile.Apply(snap.cruises, preview.Cruises, reconcile.CruiseKey), reconcile.CruiseKey)
		}},
		{models.KindBookedCruises, func() ([]store.Document, error) {
			return store.Encode(reconcile.Apply(snap.booked, preview.BookedCruises, reconcile.BookedKey), reconcile.BookedKey)
		}},
		{models.KindLoyalty, func() ([]store.Document, error) {
			return store.Encode(reconcile.ApplyLoyalty(snap.loyalty, preview.Loyalty), reconcile.ProgramKey)
		}},
	}

	for i, w := range writes {
		if err := ctx.Err(); err != nil {
			for _, rest := range writes[i:] {
				res.Unwritten = append(res.Unwritten, rest.kind)
			}
			p.logger.Warn("pipeline: commit stopped",
				zap.Any("written", res.Written), zap.Any("unwritten", res.Unwritten), zap.Error(err))
			return res, &CommitError{Kind: w.kind, Unwritten: res.Unwritten, Err: err}
		}
		docs, err := w.docs()
		if err == nil {
			err = p.store.WriteSnapshot(ctx, w.kind, docs)
		}
		if err != nil {
			commitWrites.WithLabelValues(string(w.kind), "error").Inc()
			res.Failed = w.kind
			for _, rest := range writes[i:] {
				res.Unwritten = append(res.Unwritten, rest.kind)
			}
			p.logger.Error("pipeline: write failed",
				zap.String("kind", string(w.kind)), zap.Any("written", res.Written), zap.Error(err))
			return res, &CommitError{Kind: w.kind, Unwritten: res.Unwritten, Err: err}
		}
		commitWrites.WithLabelValues(string(w.kind), "ok").Inc()
		res.Written = append(res.Written, w.kind)
		p.logger.Info("pipeline: wrote snapshot", zap.String("kind", string(w.kind)), zap.Int("documents", len(docs)))
	}
	return res, nil
}

// snapshot is the typed content of the store.
type snapshot struct {
	offers  []models.CanonicalOffer
	cruises []models.CanonicalCruise
	booked  []models.BookedCruise
	loyalty []models.ProgramStatus
}

func (p *Pipeline) read(ctx context.Context) (snapshot, error) {
	var snap snapshot
	var err error
	if snap.offers, err = readKind[models.CanonicalOffer](ctx, p.store, models.KindOffers); err != nil {
		return snap, err
	}
	if snap.cruises, err = readKind[models.CanonicalCruise](ctx, p.store, models.KindCruises); err != nil {
		return snap, err
	}
	if snap.booked, err = readKind[models.BookedCruise](ctx, p.store, models.KindBookedCruises); err != nil {
		return snap, err
	}
	if snap.loyalty, err = readKind[models.ProgramStatus](ctx, p.store, models.KindLoyalty); err != nil {
		return snap, err
	}
	return snap, nil
}

func readKind[T any](ctx context.Context, st store.Store, kind models.Kind) ([]T, error) {
	docs, err := st.ReadSnapshot(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return store.Decode[T](docs)
}

func (s snapshot) preview(prep *Prepared) reconcile.SyncPreview {
	return reconcile.SyncPreview{
		Offers:        reconcile.Build(prep.Offers, s.offers, reconcile.OfferKey),
		Cruises:       reconcile.Build(prep.Cruises, s.cruises, reconcile.CruiseKey),
		BookedCruises: reconcile.Build(prep.BookedCruises, s.booked, reconcile.BookedKey),
		Loyalty:       reconcile.BuildLoyalty(prep.Loyalty, s.loyalty),
	}
}
