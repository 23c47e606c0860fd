package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"cruisesync/internal/bridge"
	"cruisesync/internal/ingest"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/session"
	"cruisesync/pkg/models"
)

var stepLabels = map[int]string{1: "offers", 2: "bookings", 3: "loyalty"}

// runSession walks the auth gate, the three steps, the bounces and the
// preview. Every session mutation goes through inRun; when it reports false
// the session was cancelled and the runner stops.
func (o *Orchestrator) runSession(ctx context.Context, gen uint64, result chan<- error) {
	err := o.awaitAuth(ctx, gen)
	result <- err
	if err != nil {
		return
	}

	for step := 1; step <= session.Steps; step++ {
		if !o.runStep(ctx, gen, step, session.RunningStep(step)) {
			return
		}
	}
	if !o.bounce(ctx, gen) {
		return
	}
	o.prepare(ctx, gen)
}

func (o *Orchestrator) awaitAuth(ctx context.Context, gen uint64) error {
	var w *waiter
	authed := false
	if !o.inRun(ctx, gen, func(s *session.Session) {
		if o.authed {
			authed = true
			return
		}
		w = newWaiter(0, 0, o.cfg.AuthTimeout)
		o.waiters[0] = w
		o.note(s, session.LevelInfo, 0, "waiting for the extractor to report a login")
	}) {
		return ErrCancelled
	}

	if !authed {
		if target, ok := o.cfg.Targets[0]; ok && o.nav != nil {
			if err := o.nav.Navigate(ctx, 0, target); err != nil {
				o.inRun(ctx, gen, func(s *session.Session) {
					o.note(s, session.LevelWarn, 0, "cannot open login check page: "+err.Error())
				})
			}
		}
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ErrCancelled
		}
		if w.Reason() == ReasonCancelled {
			return ErrCancelled
		}
		authed = w.Reason() == ReasonComplete
	}

	// The run context is cancelled only after the loop has answered, so
	// the timeout is reported as such rather than as a cancellation.
	var stop context.CancelFunc
	if !o.inRun(ctx, gen, func(s *session.Session) {
		delete(o.waiters, 0)
		if !authed {
			s.LastError = ErrNotAuthenticated.Error()
			o.note(s, session.LevelError, 0, "not authenticated; log in to the remote site and start again")
			stop = o.detachRun()
			o.gen++
			s.Reset(o.now())
			return
		}
		o.transition(s, session.StatusAuthenticated)
	}) {
		return ErrCancelled
	}
	if stop != nil {
		stop()
	}
	if !authed {
		return ErrNotAuthenticated
	}
	return nil
}

// runStep navigates, starts extraction and waits for the step to resolve.
// Navigation failures degrade to waiting on the timers.
func (o *Orchestrator) runStep(ctx context.Context, gen uint64, step int, status session.Status) bool {
	var w *waiter
	if !o.inRun(ctx, gen, func(s *session.Session) {
		s.Step = step
		s.StepLabel = stepLabels[step]
		s.Progress = session.Progress{}
		o.transition(s, status)
		w = newWaiter(step, o.cfg.StallTimeout, o.cfg.HardTimeout)
		o.waiters[step] = w
		o.note(s, session.LevelInfo, step, fmt.Sprintf("step %d (%s) started", step, stepLabels[step]))
	}) {
		return false
	}

	target := o.cfg.Targets[step]
	if err := o.command(ctx, gen, step, "navigate", func(ctx context.Context) error {
		return o.nav.Navigate(ctx, step, target)
	}); err == nil {
		_ = o.command(ctx, gen, step, "start extraction", func(ctx context.Context) error {
			return o.nav.StartExtraction(ctx, step)
		})
	}

	select {
	case <-w.Done():
	case <-ctx.Done():
		return false
	}

	return o.inRun(ctx, gen, func(s *session.Session) {
		delete(o.waiters, step)
		reason := w.Reason()
		stepResolutions.WithLabelValues(strconv.Itoa(step), string(reason)).Inc()
		level := session.LevelInfo
		if reason != ReasonComplete {
			level = session.LevelWarn
		}
		o.note(s, level, step, fmt.Sprintf("step %d resolved by %s with %s", step, reason, buffered(s)))
	})
}

// command sends one extractor command, retrying auth rejections with
// backoff. Other failures are not retried.
func (o *Orchestrator) command(ctx context.Context, gen uint64, step int, what string, send func(context.Context) error) error {
	if o.nav == nil {
		o.inRun(ctx, gen, func(s *session.Session) {
			o.note(s, session.LevelWarn, step, what+" skipped: "+bridge.ErrNoExtractor.Error())
		})
		return bridge.ErrNoExtractor
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.RetryInitial
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := send(ctx)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, bridge.ErrAuth):
			o.inRun(ctx, gen, func(s *session.Session) {
				o.note(s, session.LevelWarn, step, what+" rejected, retrying: "+err.Error())
			})
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(o.cfg.AuthRetries)+1),
	)
	if err == nil {
		// a successful command proves the extractor is alive
		o.inRun(ctx, gen, func(s *session.Session) {
			if w, ok := o.waiters[step]; ok {
				w.heartbeat()
			}
		})
		return nil
	}
	o.inRun(ctx, gen, func(s *session.Session) {
		o.note(s, session.LevelWarn, step, fmt.Sprintf("%s failed, continuing with buffered data: %v", what, err))
	})
	return err
}

// bounce revisits the earliest step whose data is still missing, at most
// MaxBounces times per session.
func (o *Orchestrator) bounce(ctx context.Context, gen uint64) bool {
	for {
		step := 0
		if !o.inRun(ctx, gen, func(s *session.Session) {
			missing := s.Missing()
			if len(missing) == 0 {
				return
			}
			if s.Bounces >= o.cfg.MaxBounces {
				o.note(s, session.LevelWarn, 0, fmt.Sprintf("still missing %s after %d bounces, continuing", kindList(missing), s.Bounces))
				return
			}
			step = stepFor(missing[0])
			s.Bounces++
			o.transition(s, session.BounceTo(step))
			o.note(s, session.LevelInfo, step, fmt.Sprintf("missing %s, revisiting step %d (bounce %d of %d)",
				kindList(missing), step, s.Bounces, o.cfg.MaxBounces))
		}) {
			return false
		}
		if step == 0 {
			return true
		}
		if !o.runStep(ctx, gen, step, session.BounceRunning(step)) {
			return false
		}
	}
}

// prepare builds the preview and waits for confirmation.
func (o *Orchestrator) prepare(ctx context.Context, gen uint64) {
	var in pipeline.Input
	if !o.inRun(ctx, gen, func(s *session.Session) {
		s.Counts = ingest.Tally(s.Buffers[models.RecordOffers], s.Buffers[models.RecordBookings], s.Loyalty)
		in = s.Input()
	}) {
		return
	}

	prep, err := o.pipe.Prepare(ctx, in)

	o.inRun(ctx, gen, func(s *session.Session) {
		if err != nil {
			o.note(s, session.LevelWarn, 0, "preview is incomplete, the store could not be read: "+err.Error())
		}
		s.Prepared = prep
		c := s.Counts
		o.note(s, session.LevelInfo, 0, fmt.Sprintf("extraction finished: %d offers, %d sailings, %d upcoming cruises, %d holds",
			c.Offers, c.Sailings, c.Upcoming, c.Holds))
		o.transition(s, session.StatusAwaitingConfirmation)
	})
}

func stepFor(kind models.RecordKind) int {
	for step := 1; step <= session.Steps; step++ {
		if session.StepKind(step) == kind {
			return step
		}
	}
	return 1
}

func kindList(kinds []models.RecordKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func buffered(s *session.Session) string {
	loyalty := 0
	if s.Loyalty != nil {
		loyalty = len(s.Loyalty.Programs)
	}
	return fmt.Sprintf("%d offers, %d bookings, %d loyalty programs buffered",
		len(s.Buffers[models.RecordOffers]), len(s.Buffers[models.RecordBookings]), loyalty)
}

func summaryLine(res pipeline.CommitResult) string {
	var parts []string
	for _, k := range models.Kinds {
		c := res.Summary[k]
		parts = append(parts, fmt.Sprintf("%s %d new/%d updated/%d unchanged", k, c.New, c.Updated, c.Unchanged))
	}
	return strings.Join(parts, ", ")
}
