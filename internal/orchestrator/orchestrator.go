// Package orchestrator drives an ingestion session through its steps.
//
// All session state lives in one goroutine (Run). The extractor link, the
// API and the step runner talk to it by queueing events; readers get
// immutable snapshots.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cruisesync/internal/bridge"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/session"
	"cruisesync/internal/store"
)

var (
	ErrNotAuthenticated = errors.New("extractor is not authenticated")
	ErrBusy             = errors.New("a session is already running")
	ErrNotReady         = errors.New("session is not awaiting confirmation")
	ErrCancelled        = errors.New("session cancelled")
	ErrStopped          = errors.New("orchestrator stopped")
)

// Navigator sends commands to the extractor.
type Navigator interface {
	Navigate(ctx context.Context, step int, target string) error
	StartExtraction(ctx context.Context, step int) error
}

// Pipeline prepares and commits buffered records.
type Pipeline interface {
	Prepare(ctx context.Context, in pipeline.Input) (*pipeline.Prepared, error)
	Commit(ctx context.Context, prep *pipeline.Prepared) (pipeline.CommitResult, error)
}

// RunLog keeps the history of commits.
type RunLog interface {
	RecordRun(ctx context.Context, run store.Run) error
	LastRun(ctx context.Context) (*store.Run, error)
}

// Publisher receives every snapshot. It must not block.
type Publisher interface {
	Publish(session.Snapshot)
}

// Publishers fans a snapshot out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Publish(snap session.Snapshot) {
	for _, p := range ps {
		p.Publish(snap)
	}
}

type event struct {
	fn   func(s *session.Session)
	done chan struct{}
}

type Orchestrator struct {
	cfg     Config
	nav     Navigator
	bridge  *bridge.Bridge
	pipe    Pipeline
	runs    RunLog
	pub     Publisher
	logger  *zap.Logger
	now     func() time.Time
	inbox   chan event
	stopped chan struct{}

	snap     atomic.Pointer[session.Snapshot]
	prepared atomic.Pointer[pipeline.Prepared]

	// owned by the Run goroutine
	sess      *session.Session
	gen       uint64
	waiters   map[int]*waiter
	authed    bool
	runCancel context.CancelFunc
}

func New(cfg Config, nav Navigator, pipe Pipeline, runs RunLog, pub Publisher, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		nav:     nav,
		bridge:  bridge.New(logger),
		pipe:    pipe,
		runs:    runs,
		pub:     pub,
		logger:  logger.Named("orchestrator"),
		now:     time.Now,
		inbox:   make(chan event, 256),
		stopped: make(chan struct{}),
		waiters: map[int]*waiter{},
	}
	o.sess = session.New(o.now())
	o.publish()
	return o
}

// SetNavigator attaches the extractor link. It must be called before Run.
func (o *Orchestrator) SetNavigator(nav Navigator) { o.nav = nav }

// Run processes events until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.stopped)
	if o.runs != nil {
		if last, err := o.runs.LastRun(ctx); err != nil {
			o.logger.Warn("orchestrator: cannot read last run", zap.Error(err))
		} else if last != nil && last.Status == string(session.StatusComplete) {
			o.sess.LastSync = last.FinishedAt
			o.publish()
		}
	}

	o.logger.Info("orchestrator: running")
	for {
		select {
		case <-ctx.Done():
			o.cancelRun()
			o.logger.Info("orchestrator: stopped")
			return nil
		case ev := <-o.inbox:
			ev.fn(o.sess)
			o.publish()
			if ev.done != nil {
				close(ev.done)
			}
		}
	}
}

// call runs fn on the loop and waits for it.
func (o *Orchestrator) call(ctx context.Context, fn func(s *session.Session)) error {
	ev := event{fn: fn, done: make(chan struct{})}
	select {
	case o.inbox <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		return ErrStopped
	}
	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		return ErrStopped
	}
}

// Deliver queues one raw extractor message. It never blocks on the loop
// for longer than it takes to enqueue.
func (o *Orchestrator) Deliver(b []byte) {
	msg := append([]byte(nil), b...)
	select {
	case o.inbox <- event{fn: func(s *session.Session) { o.handle(s, msg) }}:
	case <-o.stopped:
	}
}

func (o *Orchestrator) handle(s *session.Session, b []byte) {
	env, err := bridge.Parse(b)
	if err != nil {
		bridge.Dropped("malformed")
		o.note(s, session.LevelWarn, 0, fmt.Sprintf("dropped malformed message: %v", err))
		return
	}
	eff := o.bridge.Handle(s, env, o.now())

	if eff.Auth != nil {
		o.authed = *eff.Auth
		if w, ok := o.waiters[0]; ok && o.authed {
			w.resolve(ReasonComplete)
		}
	}
	if eff.Heartbeat {
		for _, w := range o.waiters {
			w.heartbeat()
		}
	}
	if eff.Completed > 0 {
		if w, ok := o.waiters[eff.Completed]; ok {
			if !w.resolve(ReasonComplete) {
				o.note(s, session.LevelDebug, eff.Completed, "step already resolved, completion ignored")
			}
		}
	}
}

// Snapshot returns the latest published session state.
func (o *Orchestrator) Snapshot() session.Snapshot {
	return *o.snap.Load()
}

// Prepared returns the changeset awaiting confirmation, if any.
func (o *Orchestrator) Prepared() *pipeline.Prepared {
	return o.prepared.Load()
}

func (o *Orchestrator) publish() {
	snap := o.sess.Snapshot(o.cfg.LogTail)
	o.snap.Store(&snap)
	o.prepared.Store(o.sess.Prepared)
	if o.pub != nil {
		o.pub.Publish(snap)
	}
}

// note appends a session log line and mirrors it to the process log.
func (o *Orchestrator) note(s *session.Session, level session.Level, step int, msg string) {
	s.Log(o.now(), level, step, msg)
	bridge.Mirror(o.logger, s.ID, level, step, msg)
}

func (o *Orchestrator) transition(s *session.Session, to session.Status) {
	from := s.Status
	if err := s.Transition(to, o.now()); err != nil {
		o.logger.Error("orchestrator: refused transition", zap.Error(err))
		return
	}
	o.note(s, session.LevelDebug, s.Step, fmt.Sprintf("%s -> %s", from, to))
}

// Start begins a new session and returns once the extractor has reported
// a login, or with ErrNotAuthenticated when it did not within AuthTimeout.
// The session keeps running if ctx ends first.
func (o *Orchestrator) Start(ctx context.Context) error {
	result := make(chan error, 1)
	var startErr error
	err := o.call(ctx, func(s *session.Session) {
		if s.Status.Active() {
			startErr = ErrBusy
			return
		}
		o.begin(result)
	})
	if err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin replaces the finished session with a fresh one and launches the
// runner. Runs on the loop.
func (o *Orchestrator) begin(result chan<- error) {
	prev := o.sess
	s := session.New(o.now())
	s.LastSync = prev.LastSync
	o.sess = s

	o.gen++
	ctx, cancel := context.WithCancel(context.Background())
	o.runCancel = cancel
	o.waiters = map[int]*waiter{}

	o.transition(s, session.StatusNotAuthenticated)
	o.note(s, session.LevelInfo, 0, "session started")
	go o.runSession(ctx, o.gen, result)
}

// Confirm commits the prepared changeset and returns the commit error, if
// any. The commit continues if ctx ends first.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	result := make(chan error, 1)
	var confirmErr error
	err := o.call(ctx, func(s *session.Session) {
		if s.Status != session.StatusAwaitingConfirmation || s.Prepared == nil {
			confirmErr = ErrNotReady
			return
		}
		o.transition(s, session.StatusSyncing)
		o.note(s, session.LevelInfo, 0, "commit confirmed")
		commitCtx, cancel := context.WithCancel(context.Background())
		o.runCancel = cancel
		go o.commit(commitCtx, o.gen, s.Prepared, s.StartedAt, result)
	})
	if err != nil {
		return err
	}
	if confirmErr != nil {
		return confirmErr
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit writes prep under ctx, which Cancel ends. Kinds not yet written
// when that happens are dropped.
func (o *Orchestrator) commit(ctx context.Context, gen uint64, prep *pipeline.Prepared, started time.Time, result chan<- error) {
	res, err := o.pipe.Commit(ctx, prep)
	finished := o.now()
	if err != nil && ctx.Err() != nil {
		o.logger.Info("orchestrator: commit cancelled",
			zap.Any("written", res.Written), zap.Any("unwritten", res.Unwritten))
		result <- fmt.Errorf("%w: %w", ErrCancelled, err)
		return
	}

	run := store.Run{ID: "", StartedAt: started, FinishedAt: finished}
	run.Summary, _ = json.Marshal(res)

	var stop context.CancelFunc
	_ = o.inRun(ctx, gen, func(s *session.Session) {
		run.ID = s.ID
		stop = o.detachRun()
		if err != nil {
			s.LastError = err.Error()
			o.note(s, session.LevelError, 0, "commit failed: "+err.Error())
			if len(res.Written) > 0 {
				o.note(s, session.LevelWarn, 0, fmt.Sprintf("kinds already written stay committed: %v", res.Written))
			}
			o.transition(s, session.StatusError)
			run.Status, run.Error = string(session.StatusError), err.Error()
			return
		}
		s.LastSync = finished
		s.LastError = ""
		o.transition(s, session.StatusComplete)
		o.note(s, session.LevelInfo, 0, fmt.Sprintf("commit complete: %s", summaryLine(res)))
		run.Status = string(session.StatusComplete)
	})
	if stop != nil {
		stop()
	}

	if o.runs != nil && run.ID != "" {
		if rerr := o.runs.RecordRun(context.Background(), run); rerr != nil {
			o.logger.Warn("orchestrator: cannot record run", zap.Error(rerr))
		}
	}
	result <- err
}

// Cancel aborts the running session, discards its buffers and returns it
// to idle. A commit in progress stops before its next kind; writes it
// already made are not rolled back.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	return o.call(ctx, func(s *session.Session) {
		if !s.Status.Active() {
			return
		}
		o.cancelRun()
		o.gen++
		s.Reset(o.now())
		o.note(s, session.LevelInfo, 0, "session cancelled")
	})
}

// cancelRun stops the runner and settles every pending wait. Runs on the loop.
func (o *Orchestrator) cancelRun() {
	o.detachRun()()
}

// detachRun settles every pending wait and hands back the runner's cancel
// func without calling it. Runs on the loop.
func (o *Orchestrator) detachRun() context.CancelFunc {
	for step, w := range o.waiters {
		w.resolve(ReasonCancelled)
		delete(o.waiters, step)
	}
	cancel := o.runCancel
	o.runCancel = nil
	if cancel == nil {
		return func() {}
	}
	return cancel
}

// inRun runs fn on the loop if the session that started gen is still the
// current one, and reports whether it did.
func (o *Orchestrator) inRun(ctx context.Context, gen uint64, fn func(s *session.Session)) bool {
	ran := false
	err := o.call(ctx, func(s *session.Session) {
		if o.gen != gen {
			return
		}
		ran = true
		fn(s)
	})
	return err == nil && ran
}
