package bridge

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cruisesync/internal/ingest"
	"cruisesync/internal/reconcile"
	"cruisesync/internal/session"
	"cruisesync/pkg/models"
)

// Effect tells the orchestrator what a handled message means for the
// step it is waiting on.
type Effect struct {
	// Heartbeat is set for any message that shows the extractor is alive.
	Heartbeat bool
	// Completed is the step a step_complete message resolves, or 0.
	Completed int
	// Auth is the reported authentication state, if the message carried one.
	Auth *bool
}

// Bridge applies extractor messages to a session. It is not safe for
// concurrent use; the orchestrator calls it from its event loop only.
type Bridge struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Bridge {
	return &Bridge{logger: logger.Named("bridge")}
}

// Handle applies env to s and appends a log line for it. Unknown types are
// logged and dropped.
func (b *Bridge) Handle(s *session.Session, env Envelope, now time.Time) Effect {
	envelopesTotal.WithLabelValues(metricType(env.Type)).Inc()

	switch env.Type {
	case TypeLog:
		b.note(s, now, levelOf(env.Level), env.Step, env.Message)
		return Effect{Heartbeat: true}

	case TypeProgress:
		s.Progress = session.Progress{Current: env.Current, Total: env.Total, Label: env.Message}
		msg := fmt.Sprintf("progress %d/%d", env.Current, env.Total)
		if env.Message != "" {
			msg += " " + env.Message
		}
		b.note(s, now, session.LevelDebug, env.Step, msg)
		return Effect{Heartbeat: true}

	case TypeRecordBatch:
		b.recordBatch(s, env, now)
		return Effect{Heartbeat: true}

	case TypeNetworkPayload:
		b.networkPayload(s, env, now)
		return Effect{Heartbeat: true}

	case TypeStepComplete:
		b.note(s, now, session.LevelInfo, env.Step, fmt.Sprintf("step %d reported complete", env.Step))
		return Effect{Heartbeat: true, Completed: env.Step}

	case TypeError:
		b.note(s, now, session.LevelWarn, env.Step, "extractor error: "+env.Message)
		return Effect{Heartbeat: true}

	case TypeAuthStatus:
		ok := env.Authenticated != nil && *env.Authenticated
		msg := "extractor reports not authenticated"
		if ok {
			msg = "extractor reports authenticated"
		}
		b.note(s, now, session.LevelInfo, env.Step, msg)
		return Effect{Auth: &ok}
	}

	droppedTotal.WithLabelValues("unknown_type").Inc()
	b.note(s, now, session.LevelWarn, env.Step, fmt.Sprintf("dropped message with unknown type %q", env.Type))
	return Effect{}
}

func (b *Bridge) recordBatch(s *session.Session, env Envelope, now time.Time) {
	kind := env.Kind
	if kind == "" {
		kind = session.StepKind(env.Step)
	}
	if !kind.Valid() {
		droppedTotal.WithLabelValues("unknown_kind").Inc()
		b.note(s, now, session.LevelWarn, env.Step, fmt.Sprintf("dropped batch of %d records with unknown kind %q", len(env.Data), kind))
		return
	}

	if kind == models.RecordLoyalty {
		l, skipped := ingest.Loyalty(env.Data, "record_batch", false, now)
		b.skipped(s, now, env.Step, kind, skipped)
		if l != nil {
			b.offerLoyalty(s, l, now, env.Step)
		}
		return
	}

	total := s.Append(kind, env.Data)
	msg := fmt.Sprintf("received %d %s (%d buffered)", len(env.Data), kind, total)
	if env.IsFinal {
		msg += fmt.Sprintf(", final batch of %d", env.TotalCount)
	}
	b.note(s, now, session.LevelInfo, env.Step, msg)
}

func (b *Bridge) networkPayload(s *session.Session, env Envelope, now time.Time) {
	if s.Seen(Fingerprint(env.Endpoint, env.URL, env.Payload)) {
		duplicatesTotal.Inc()
		b.note(s, now, session.LevelDebug, env.Step, "ignored repeated payload from "+env.Endpoint)
		return
	}

	dec, ok := DecodeNetwork(env.body())
	if !ok {
		droppedTotal.WithLabelValues("unrecognized_payload").Inc()
		b.note(s, now, session.LevelWarn, env.Step, "unrecognized payload shape from "+env.Endpoint)
		return
	}

	if dec.Kind == models.RecordLoyalty {
		l, skipped := ingest.Loyalty(dec.Records, "network:"+dec.Decoder, true, now)
		b.skipped(s, now, env.Step, dec.Kind, skipped)
		if l != nil {
			b.offerLoyalty(s, l, now, env.Step)
		}
		return
	}

	total := s.Append(dec.Kind, dec.Records)
	b.note(s, now, session.LevelInfo, env.Step,
		fmt.Sprintf("captured %d %s from %s (%d buffered)", len(dec.Records), dec.Kind, dec.Decoder, total))
}

// offerLoyalty keeps l unless an authoritative capture was already accepted
// and l is not authoritative.
func (b *Bridge) offerLoyalty(s *session.Session, l *models.LoyaltyStatus, now time.Time, step int) {
	if !reconcile.AcceptLoyalty(s.LoyaltyAuthoritative, l) {
		b.note(s, now, session.LevelWarn, step,
			fmt.Sprintf("ignored loyalty from %s: authoritative loyalty already captured", l.Source))
		return
	}
	s.Loyalty = l
	if l.Authoritative {
		s.LoyaltyAuthoritative = true
	}
	b.note(s, now, session.LevelInfo, step, fmt.Sprintf("captured %d loyalty programs from %s", len(l.Programs), l.Source))
}

func (b *Bridge) skipped(s *session.Session, now time.Time, step int, kind models.RecordKind, skipped []ingest.Skip) {
	for _, sk := range skipped {
		b.note(s, now, session.LevelWarn, step, fmt.Sprintf("skipped %s %v", kind, sk))
	}
}

// note appends a session log line and mirrors it to the process log.
func (b *Bridge) note(s *session.Session, now time.Time, level session.Level, step int, msg string) {
	s.Log(now, level, step, msg)
	Mirror(b.logger, s.ID, level, step, msg)
}

// Mirror writes a session log line to logger at the matching level.
func Mirror(logger *zap.Logger, sessionID string, level session.Level, step int, msg string) {
	if ce := logger.Check(zapLevel(level), msg); ce != nil {
		ce.Write(zap.String("session", sessionID), zap.Int("step", step))
	}
}

func zapLevel(l session.Level) zapcore.Level {
	switch l {
	case session.LevelDebug:
		return zapcore.DebugLevel
	case session.LevelWarn:
		return zapcore.WarnLevel
	case session.LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func levelOf(s string) session.Level {
	switch session.Level(s) {
	case session.LevelDebug, session.LevelWarn, session.LevelError:
		return session.Level(s)
	}
	return session.LevelInfo
}

func metricType(t string) string {
	switch t {
	case TypeLog, TypeProgress, TypeRecordBatch, TypeNetworkPayload, TypeStepComplete, TypeError, TypeAuthStatus:
		return t
	}
	return "unknown"
}
