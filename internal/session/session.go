// Package session holds the state of one ingestion run.
//
// A Session is owned by a single goroutine. Everything else reads a
// Snapshot.
package session

import (
	"time"

	"github.com/google/uuid"

	"cruisesync/internal/ingest"
	"cruisesync/internal/pipeline"
	"cruisesync/pkg/models"
)

// MaxLogs caps the log kept per session; the oldest lines are dropped first.
const MaxLogs = 2000

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Step    int       `json:"step,omitempty"`
	Message string    `json:"message"`
}

type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label,omitempty"`
}

type Session struct {
	ID        string
	Status    Status
	Step      int
	StepLabel string
	Progress  Progress
	Logs      []LogEntry
	Buffers   map[models.RecordKind][]models.RawRecord

	// Loyalty is the best capture so far. LoyaltyAuthoritative is set once a
	// capture from the authoritative source was accepted; from then on
	// fallback captures are ignored.
	Loyalty              *models.LoyaltyStatus
	LoyaltyAuthoritative bool

	// SeenPayloads holds fingerprints of network payloads already handled.
	SeenPayloads map[string]struct{}

	Bounces   int
	Counts    ingest.Counts
	Prepared  *pipeline.Prepared
	LastError string
	LastSync  time.Time
	StartedAt time.Time
	UpdatedAt time.Time
}

func New(now time.Time) *Session {
	s := &Session{ID: uuid.NewString(), Status: StatusIdle, StartedAt: now, UpdatedAt: now}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.Buffers = map[models.RecordKind][]models.RawRecord{}
	s.SeenPayloads = map[string]struct{}{}
	s.Loyalty = nil
	s.LoyaltyAuthoritative = false
	s.Bounces = 0
	s.Counts = ingest.Counts{}
	s.Prepared = nil
	s.Progress = Progress{}
	s.Step = 0
	s.StepLabel = ""
}

// Transition moves the session to a new status.
func (s *Session) Transition(to Status, now time.Time) error {
	if s.Status == to {
		return nil
	}
	if !CanTransition(s.Status, to) {
		return &TransitionError{From: s.Status, To: to}
	}
	s.Status = to
	s.UpdatedAt = now
	return nil
}

// Reset discards uncommitted data and returns the session to idle. The
// log, the last error and the last sync time are kept for display.
func (s *Session) Reset(now time.Time) {
	s.clear()
	s.Status = StatusIdle
	s.UpdatedAt = now
}

// Log appends a human-readable line.
func (s *Session) Log(now time.Time, level Level, step int, msg string) LogEntry {
	e := LogEntry{Time: now, Level: level, Step: step, Message: msg}
	s.Logs = append(s.Logs, e)
	if over := len(s.Logs) - MaxLogs; over > 0 {
		s.Logs = append(s.Logs[:0:0], s.Logs[over:]...)
	}
	s.UpdatedAt = now
	return e
}

// Append adds a batch to the buffer of kind in arrival order and returns
// the new buffer length.
func (s *Session) Append(kind models.RecordKind, recs []models.RawRecord) int {
	s.Buffers[kind] = append(s.Buffers[kind], recs...)
	return len(s.Buffers[kind])
}

// Seen records a payload fingerprint and reports whether it was already known.
func (s *Session) Seen(fingerprint string) bool {
	if _, ok := s.SeenPayloads[fingerprint]; ok {
		return true
	}
	s.SeenPayloads[fingerprint] = struct{}{}
	return false
}

// Missing lists the record kinds that have nothing buffered yet.
func (s *Session) Missing() []models.RecordKind {
	var out []models.RecordKind
	if len(s.Buffers[models.RecordOffers]) == 0 {
		out = append(out, models.RecordOffers)
	}
	if len(s.Buffers[models.RecordBookings]) == 0 {
		out = append(out, models.RecordBookings)
	}
	if s.Loyalty == nil {
		out = append(out, models.RecordLoyalty)
	}
	return out
}

// Input is the buffered data handed to the pipeline.
func (s *Session) Input() pipeline.Input {
	return pipeline.Input{
		Offers:   append([]models.RawRecord(nil), s.Buffers[models.RecordOffers]...),
		Bookings: append([]models.RawRecord(nil), s.Buffers[models.RecordBookings]...),
		Loyalty:  s.Loyalty,
	}
}
