package session

import (
	"time"

	"cruisesync/internal/ingest"
	"cruisesync/pkg/models"
)

// Snapshot is a read-only copy of a Session for display.
type Snapshot struct {
	ID                   string                    `json:"id"`
	Status               Status                    `json:"status"`
	Step                 int                       `json:"step"`
	StepLabel            string                    `json:"step_label,omitempty"`
	Progress             Progress                  `json:"progress"`
	Logs                 []LogEntry                `json:"logs"`
	Buffered             map[models.RecordKind]int `json:"buffered"`
	Counts               ingest.Counts             `json:"counts"`
	Bounces              int                       `json:"bounces"`
	LoyaltyAuthoritative bool                      `json:"loyalty_authoritative"`
	HasPreview           bool                      `json:"has_preview"`
	LastError            string                    `json:"last_error,omitempty"`
	LastSync             *time.Time                `json:"last_sync,omitempty"`
	StartedAt            time.Time                 `json:"started_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// Snapshot copies the session, keeping only the last tail log lines.
func (s *Session) Snapshot(tail int) Snapshot {
	logs := s.Logs
	if tail > 0 && len(logs) > tail {
		logs = logs[len(logs)-tail:]
	}
	snap := Snapshot{
		ID:                   s.ID,
		Status:               s.Status,
		Step:                 s.Step,
		StepLabel:            s.StepLabel,
		Progress:             s.Progress,
		Logs:                 append([]LogEntry{}, logs...),
		Buffered:             make(map[models.RecordKind]int, len(s.Buffers)),
		Counts:               s.Counts,
		Bounces:              s.Bounces,
		LoyaltyAuthoritative: s.LoyaltyAuthoritative,
		HasPreview:           s.Prepared != nil,
		LastError:            s.LastError,
		StartedAt:            s.StartedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	for k, v := range s.Buffers {
		snap.Buffered[k] = len(v)
	}
	if s.Loyalty != nil {
		snap.Buffered[models.RecordLoyalty] = len(s.Loyalty.Programs)
	}
	if !s.LastSync.IsZero() {
		t := s.LastSync
		snap.LastSync = &t
	}
	return snap
}
