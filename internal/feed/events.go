package feed

import (
	"time"

	"cruisesync/internal/session"
)

const (
	EventWelcome  = "welcome"
	EventSnapshot = "session.snapshot"
)

// Event is one line of the observer feed.
type Event struct {
	Type      string            `json:"type"`
	Transport string            `json:"transport,omitempty"`
	Clients   int               `json:"clients,omitempty"`
	Session   *session.Snapshot `json:"session,omitempty"`
	At        time.Time         `json:"at"`
}
