package session

import (
	"fmt"
	"strconv"
	"strings"

	"cruisesync/pkg/models"
)

// Status is a state of the ingestion state machine.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusNotAuthenticated     Status = "not_authenticated"
	StatusAuthenticated        Status = "authenticated"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusSyncing              Status = "syncing"
	StatusComplete             Status = "complete"
	StatusError                Status = "error"
)

// Steps is the number of extraction steps.
const Steps = 3

// RunningStep is the state while step n is extracting.
func RunningStep(n int) Status { return Status("running_step_" + strconv.Itoa(n)) }

// BounceTo is the state entered when the orchestrator decides to revisit step n.
func BounceTo(n int) Status { return Status("bounce_to_step_" + strconv.Itoa(n)) }

// BounceRunning is the state while a revisited step n is extracting.
func BounceRunning(n int) Status { return Status("bounce_running_step_" + strconv.Itoa(n)) }

// Step returns the step number carried by a running or bounce state.
func (s Status) Step() (int, bool) {
	for _, prefix := range []string{"bounce_running_step_", "bounce_to_step_", "running_step_"} {
		if rest, ok := strings.CutPrefix(string(s), prefix); ok {
			n, err := strconv.Atoi(rest)
			return n, err == nil && n >= 1 && n <= Steps
		}
	}
	return 0, false
}

// IsBounce reports whether s is one of the bounce sub-states.
func (s Status) IsBounce() bool {
	return strings.HasPrefix(string(s), "bounce_")
}

// Active reports whether a session in s is still in flight.
func (s Status) Active() bool {
	switch s {
	case StatusIdle, StatusComplete, StatusError:
		return false
	}
	return true
}

// rank orders the forward path. Bounce states share one rank between the
// last step and confirmation.
func (s Status) rank() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusNotAuthenticated:
		return 1
	case StatusAuthenticated:
		return 2
	case StatusAwaitingConfirmation:
		return 7
	case StatusSyncing:
		return 8
	case StatusComplete:
		return 9
	}
	if s.IsBounce() {
		if _, ok := s.Step(); ok {
			return 6
		}
		return -1
	}
	if n, ok := s.Step(); ok {
		return 2 + n
	}
	return -1
}

func (s Status) Valid() bool {
	return s == StatusError || s.rank() >= 0
}

// CanTransition reports whether from -> to is allowed. The path only moves
// forward, except that error and idle are reachable from anywhere and bounce
// states may follow each other.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch {
	case to == StatusError, to == StatusIdle:
		return true
	case from == StatusError || from == StatusComplete:
		return to == StatusNotAuthenticated
	case from.IsBounce() && to.IsBounce():
		return true
	}
	return to.rank() > from.rank()
}

// TransitionError is returned for a move the state machine does not allow.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: invalid transition %s -> %s", e.From, e.To)
}

// StepKind is the buffer a step fills.
func StepKind(n int) models.RecordKind {
	switch n {
	case 1:
		return models.RecordOffers
	case 2:
		return models.RecordBookings
	case 3:
		return models.RecordLoyalty
	}
	return ""
}
