package orchestrator

import (
	"sync"
	"time"
)

// Reason says what resolved a step wait.
type Reason string

const (
	ReasonComplete  Reason = "complete"
	ReasonStall     Reason = "stall"
	ReasonHardLimit Reason = "hard_limit"
	ReasonCancelled Reason = "cancelled"
)

// waiter is a single-resolution future for one step. The completion
// message, the stall timer and the hard timer race to resolve it; only the
// first one counts.
type waiter struct {
	step  int
	stall time.Duration

	once   sync.Once
	done   chan struct{}
	reason Reason

	mu         sync.Mutex
	stallTimer *time.Timer
	hardTimer  *time.Timer
}

func newWaiter(step int, stall, hard time.Duration) *waiter {
	w := &waiter{step: step, stall: stall, done: make(chan struct{})}
	w.mu.Lock()
	if stall > 0 {
		w.stallTimer = time.AfterFunc(stall, func() { w.resolve(ReasonStall) })
	}
	w.hardTimer = time.AfterFunc(hard, func() { w.resolve(ReasonHardLimit) })
	w.mu.Unlock()
	return w
}

// resolve settles the wait and reports whether this call did it.
func (w *waiter) resolve(r Reason) bool {
	resolved := false
	w.once.Do(func() {
		w.reason = r
		resolved = true
		w.mu.Lock()
		if w.stallTimer != nil {
			w.stallTimer.Stop()
		}
		w.hardTimer.Stop()
		w.mu.Unlock()
		close(w.done)
	})
	return resolved
}

// heartbeat restarts the stall window.
func (w *waiter) heartbeat() {
	select {
	case <-w.done:
		return
	default:
	}
	w.mu.Lock()
	if w.stallTimer != nil {
		w.stallTimer.Reset(w.stall)
	}
	w.mu.Unlock()
}

func (w *waiter) Done() <-chan struct{} { return w.done }

// Reason is valid once Done is closed.
func (w *waiter) Reason() Reason { return w.reason }
