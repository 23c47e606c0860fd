package orchestrator

import "time"

// Config bounds how long the orchestrator waits and retries.
type Config struct {
	// StallTimeout resolves a step after this long without any message.
	StallTimeout time.Duration
	// HardTimeout resolves a step after this long regardless of progress.
	HardTimeout time.Duration
	// AuthTimeout bounds the wait for the extractor to report a login.
	AuthTimeout time.Duration
	// MaxBounces caps how often earlier steps are revisited in one session.
	MaxBounces int
	// AuthRetries is how many times a command rejected for auth is retried.
	AuthRetries  int
	RetryInitial time.Duration
	// Targets maps a step to the remote page the extractor opens. Step 0 is
	// the page used to check the login.
	Targets map[int]string
	// LogTail is how many log lines a snapshot carries.
	LogTail int
}

func DefaultConfig() Config {
	return Config{
		StallTimeout: 30 * time.Second,
		HardTimeout:  5 * time.Minute,
		AuthTimeout:  2 * time.Minute,
		MaxBounces:   2,
		AuthRetries:  3,
		RetryInitial: 500 * time.Millisecond,
		Targets: map[int]string{
			0: "/account",
			1: "/club-royale/offers",
			2: "/account/upcoming-cruises",
			3: "/account/loyalty-status",
		},
		LogTail: 200,
	}
}
