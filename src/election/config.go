// Package election implements the main leader-election state machine and
// its role handoff into FOLLOWING/LEADING/OBSERVING: a struct owning its own
// queues and worker handles, entered via a single blocking call and torn
// down via an idempotent stop.
package election

import "time"

// Config carries every election timing knob, lifted into a record passed
// at construction rather than read from global state, so multiple peers in
// one process can run with independent timings.
type Config struct {
	// FinalizeWait is the fixed drain timeout in the termination drain.
	// Defaults to 200ms if zero.
	FinalizeWait time.Duration
	// MinNotificationInterval is notTimeout's initial value and the
	// backoff's floor. Defaults to FinalizeWait if zero.
	MinNotificationInterval time.Duration
	// MaxNotificationInterval clamps the exponential backoff. Defaults to
	// 60s if zero.
	MaxNotificationInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.FinalizeWait == 0 {
		c.FinalizeWait = 200 * time.Millisecond
	}
	if c.MinNotificationInterval == 0 {
		c.MinNotificationInterval = c.FinalizeWait
	}
	if c.MaxNotificationInterval == 0 {
		c.MaxNotificationInterval = 60 * time.Second
	}
	return c
}
