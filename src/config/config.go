// Package config holds the tunables for the CLI demo, following the raft
// playground's package-level config shape. The election core itself never
// reads this package directly - notification timeouts are lifted into a
// record passed at construction, so this package-level Config is reserved
// for the CLI demo binary, which builds an election.Config from it per peer.
package config

import "time"

type simulatorConfig struct {
	// FinalizeWait is the fixed drain timeout used once a quorum has been
	// seen on a candidate, during the termination drain.
	FinalizeWait time.Duration
	// MinNotificationInterval is the starting notTimeout, and the floor the
	// exponential backoff resets to on every new election instance.
	MinNotificationInterval time.Duration
	// MaxNotificationInterval clamps the exponential backoff.
	MaxNotificationInterval time.Duration

	// NetworkLatency and NodeIds are demo-only knobs; they drive the CLI
	// simulator's connection.Network.
	NetworkLatency time.Duration
	NodeIds        []uint
}

// Config is the CLI demo's single mutable configuration instance, matching
// the raft playground's package-level var. Library code (election,
// messenger, connection) never reads it.
var Config = simulatorConfig{
	FinalizeWait:            200 * time.Millisecond,
	MinNotificationInterval: 200 * time.Millisecond,
	MaxNotificationInterval: 60 * time.Second,
	NetworkLatency:          20 * time.Millisecond,
}
