package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quorumwire/fle-election/src/message"
)

// NewStructured builds a per-peer diagnostic logger tagged with sid,
// wrapping a zap.SugaredLogger for the election core's error taxonomy:
// Warn for drop/continue kinds, Error for EpochReadFailure. base is
// typically zap.NewProduction() or zap.NewNop() in tests.
func NewStructured(base *zap.Logger, sid message.ServerId) *zap.SugaredLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("sid", sid)
}

// InstanceId mints a per-election-instance correlation id, threaded through
// a structured logger via WithInstance so every log line from one
// lookForLeader call can be grepped together.
func InstanceId() string {
	return uuid.NewString()
}

// WithInstance tags log a structured logger with an election instance's
// correlation id and its logicalclock at the time of tagging.
func WithInstance(log *zap.SugaredLogger, instanceId string, logicalClock message.ElectionEpoch) *zap.SugaredLogger {
	return log.With("electionInstance", instanceId, "logicalclock", logicalClock)
}
