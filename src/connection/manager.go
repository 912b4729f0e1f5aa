// Package connection defines the point-to-point delivery contract used by
// the election core, and provides a simulated in-memory implementation used
// by tests and the CLI demo. The byte-level transport that actually opens
// TCP sockets is explicitly out of scope; this package
// only ships the boundary and a stand-in good enough to run the election
// core end to end.
package connection

import (
	"time"

	"github.com/quorumwire/fle-election/src/message"
)

// InboundFrame pairs a raw frame with the sid that sent it, as delivered by
// PollRecvQueue.
type InboundFrame struct {
	Sid   message.ServerId
	Frame []byte
}

// Manager is the external connection-manager contract the election core is
// built against.
type Manager interface {
	// Send delivers frame to targetSid on a best-effort basis; it may be
	// dropped silently (TransportError is swallowed).
	Send(targetSid message.ServerId, frame []byte)
	// PollRecvQueue blocks up to timeout for the next inbound frame.
	PollRecvQueue(timeout time.Duration) (InboundFrame, bool)
	// HaveDelivered reports whether every per-peer outbound queue is empty.
	HaveDelivered() bool
	// ConnectAll kicks off reconnection attempts to every known voter.
	ConnectAll()
	// Halt stops all connection threads. Idempotent.
	Halt()
	// ConnectionThreadCount reports how many peer connection threads are
	// currently active (diagnostic only).
	ConnectionThreadCount() int
}
