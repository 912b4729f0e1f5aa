// Package messenger implements the two I/O worker tasks: a sender draining
// the outbound queue through the wire codec to the connection manager, and
// a receiver doing the inverse plus the fast-path replies and
// reconfiguration handling. Both follow a poll-with-timeout-until-stopped
// shape.
package messenger

import (
	"time"

	"github.com/quorumwire/fle-election/src/connection"
	"github.com/quorumwire/fle-election/src/queue"
	"github.com/quorumwire/fle-election/src/wire"
)

const workerPollTimeout = 3 * time.Second

// Sender is the long-running task draining a peer's outbound frames.
type Sender struct {
	sendQueue *queue.Queue[wire.ToSend]
	conn      connection.Manager
	stop      chan struct{}
}

// NewSender wires a sender worker over sendQueue and conn.
func NewSender(sendQueue *queue.Queue[wire.ToSend], conn connection.Manager) *Sender {
	return &Sender{sendQueue: sendQueue, conn: conn, stop: make(chan struct{})}
}

// Run polls sendQueue with a 3-second timeout, encoding and handing each
// dequeued message to the connection manager, until Stop is called.
// Errors from the connection manager are never surfaced.
func (s *Sender) Run() {
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		toSend, ok := s.sendQueue.Take(workerPollTimeout)
		if !ok {
			continue
		}

		frame := wire.Encode(toSend)
		s.conn.Send(toSend.Target, frame)
	}
}

// Stop halts the worker by closing its stop channel. It is not idempotent:
// a second call panics, so callers should only call it once.
func (s *Sender) Stop() {
	close(s.stop)
}
