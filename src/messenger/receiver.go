package messenger

import (
	"github.com/quorumwire/fle-election/src/connection"
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/peer"
	"github.com/quorumwire/fle-election/src/queue"
	"github.com/quorumwire/fle-election/src/wire"
	"go.uber.org/zap"
)

// ElectionHost is the receiver worker's read-only window into the election
// loop it feeds: the receiver reads the live logicalclock to catch up
// lagging LOOKING peers, and can ask the loop to abandon its current
// instance on a reconfiguration. The election package's core implements
// this.
type ElectionHost interface {
	GetLogicalClock() message.ElectionEpoch
	RequestRestart()
}

// Receiver is the long-running task draining a peer's inbound frames.
type Receiver struct {
	conn      connection.Manager
	recvQueue *queue.Queue[wire.Notification]
	facade    peer.Facade
	host      ElectionHost
	log       *zap.SugaredLogger

	stop chan struct{}
}

// NewReceiver wires a receiver worker over conn, recvQueue, and facade.
// host may be nil in tests that never exercise reconfiguration or the
// lagging-peer catch-up path.
func NewReceiver(
	conn connection.Manager, recvQueue *queue.Queue[wire.Notification],
	facade peer.Facade, host ElectionHost, log *zap.SugaredLogger,
) *Receiver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Receiver{conn: conn, recvQueue: recvQueue, facade: facade, host: host, log: log, stop: make(chan struct{})}
}

// Run implements this frame-handling pipeline until Stop is
// called or a reconfiguration restart terminates the loop.
func (r *Receiver) Run() {
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		inbound, ok := r.conn.PollRecvQueue(workerPollTimeout)
		if !ok {
			continue
		}

		if len(inbound.Frame) < 28 {
			r.log.Warnw("dropping undersized frame", "sid", inbound.Sid, "size", len(inbound.Frame))
			continue
		}

		notif, err := wire.Decode(inbound.Sid, inbound.Frame)
		if err != nil {
			r.log.Warnw("dropping malformed frame", "sid", inbound.Sid, "err", err)
			continue
		}
		if notif.ConfigParseErr != nil {
			r.log.Warnw("ignoring unparsable embedded config", "sid", inbound.Sid, "err", notif.ConfigParseErr)
		}

		if r.handleReconfiguration(*notif) {
			return
		}

		if !r.isValidVoter(notif.Sid) {
			r.replyCurrentVote(notif.Sid)
			continue
		}

		state, ok := message.ServerStateFromWire(int32(notif.Vote.State))
		if !ok {
			r.log.Warnw("dropping frame with unknown server state", "sid", inbound.Sid)
			continue
		}
		notif.Vote.State = state

		selfState := r.facade.PeerState()
		if selfState == message.Looking {
			r.recvQueue.Offer(*notif)

			if state == message.Looking && notif.Vote.ElectionEpoch < r.currentElectionEpoch() {
				r.replyCurrentVote(notif.Sid)
			}
			continue
		}

		if state == message.Looking {
			r.replyCurrentVote(notif.Sid)
			if leader, isLeader := r.facade.Leader(); isLeader {
				leader.ReportLookingSid(notif.Sid)
			}
		}
	}
}

func (r *Receiver) currentElectionEpoch() message.ElectionEpoch {
	if r.host == nil {
		return r.facade.CurrentVote().ElectionEpoch
	}
	return r.host.GetLogicalClock()
}

func (r *Receiver) isValidVoter(sid message.ServerId) bool {
	for _, voter := range r.facade.CurrentAndNextConfigVoters() {
		if voter == sid {
			return true
		}
	}
	return false
}

func (r *Receiver) replyCurrentVote(target message.ServerId) {
	vote := r.facade.CurrentVote()
	qv := r.facade.QuorumVerifier()
	var configBytes []byte
	if qv != nil {
		configBytes = []byte(qv.String())
	}
	toSend := wire.ToSend{
		Target:        target,
		Leader:        vote.Leader,
		Zxid:          vote.Zxid,
		ElectionEpoch: vote.ElectionEpoch,
		PeerEpoch:     vote.PeerEpoch,
		State:         r.facade.PeerState(),
		ConfigBytes:   configBytes,
	}
	r.conn.Send(target, wire.Encode(toSend))
}

// handleReconfiguration applies a newly-seen quorum verifier. It returns
// true if the receiver loop must terminate (a restart was requested).
func (r *Receiver) handleReconfiguration(notif wire.Notification) bool {
	if notif.Qv == nil {
		return false
	}
	current := r.facade.QuorumVerifier()
	if current != nil && notif.Qv.Version() <= current.Version() {
		return false
	}

	if r.facade.PeerState() != message.Looking {
		r.facade.SetLastSeenQuorumVerifier(notif.Qv)
		return false
	}

	changed := current == nil || !current.Equal(notif.Qv)
	if err := r.facade.ProcessReconfig(notif.Qv); err != nil {
		r.log.Errorw("failed to apply reconfiguration", "err", err)
		return false
	}
	if !changed {
		return false
	}

	r.log.Infow("reconfiguration observed while LOOKING, requesting election restart", "newVersion", notif.Qv.Version())
	if r.host != nil {
		r.host.RequestRestart()
	}
	return true
}

// Stop halts the worker. Callers should only call it once.
func (r *Receiver) Stop() {
	close(r.stop)
}
