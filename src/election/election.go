package election

import (
	"context"
	"fmt"
	"sync"

	"github.com/quorumwire/fle-election/src/connection"
	"github.com/quorumwire/fle-election/src/logging"
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/messenger"
	"github.com/quorumwire/fle-election/src/peer"
	"github.com/quorumwire/fle-election/src/quorumverifier"
	"github.com/quorumwire/fle-election/src/queue"
	"github.com/quorumwire/fle-election/src/ranking"
	"github.com/quorumwire/fle-election/src/tracker"
	"github.com/quorumwire/fle-election/src/wire"
	"go.uber.org/zap"
)

// FastLeaderElection is the top-level election capability: it wires the
// send/receive queues, the sender/receiver workers, and the lookForLeader
// state machine into one object owned by a single peer for its lifetime.
type FastLeaderElection struct {
	cfg    Config
	facade peer.Facade
	conn   connection.Manager
	log    *zap.SugaredLogger

	sendQueue *queue.Queue[wire.ToSend]
	recvQueue *queue.Queue[wire.Notification]
	sender    *messenger.Sender
	receiver  *messenger.Receiver

	mu             sync.Mutex
	logicalClock   message.ElectionEpoch
	proposedLeader message.ServerId
	proposedZxid   message.Zxid
	proposedEpoch  message.PeerEpoch
	leadingVoteSet map[message.ServerId]message.Vote

	stopped          bool
	restartRequested bool
	stopOnce         sync.Once
}

// New constructs a FastLeaderElection bound to facade and conn, and starts
// its sender and receiver workers immediately - they live for the object's
// full lifetime. baseLog may be nil, in which case diagnostics are
// discarded.
func New(cfg Config, facade peer.Facade, conn connection.Manager, baseLog *zap.Logger) *FastLeaderElection {
	log := logging.NewStructured(baseLog, facade.Id())
	fle := &FastLeaderElection{
		cfg:       cfg.withDefaults(),
		facade:    facade,
		conn:      conn,
		log:       log,
		sendQueue: queue.New[wire.ToSend](),
		recvQueue: queue.New[wire.Notification](),
	}
	fle.sender = messenger.NewSender(fle.sendQueue, conn)
	fle.receiver = messenger.NewReceiver(conn, fle.recvQueue, facade, fle, log)

	go fle.sender.Run()
	go fle.receiver.Run()
	return fle
}

// GetLogicalClock implements messenger.ElectionHost.
func (f *FastLeaderElection) GetLogicalClock() message.ElectionEpoch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logicalClock
}

// GetVote returns the peer's currently committed vote, for observers that
// never enter LookForLeader themselves.
func (f *FastLeaderElection) GetVote() message.Vote {
	return f.facade.CurrentVote()
}

// RequestRestart implements messenger.ElectionHost: the receiver worker has
// applied a differing reconfiguration while LOOKING and wants this election
// instance abandoned. It shuts the object down exactly as an explicit
// Shutdown would; the host peer is expected to build a fresh
// FastLeaderElection and re-enter LookForLeader.
func (f *FastLeaderElection) RequestRestart() {
	f.mu.Lock()
	f.restartRequested = true
	f.mu.Unlock()
	f.shutdownLocked()
}

// Shutdown is idempotent: it halts the connection manager and both worker
// threads, and resets the instance's proposal sentinels.
func (f *FastLeaderElection) Shutdown() {
	f.shutdownLocked()
}

func (f *FastLeaderElection) shutdownLocked() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		f.proposedLeader = message.NoVote
		f.proposedZxid = message.NoHistory
		f.proposedEpoch = message.NoEpoch
		f.leadingVoteSet = nil
		f.mu.Unlock()

		f.recvQueue.Close()
		f.sender.Stop()
		f.receiver.Stop()
		f.conn.Halt()
	})
}

func (f *FastLeaderElection) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// LookForLeader runs one election instance to completion. It blocks until a
// leader is decided, the context is cancelled, or the object is shut down,
// and is re-entrant across successive election instances of the same object
// as long as Shutdown has not been called.
func (f *FastLeaderElection) LookForLeader(ctx context.Context) (vote *message.Vote, err error) {
	defer func() {
		if r := recover(); r != nil {
			// EpochReadFailure and any other panic escalate as a fatal
			// runtime error.
			f.log.Errorw("fatal error in lookForLeader", "err", r)
			vote, err = nil, fmt.Errorf("election: fatal error in lookForLeader: %v", r)
		}
	}()

	qv := f.facade.QuorumVerifier()

	initId := f.facade.Id()
	if f.facade.LearnerType() != peer.Participant {
		initId = message.NoVote
	}

	var initZxid message.Zxid
	var peerEpoch message.PeerEpoch
	if f.facade.LearnerType() == peer.Participant {
		initZxid = f.facade.LastLoggedZxid()
		epoch, epochErr := f.facade.CurrentEpoch()
		if epochErr != nil {
			panic(epochErr)
		}
		peerEpoch = epoch
	} else {
		initZxid = message.NoHistory
		peerEpoch = message.NoEpoch
	}

	f.mu.Lock()
	f.logicalClock++
	f.proposedLeader = initId
	f.proposedZxid = initZxid
	f.proposedEpoch = peerEpoch
	logicalClock := f.logicalClock
	instanceLog := logging.WithInstance(f.log, logging.InstanceId(), logicalClock)
	instanceLog.Infow("entering election instance", "initId", initId, "initZxid", initZxid, "peerEpoch", peerEpoch)
	f.mu.Unlock()

	recvset := make(map[message.ServerId]message.Vote)
	outofelection := make(map[message.ServerId]message.Vote)

	f.broadcast(qv, initId, initZxid, logicalClock, peerEpoch)

	notTimeout := f.cfg.MinNotificationInterval
	var lastTracker *tracker.VoteTracker

	for f.facade.PeerState() == message.Looking && !f.isStopped() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, ok := f.recvQueue.Take(notTimeout)
		if !ok {
			if f.isStopped() {
				return nil, nil
			}
			if f.conn.HaveDelivered() {
				f.mu.Lock()
				leader, zxid, epoch := f.proposedLeader, f.proposedZxid, f.proposedEpoch
				f.mu.Unlock()
				f.broadcast(qv, leader, zxid, logicalClock, epoch)
			} else {
				f.conn.ConnectAll()
			}

			notTimeout *= 2
			if notTimeout > f.cfg.MaxNotificationInterval {
				notTimeout = f.cfg.MaxNotificationInterval
			}

			if qv.NeedOracle() && lastTracker != nil && lastTracker.HasAllQuorums() && notTimeout != f.cfg.MinNotificationInterval {
				f.mu.Lock()
				leader, zxid, epoch := f.proposedLeader, f.proposedZxid, f.proposedEpoch
				f.mu.Unlock()
				return f.finalize(leader, zxid, logicalClock, epoch, nil)
			}
			continue
		}

		if !f.isValidVoter(n.Sid) || !f.isValidVoter(n.Vote.Leader) {
			f.log.Warnw("dropping notification from or about a non-voter", "sid", n.Sid, "leader", n.Vote.Leader)
			continue
		}

		switch n.Vote.State {
		case message.Looking:
			finalVote, finalErr, finalized := f.handleLooking(n, qv, initId, initZxid, peerEpoch, &logicalClock, recvset, &lastTracker)
			if finalized {
				return finalVote, finalErr
			}
		case message.Observing:
			// observers do not vote; ignore.
		case message.Following:
			v, finalized := f.receivedFollowingNotification(n, &logicalClock, recvset, outofelection)
			if finalized {
				return v, nil
			}
		case message.Leading:
			v, finalized := f.receivedFollowingNotification(n, &logicalClock, recvset, outofelection)
			if finalized {
				return v, nil
			}
			if qv.NeedOracle() && !qv.AskOracle() {
				f.setPeerState(n.Vote.Leader, outofelection)
				vote := f.finalizeVoteForLeader(n, logicalClock)
				f.leaveInstance()
				return vote, nil
			}
		}
	}

	return nil, nil
}

func (f *FastLeaderElection) isValidVoter(sid message.ServerId) bool {
	if sid == message.NoVote {
		return true
	}
	for _, voter := range f.facade.CurrentAndNextConfigVoters() {
		if voter == sid {
			return true
		}
	}
	return false
}

func (f *FastLeaderElection) broadcast(
	qv quorumverifier.QuorumVerifier, leader message.ServerId, zxid message.Zxid,
	electionEpoch message.ElectionEpoch, peerEpoch message.PeerEpoch,
) {
	var configBytes []byte
	if qv != nil {
		configBytes = []byte(qv.String())
	}
	for _, target := range f.facade.CurrentAndNextConfigVoters() {
		f.sendQueue.Offer(wire.ToSend{
			Target:        target,
			Leader:        leader,
			Zxid:          zxid,
			ElectionEpoch: electionEpoch,
			PeerEpoch:     peerEpoch,
			State:         message.Looking,
			ConfigBytes:   configBytes,
		})
	}
}

// handleLooking processes one notification received while self is LOOKING.
func (f *FastLeaderElection) handleLooking(
	n wire.Notification, qv quorumverifier.QuorumVerifier,
	initId message.ServerId, initZxid message.Zxid, peerEpoch message.PeerEpoch,
	logicalClock *message.ElectionEpoch,
	recvset map[message.ServerId]message.Vote, lastTracker **tracker.VoteTracker,
) (vote *message.Vote, err error, finalized bool) {
	if initZxid == message.NoHistory || n.Vote.Zxid == message.NoHistory {
		return nil, nil, false
	}

	f.mu.Lock()
	proposedLeader, proposedZxid, proposedEpoch := f.proposedLeader, f.proposedZxid, f.proposedEpoch
	f.mu.Unlock()

	switch {
	case n.Vote.ElectionEpoch > *logicalClock:
		*logicalClock = n.Vote.ElectionEpoch
		f.mu.Lock()
		f.logicalClock = *logicalClock
		f.mu.Unlock()
		for sid := range recvset {
			delete(recvset, sid)
		}

		if ranking.Succeeds(qv, n.Vote.Leader, n.Vote.Zxid, n.Vote.PeerEpoch, initId, initZxid, peerEpoch) {
			proposedLeader, proposedZxid, proposedEpoch = n.Vote.Leader, n.Vote.Zxid, n.Vote.PeerEpoch
		} else {
			proposedLeader, proposedZxid, proposedEpoch = initId, initZxid, peerEpoch
		}
		f.setProposal(proposedLeader, proposedZxid, proposedEpoch)
		f.broadcast(qv, proposedLeader, proposedZxid, *logicalClock, proposedEpoch)

	case n.Vote.ElectionEpoch < *logicalClock:
		return nil, nil, false

	default:
		if ranking.Succeeds(qv, n.Vote.Leader, n.Vote.Zxid, n.Vote.PeerEpoch, proposedLeader, proposedZxid, proposedEpoch) {
			proposedLeader, proposedZxid, proposedEpoch = n.Vote.Leader, n.Vote.Zxid, n.Vote.PeerEpoch
			f.setProposal(proposedLeader, proposedZxid, proposedEpoch)
			f.broadcast(qv, proposedLeader, proposedZxid, *logicalClock, proposedEpoch)
		}
	}

	recvset[n.Sid] = message.Vote{
		Leader: n.Vote.Leader, Zxid: n.Vote.Zxid,
		ElectionEpoch: n.Vote.ElectionEpoch, PeerEpoch: n.Vote.PeerEpoch,
	}

	target := message.Vote{Leader: proposedLeader, Zxid: proposedZxid, ElectionEpoch: *logicalClock, PeerEpoch: proposedEpoch}
	current := f.facade.QuorumVerifier()
	next := f.nextVerifier(current)
	t := tracker.FromVotes(current, next, recvset, target)
	*lastTracker = t

	if !t.HasAllQuorums() {
		return nil, nil, false
	}

	finalVote, finalErr, ok := f.terminationDrain(qv, proposedLeader, proposedZxid, *logicalClock, proposedEpoch)
	if !ok {
		// A better candidate arrived during the drain; it has been pushed
		// back to the front of recvqueue, so the outer loop picks it up.
		return nil, nil, false
	}
	return finalVote, finalErr, true
}

func (f *FastLeaderElection) setProposal(leader message.ServerId, zxid message.Zxid, epoch message.PeerEpoch) {
	f.mu.Lock()
	f.proposedLeader, f.proposedZxid, f.proposedEpoch = leader, zxid, epoch
	f.mu.Unlock()
}

func (f *FastLeaderElection) nextVerifier(current quorumverifier.QuorumVerifier) quorumverifier.QuorumVerifier {
	last := f.facade.LastSeenQuorumVerifier()
	if last != nil && current != nil && last.Version() > current.Version() {
		return last
	}
	return nil
}

// terminationDrain implements the drain loop within this
// termination step. ok is false if a better candidate preempted the drain.
func (f *FastLeaderElection) terminationDrain(
	qv quorumverifier.QuorumVerifier,
	proposedLeader message.ServerId, proposedZxid message.Zxid,
	logicalClock message.ElectionEpoch, proposedEpoch message.PeerEpoch,
) (vote *message.Vote, err error, ok bool) {
	for {
		n2, drained := f.recvQueue.Take(f.cfg.FinalizeWait)
		if !drained {
			break
		}
		if ranking.Succeeds(qv, n2.Vote.Leader, n2.Vote.Zxid, n2.Vote.PeerEpoch, proposedLeader, proposedZxid, proposedEpoch) {
			f.recvQueue.PushFront(n2)
			return nil, nil, false
		}
	}
	v, e := f.finalize(proposedLeader, proposedZxid, logicalClock, proposedEpoch, nil)
	return v, e, true
}

func (f *FastLeaderElection) finalize(
	leader message.ServerId, zxid message.Zxid, electionEpoch message.ElectionEpoch, peerEpoch message.PeerEpoch,
	voteSet map[message.ServerId]message.Vote,
) (*message.Vote, error) {
	f.setPeerState(leader, voteSet)
	vote := message.Vote{Leader: leader, Zxid: zxid, ElectionEpoch: electionEpoch, PeerEpoch: peerEpoch}
	f.facade.SetCurrentVote(vote)
	f.leaveInstance()
	return &vote, nil
}

func (f *FastLeaderElection) finalizeVoteForLeader(
	n wire.Notification, logicalClock message.ElectionEpoch,
) *message.Vote {
	vote := message.Vote{Leader: n.Vote.Leader, Zxid: n.Vote.Zxid, ElectionEpoch: logicalClock, PeerEpoch: n.Vote.PeerEpoch}
	f.facade.SetCurrentVote(vote)
	return &vote
}

// receivedFollowingNotification handles a notification from a peer that has
// already moved to FOLLOWING or LEADING, deciding whether the current
// instance should adopt its vote and finalize. Shared by the FOLLOWING and
// LEADING branches.
func (f *FastLeaderElection) receivedFollowingNotification(
	n wire.Notification, logicalClock *message.ElectionEpoch,
	recvset map[message.ServerId]message.Vote, outofelection map[message.ServerId]message.Vote,
) (*message.Vote, bool) {
	current := f.facade.QuorumVerifier()
	next := f.nextVerifier(current)

	if n.Vote.ElectionEpoch == *logicalClock {
		recvset[n.Sid] = n.Vote
		t := tracker.FromVotes(current, next, recvset, n.Vote)
		if t.HasAllQuorums() && tracker.CheckLeader(recvset, f.facade.Id(), *logicalClock, n.Vote.Leader, n.Vote.ElectionEpoch) {
			role := n.Vote.Leader
			v, _ := f.finalize(role, n.Vote.Zxid, *logicalClock, n.Vote.PeerEpoch, recvset)
			return v, true
		}
	}

	outofelection[n.Sid] = n.Vote
	t := tracker.FromVotes(current, next, outofelection, n.Vote)
	if t.HasAllQuorums() && tracker.CheckLeader(outofelection, f.facade.Id(), n.Vote.ElectionEpoch, n.Vote.Leader, n.Vote.ElectionEpoch) {
		*logicalClock = n.Vote.ElectionEpoch
		f.mu.Lock()
		f.logicalClock = *logicalClock
		f.mu.Unlock()
		v, _ := f.finalize(n.Vote.Leader, n.Vote.Zxid, *logicalClock, n.Vote.PeerEpoch, outofelection)
		return v, true
	}

	return nil, false
}

// setPeerState implements this role handoff.
func (f *FastLeaderElection) setPeerState(proposedLeader message.ServerId, voteSet map[message.ServerId]message.Vote) {
	if proposedLeader == f.facade.Id() {
		f.facade.SetPeerState(message.Leading)
		f.mu.Lock()
		f.leadingVoteSet = voteSet
		f.mu.Unlock()
		if sp, ok := f.facade.(interface{ BecomeLeader() }); ok {
			sp.BecomeLeader()
		}
		if leader, ok := f.facade.Leader(); ok {
			leader.SetVoteSet(voteSet)
		}
		return
	}

	if f.facade.LearnerType() == peer.Participant {
		f.facade.SetPeerState(message.Following)
	} else {
		f.facade.SetPeerState(message.Observing)
	}
}

// leaveInstance clears the receive queue on the way out of an election
// instance.
func (f *FastLeaderElection) leaveInstance() {
	f.recvQueue.Clear()
	f.log.Infow("leaving election instance", "vote", f.facade.CurrentVote())
}
