package peer

import (
	"fmt"
	"sync"

	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// PersistentState is the subset of a peer's on-disk state the election core
// reads: fields survive process restart and are supplied at construction
// rather than mutated by the election core itself.
type PersistentState struct {
	CurrentEpoch   message.PeerEpoch
	LastLoggedZxid message.Zxid
}

// VolatileState holds the peer's current role and committed vote. It is
// mutated in place by SetPeerState and SetCurrentVote and is never reset
// automatically.
type VolatileState struct {
	ServerState message.ServerState
	CurrentVote message.Vote
}

// SimplePeer is an in-memory Facade implementation good enough to drive the
// election core in tests and the CLI demo. It has no transaction log or data
// store of its own; PersistentState is supplied at construction and has no
// setter, so it stays fixed for the SimplePeer's lifetime.
type SimplePeer struct {
	mu sync.RWMutex

	id          message.ServerId
	learnerType LearnerType

	persistent PersistentState
	volatile   VolatileState

	epochReadErr error

	qv         quorumverifier.QuorumVerifier
	nextQv     quorumverifier.QuorumVerifier
	lastSeenQv quorumverifier.QuorumVerifier

	leader *simpleLeader
}

// NewSimplePeer constructs a facade for id, backed by qv as the initial
// quorum verifier.
func NewSimplePeer(id message.ServerId, learnerType LearnerType, qv quorumverifier.QuorumVerifier, persistent PersistentState) *SimplePeer {
	return &SimplePeer{
		id:          id,
		learnerType: learnerType,
		persistent:  persistent,
		volatile:    VolatileState{ServerState: message.Looking},
		qv:          qv,
	}
}

func (p *SimplePeer) Id() message.ServerId { return p.id }

func (p *SimplePeer) PeerState() message.ServerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volatile.ServerState
}

func (p *SimplePeer) SetPeerState(state message.ServerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volatile.ServerState = state
	if state != message.Leading {
		p.leader = nil
	}
}

func (p *SimplePeer) LearnerType() LearnerType { return p.learnerType }

// SetEpochReadFailure arranges for every later CurrentEpoch call to fail with
// err, until it is called again with nil. Test-only knob.
func (p *SimplePeer) SetEpochReadFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epochReadErr = err
}

func (p *SimplePeer) CurrentEpoch() (message.PeerEpoch, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.epochReadErr != nil {
		return message.NoEpoch, p.epochReadErr
	}
	return p.persistent.CurrentEpoch, nil
}

func (p *SimplePeer) LastLoggedZxid() message.Zxid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.persistent.LastLoggedZxid
}

func (p *SimplePeer) QuorumVerifier() quorumverifier.QuorumVerifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.qv
}

func (p *SimplePeer) LastSeenQuorumVerifier() quorumverifier.QuorumVerifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastSeenQv != nil {
		return p.lastSeenQv
	}
	return p.qv
}

func (p *SimplePeer) SetLastSeenQuorumVerifier(qv quorumverifier.QuorumVerifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeenQv = qv
}

func (p *SimplePeer) CurrentAndNextConfigVoters() []message.ServerId {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[message.ServerId]struct{})
	voters := make([]message.ServerId, 0, len(p.qv.VotingMembers()))
	for sid := range p.qv.VotingMembers() {
		if _, ok := seen[sid]; !ok {
			seen[sid] = struct{}{}
			voters = append(voters, sid)
		}
	}
	if p.nextQv != nil {
		for sid := range p.nextQv.VotingMembers() {
			if _, ok := seen[sid]; !ok {
				seen[sid] = struct{}{}
				voters = append(voters, sid)
			}
		}
	}
	return voters
}

func (p *SimplePeer) CurrentVote() message.Vote {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volatile.CurrentVote
}

func (p *SimplePeer) SetCurrentVote(vote message.Vote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volatile.CurrentVote = vote
}

// ProcessReconfig applies qv as the peer's active quorum verifier. Per
// this open question, this is only ever called with the
// restart-on-difference policy already decided by the receiver worker.
func (p *SimplePeer) ProcessReconfig(qv quorumverifier.QuorumVerifier) error {
	if qv == nil {
		return fmt.Errorf("peer: cannot reconfigure to a nil quorum verifier")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.qv = qv
	p.nextQv = nil
	p.lastSeenQv = nil
	return nil
}

func (p *SimplePeer) ConfigFromString(s string) (quorumverifier.QuorumVerifier, error) {
	return quorumverifier.ParseConfig(s)
}

func (p *SimplePeer) Leader() (Leader, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.leader == nil {
		return nil, false
	}
	return p.leader, true
}

// BecomeLeader installs a fresh Leader facade, invoked by role handoff
// when self is elected.
func (p *SimplePeer) BecomeLeader() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leader = &simpleLeader{}
}

type simpleLeader struct {
	mu              sync.Mutex
	reportedLooking []message.ServerId
	voteSet         map[message.ServerId]message.Vote
}

func (l *simpleLeader) ReportLookingSid(sid message.ServerId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reportedLooking = append(l.reportedLooking, sid)
}

func (l *simpleLeader) SetVoteSet(voteSet map[message.ServerId]message.Vote) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voteSet = voteSet
}
