// Package peer defines the peer-facade contract: the slice of a peer's
// broader lifecycle state (data store, transaction log, role) that the
// election core needs to read and occasionally write. The broader lifecycle
// itself - snapshotting, follower sync - is out of scope; only the facade
// surface is implemented here, in the shape of an accessor-based
// PersistentState/VolatileState split.
package peer

import (
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// LearnerType distinguishes a full voting participant from an observer that
// never contributes to a quorum tally.
type LearnerType int32

const (
	Participant LearnerType = iota
	Observer
)

// Leader is the minimal surface the receiver worker needs once self has
// become the elected leader: it remembers which LOOKING peers have already
// discovered the result, and receives the vote set behind the win.
type Leader interface {
	ReportLookingSid(sid message.ServerId)
	SetVoteSet(voteSet map[message.ServerId]message.Vote)
}

// Facade is the peer-facade contract the election core is built against.
type Facade interface {
	Id() message.ServerId

	PeerState() message.ServerState
	SetPeerState(state message.ServerState)

	LearnerType() LearnerType

	// CurrentEpoch reads the last leader epoch this peer acknowledged. A
	// non-nil error is an EpochReadFailure and is fatal
	// to the caller's election attempt.
	CurrentEpoch() (message.PeerEpoch, error)
	LastLoggedZxid() message.Zxid

	QuorumVerifier() quorumverifier.QuorumVerifier
	LastSeenQuorumVerifier() quorumverifier.QuorumVerifier
	// SetLastSeenQuorumVerifier records a higher-version verifier observed
	// while self is not LOOKING, to be applied on the next election instance.
	SetLastSeenQuorumVerifier(qv quorumverifier.QuorumVerifier)

	// CurrentAndNextConfigVoters is the broadcast fan-out set: every sid in
	// the current quorum verifier, plus the next one's if a reconfiguration
	// is in flight.
	CurrentAndNextConfigVoters() []message.ServerId

	CurrentVote() message.Vote
	SetCurrentVote(vote message.Vote)

	// ProcessReconfig atomically swaps in a newly-seen quorum verifier and
	// records it as lastSeenQuorumVerifier.
	ProcessReconfig(qv quorumverifier.QuorumVerifier) error
	ConfigFromString(s string) (quorumverifier.QuorumVerifier, error)

	// Leader returns the leader-only facade once self has finalized as
	// LEADING, and false otherwise.
	Leader() (Leader, bool)
}
