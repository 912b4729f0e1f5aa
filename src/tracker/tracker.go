// Package tracker implements vote-tally bookkeeping: accumulating
// acknowledgements toward one or two quorum verifiers (the second appears
// mid-reconfiguration), and the checkLeader safety check that keeps a
// crashed peer's stale LEADING claim from being re-elected.
package tracker

import (
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// VoteTracker accumulates acks against one or two quorum verifiers.
type VoteTracker struct {
	verifiers []quorumverifier.QuorumVerifier
	acks      map[message.ServerId]struct{}
}

// New builds a tracker for current, and additionally for next if it is
// non-nil (a reconfiguration in progress),.
func New(current quorumverifier.QuorumVerifier, next quorumverifier.QuorumVerifier) *VoteTracker {
	verifiers := []quorumverifier.QuorumVerifier{current}
	if next != nil {
		verifiers = append(verifiers, next)
	}
	return &VoteTracker{verifiers: verifiers, acks: make(map[message.ServerId]struct{})}
}

// AddAck records that sid has acknowledged the tracked candidate.
func (t *VoteTracker) AddAck(sid message.ServerId) {
	t.acks[sid] = struct{}{}
}

// HasAllQuorums reports whether every registered verifier sees a quorum in
// the accumulated ack set.
func (t *VoteTracker) HasAllQuorums() bool {
	for _, qv := range t.verifiers {
		if !qv.ContainsQuorum(t.acks) {
			return false
		}
	}
	return true
}

// FromVotes builds a fresh tracker for target and adds acks from exactly
// the sids whose stored vote equals target under tally equality
// (Vote.Equal, which ignores State).
func FromVotes(
	current quorumverifier.QuorumVerifier, next quorumverifier.QuorumVerifier,
	votes map[message.ServerId]message.Vote, target message.Vote,
) *VoteTracker {
	t := New(current, next)
	for sid, vote := range votes {
		if vote.Equal(target) {
			t.AddAck(sid)
		}
	}
	return t
}

// CheckLeader reports whether the claimed leader can safely be trusted:
// true iff self is the claimed leader and still in the same election
// instance, or some other peer's recorded vote shows it actively LEADING.
func CheckLeader(
	votes map[message.ServerId]message.Vote,
	self message.ServerId, logicalClock message.ElectionEpoch,
	leader message.ServerId, electionEpoch message.ElectionEpoch,
) bool {
	if leader == self {
		return logicalClock == electionEpoch
	}

	vote, ok := votes[leader]
	return ok && vote.State == message.Leading
}
