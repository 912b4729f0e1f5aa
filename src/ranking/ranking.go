// Package ranking implements the total order over candidate votes: the
// single tie-breaker used throughout the election loop.
package ranking

import (
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// Succeeds reports whether the candidate (newId, newZxid, newEpoch) should
// replace the current (curId, curZxid, curEpoch) under qv. A candidate with
// zero weight under qv can never succeed, regardless of its epoch/zxid/id —
// this is what keeps non-voters from ever winning an election.
func Succeeds(
	qv quorumverifier.QuorumVerifier,
	newId message.ServerId, newZxid message.Zxid, newEpoch message.PeerEpoch,
	curId message.ServerId, curZxid message.Zxid, curEpoch message.PeerEpoch,
) bool {
	if qv.Weight(newId) == 0 {
		return false
	}

	if newEpoch != curEpoch {
		return newEpoch > curEpoch
	}
	if newZxid != curZxid {
		return newZxid > curZxid
	}
	return newId > curId
}
