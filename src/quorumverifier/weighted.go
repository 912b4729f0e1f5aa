package quorumverifier

import (
	"fmt"
	"strings"

	"github.com/quorumwire/fle-election/src/message"
)

// Weighted is a quorum verifier where a set of acks constitutes a majority
// iff the sum of their weights exceeds half of the total configured weight.
// A plain (unweighted) majority verifier is a Weighted verifier where every
// member has weight 1 — this is how NewMajority is built below.
type Weighted struct {
	version int64
	weights map[message.ServerId]uint32
	total   uint32
}

// NewWeighted builds a Weighted verifier for the given per-server weights.
func NewWeighted(version int64, weights map[message.ServerId]uint32) *Weighted {
	w := &Weighted{version: version, weights: make(map[message.ServerId]uint32, len(weights))}
	for sid, weight := range weights {
		w.weights[sid] = weight
		w.total += weight
	}
	return w
}

// NewMajority builds a Weighted verifier where every listed sid has weight 1
// — the common, unweighted-majority case.
func NewMajority(version int64, sids []message.ServerId) *Weighted {
	weights := make(map[message.ServerId]uint32, len(sids))
	for _, sid := range sids {
		weights[sid] = 1
	}
	return NewWeighted(version, weights)
}

func (w *Weighted) VotingMembers() map[message.ServerId]struct{} {
	members := make(map[message.ServerId]struct{}, len(w.weights))
	for sid := range w.weights {
		members[sid] = struct{}{}
	}
	return members
}

func (w *Weighted) Weight(sid message.ServerId) uint32 {
	return w.weights[sid]
}

func (w *Weighted) ContainsQuorum(ackSet map[message.ServerId]struct{}) bool {
	var sum uint32
	for sid := range ackSet {
		sum += w.weights[sid]
	}
	return 2*sum > w.total
}

func (w *Weighted) Version() int64 { return w.version }

func (w *Weighted) NeedOracle() bool { return false }

func (w *Weighted) AskOracle() bool { return false }

func (w *Weighted) RevalidateVoteset(ackSet map[message.ServerId]struct{}) map[message.ServerId]struct{} {
	valid := make(map[message.ServerId]struct{}, len(ackSet))
	for sid := range ackSet {
		if _, ok := w.weights[sid]; ok {
			valid[sid] = struct{}{}
		}
	}
	return valid
}

func (w *Weighted) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version=%d;", w.version)
	ids := sortedIds(w.weights)
	for i, sid := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d=%d", sid, w.weights[sid])
	}
	return b.String()
}

func (w *Weighted) Equal(other QuorumVerifier) bool {
	o, ok := other.(*Weighted)
	if !ok {
		return false
	}
	if w.version != o.version || len(w.weights) != len(o.weights) {
		return false
	}
	for sid, weight := range w.weights {
		if o.weights[sid] != weight {
			return false
		}
	}
	return true
}
