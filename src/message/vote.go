// Package message defines the wire-agnostic election vocabulary: server
// identity, transaction ids, epochs, and the Vote a peer proposes or
// commits to.
package message

import "fmt"

// ServerId identifies a configured peer. NoVote is used by observers and by
// any peer that is not itself eligible to be elected.
type ServerId int64

// NoVote is the sentinel meaning "no vote" / "not a candidate".
const NoVote ServerId = -1 << 63

// Zxid is an opaque transaction id. Its high 32 bits are the epoch of the
// leader that issued it, the low 32 bits a per-epoch counter. NoHistory
// means the peer has no logged transaction.
type Zxid int64

// NoHistory means "no history" for a Zxid.
const NoHistory Zxid = -1

// Epoch extracts the high 32 bits of a Zxid, interpreted as the epoch of the
// leader that produced it.
func (z Zxid) Epoch() PeerEpoch {
	return PeerEpoch(uint64(z) >> 32)
}

// PeerEpoch is the epoch of the last leader a peer has acknowledged.
type PeerEpoch int64

// NoEpoch is used when a peer (e.g. an observer, or one with no history) has
// no epoch to report.
const NoEpoch PeerEpoch = -1 << 63

// ElectionEpoch is a peer-local counter distinguishing successive election
// instances, commonly called "logicalclock".
type ElectionEpoch int64

// ServerState is the role a peer believes it, or another peer, is in.
type ServerState int32

const (
	Looking ServerState = iota
	Following
	Leading
	Observing
)

func (s ServerState) String() string {
	switch s {
	case Looking:
		return "LOOKING"
	case Following:
		return "FOLLOWING"
	case Leading:
		return "LEADING"
	case Observing:
		return "OBSERVING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

// ServerStateFromWire maps the wire-level rstate (0..3) to a ServerState.
// The bool is false for any value outside that range.
func ServerStateFromWire(rstate int32) (ServerState, bool) {
	switch rstate {
	case int32(Looking), int32(Following), int32(Leading), int32(Observing):
		return ServerState(rstate), true
	default:
		return Looking, false
	}
}

// Vote is a peer's candidate proposal, or its committed election result.
type Vote struct {
	Version       int32
	Leader        ServerId
	Zxid          Zxid
	ElectionEpoch ElectionEpoch
	PeerEpoch     PeerEpoch
	State         ServerState
}

// Equal implements tally equality: State is ignored.
func (v Vote) Equal(other Vote) bool {
	return v.Leader == other.Leader &&
		v.Zxid == other.Zxid &&
		v.PeerEpoch == other.PeerEpoch &&
		v.ElectionEpoch == other.ElectionEpoch
}

func (v Vote) String() string {
	return fmt.Sprintf("Vote{leader=%d zxid=%#x electionEpoch=%d peerEpoch=%d state=%s}",
		v.Leader, uint64(v.Zxid), v.ElectionEpoch, v.PeerEpoch, v.State)
}
