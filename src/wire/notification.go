// Package wire implements the on-wire notification codec: three
// backward-compatible frame layouts sharing one decoder, and a single
// always-versioned encoder.
package wire

import (
	"errors"

	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// CurrentVersion is the version byte this codec always emits on encode.
const CurrentVersion = 0x2

// Frame byte counts for the three variants. Note that the
// "classic" 40-byte frame is the 36-byte core (state, leader, zxid,
// electionEpoch, peerEpoch) plus 4 trailing bytes the decoder does not need
// to interpret; the versioned header instead follows the core with an
// explicit version and configLen, for 44 bytes before any config payload.
const (
	legacyFrameSize     = 28
	coreFieldsSize      = 36
	classicFrameSize    = 40
	versionedHeaderSize = coreFieldsSize + 8 // + version(i32) + configLen(i32)
)

// ErrMalformedFrame is returned for frames the decoder cannot safely parse:
// too short, a negative/overlong embedded config length, or a truncated
// read. Callers must log and drop, never propagate.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Notification is the decoded form of an inbound message, plus the sender's
// identity and (optionally) the quorum-verifier snapshot it carried.
type Notification struct {
	Vote message.Vote
	Sid  message.ServerId
	Qv   quorumverifier.QuorumVerifier // nil if the frame carried no config

	// ConfigParseErr is set when the frame embedded config bytes that failed
	// to parse. The notification is still otherwise valid; callers should
	// log this and proceed with Qv == nil.
	ConfigParseErr error
}

// ToSend is an outbound notification queued by the election loop for the
// sender worker to serialize and hand to the connection manager.
type ToSend struct {
	Target        message.ServerId
	Leader        message.ServerId
	Zxid          message.Zxid
	ElectionEpoch message.ElectionEpoch
	PeerEpoch     message.PeerEpoch
	State         message.ServerState
	// ConfigBytes is the UTF-8 serialization of the sender's current quorum
	// configuration, embedded verbatim in the Versioned frame (may be empty).
	ConfigBytes []byte
}
