package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// Encode always produces the Versioned frame: the 36-byte core fields,
// followed by version=0x2 and the config length (a 44-byte header), then the
// config bytes (which may be empty but are never omitted).
//
// The layout is a fixed legacy binary format inherited from the wire
// protocol this module is compatible with; it is not a general-purpose
// serialization, so no third-party codec (protobuf, gob, msgpack) can
// produce these exact bytes — encoding/binary is the only tool that fits
// (see DESIGN.md).
func Encode(t ToSend) []byte {
	buf := make([]byte, versionedHeaderSize+len(t.ConfigBytes))
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(t.State)))
	binary.BigEndian.PutUint64(buf[4:12], uint64(t.Leader))
	binary.BigEndian.PutUint64(buf[12:20], uint64(t.Zxid))
	binary.BigEndian.PutUint64(buf[20:28], uint64(t.ElectionEpoch))
	binary.BigEndian.PutUint64(buf[28:36], uint64(t.PeerEpoch))
	binary.BigEndian.PutUint32(buf[36:40], uint32(CurrentVersion))
	binary.BigEndian.PutUint32(buf[40:44], uint32(len(t.ConfigBytes)))
	copy(buf[44:], t.ConfigBytes)
	return buf
}

// Decode parses an inbound frame into a Notification, dispatching on the
// byte count to pick a frame layout. It never returns a Notification for a
// frame shorter than the legacy 28-byte layout; callers must check
// `capacity < 28` themselves before calling if they want to distinguish
// "too short" from "malformed" in their own logging.
func Decode(sid message.ServerId, frame []byte) (*Notification, error) {
	n := len(frame)
	if n < legacyFrameSize {
		return nil, fmt.Errorf("%w: frame has %d bytes, need at least %d", ErrMalformedFrame, n, legacyFrameSize)
	}

	r := bytes.NewReader(frame)
	var state int32
	var leader, zxid, electionEpoch int64
	if err := binary.Read(r, binary.BigEndian, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := binary.Read(r, binary.BigEndian, &leader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := binary.Read(r, binary.BigEndian, &zxid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := binary.Read(r, binary.BigEndian, &electionEpoch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	vote := message.Vote{
		Leader:        message.ServerId(leader),
		Zxid:          message.Zxid(zxid),
		ElectionEpoch: message.ElectionEpoch(electionEpoch),
		State:         message.ServerState(state),
	}

	switch {
	case n == legacyFrameSize:
		vote.PeerEpoch = message.Zxid(zxid).Epoch()
		vote.Version = 0
		return &Notification{Vote: vote, Sid: sid}, nil

	case n == classicFrameSize:
		var peerEpoch int64
		if err := binary.Read(r, binary.BigEndian, &peerEpoch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		vote.PeerEpoch = message.PeerEpoch(peerEpoch)
		vote.Version = 0
		return &Notification{Vote: vote, Sid: sid}, nil

	case n > classicFrameSize:
		var peerEpoch int64
		if err := binary.Read(r, binary.BigEndian, &peerEpoch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		vote.PeerEpoch = message.PeerEpoch(peerEpoch)

		var version int32
		if err := binary.Read(r, binary.BigEndian, &version); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		vote.Version = version

		notif := &Notification{Vote: vote, Sid: sid}

		if version > 1 {
			var configLen int32
			if err := binary.Read(r, binary.BigEndian, &configLen); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
			}
			if configLen < 0 || int(configLen) > n {
				return nil, fmt.Errorf("%w: config length %d out of range for %d-byte frame", ErrMalformedFrame, configLen, n)
			}

			configBytes := make([]byte, configLen)
			if _, err := io.ReadFull(r, configBytes); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
			}

			if len(configBytes) > 0 {
				qv, err := quorumverifier.ParseFunc(string(configBytes))
				if err != nil {
					// ConfigParseError: log and continue without the config.
					// Surfaced via ConfigParseErr for the
					// caller to log; the notification itself is still valid.
					notif.ConfigParseErr = err
					return notif, nil
				}
				notif.Qv = qv
			}
		}

		return notif, nil

	default:
		return nil, fmt.Errorf("%w: frame has %d bytes", ErrMalformedFrame, n)
	}
}
