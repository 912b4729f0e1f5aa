// Package quorumverifier implements the pluggable quorum contract:
// membership, per-server weight, and containment of a weighted majority,
// plus the oracle tie-breaker variant used by two-node ensembles.
package quorumverifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quorumwire/fle-election/src/message"
)

// QuorumVerifier is the external contract the election core is built
// against. A concrete verifier is one tagged variant (majority, weighted,
// oracle majority); callers only ever depend on this interface.
type QuorumVerifier interface {
	// VotingMembers returns the set of server ids allowed to cast a ballot.
	VotingMembers() map[message.ServerId]struct{}
	// Weight returns the voting weight of sid, or 0 if sid is not a voter.
	Weight(sid message.ServerId) uint32
	// ContainsQuorum reports whether ackSet forms a weighted majority.
	ContainsQuorum(ackSet map[message.ServerId]struct{}) bool
	// Version identifies the configuration generation; a higher version
	// seen on the wire triggers reconfiguration handling.
	Version() int64
	// NeedOracle reports whether this verifier requires an oracle
	// tie-breaker to make progress (true for two-voter ensembles under the
	// oracle-majority variant).
	NeedOracle() bool
	// AskOracle consults the oracle. Its return value's polarity is
	// inverted in the election loop's LEADING branch: finalization proceeds
	// when the oracle says no, since a live oracle answering yes means the
	// other candidate should still be preferred.
	AskOracle() bool
	// RevalidateVoteset filters ackSet down to the members this verifier
	// still recognizes as voters, e.g. after a reconfiguration.
	RevalidateVoteset(ackSet map[message.ServerId]struct{}) map[message.ServerId]struct{}
	// String serializes the verifier for embedding in a wire frame.
	String() string
	// Equal reports whether two verifiers describe the same configuration,
	// used by the receiver worker to decide whether a reconfiguration
	// actually changed anything.
	Equal(other QuorumVerifier) bool
}

// ParseFunc constructs a QuorumVerifier from its wire string form, as
// produced by String(). Kept as a package variable (rather than a bare
// function) so tests can substitute a fake without a build tag.
var ParseFunc = ParseConfig

// ParseConfig decodes the "version=N;sid=weight,sid=weight,..." format
// produced by Weighted.String() (and by Majority, whose weights are all 1).
// Oracle-majority ensembles cannot be reconstructed purely from the wire -
// the oracle endpoint is local operator configuration, never serialized -
// so ParseConfig always yields a plain Weighted verifier, sufficient for
// the receiver's job of comparing versions and membership. See DESIGN.md
// for the tradeoff this implies.
func ParseConfig(s string) (QuorumVerifier, error) {
	parts := strings.Split(s, ";")
	if len(parts) == 0 {
		return nil, fmt.Errorf("quorumverifier: empty config")
	}

	versionPart := strings.TrimPrefix(parts[0], "version=")
	if versionPart == parts[0] {
		return nil, fmt.Errorf("quorumverifier: missing version prefix in %q", s)
	}
	version, err := strconv.ParseInt(versionPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quorumverifier: bad version in %q: %w", s, err)
	}

	weights := make(map[message.ServerId]uint32)
	if len(parts) > 1 && parts[1] != "" {
		for _, entry := range strings.Split(parts[1], ",") {
			kv := strings.SplitN(entry, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("quorumverifier: bad member entry %q in %q", entry, s)
			}
			sid, err := strconv.ParseInt(kv[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("quorumverifier: bad sid in %q: %w", entry, err)
			}
			weight, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("quorumverifier: bad weight in %q: %w", entry, err)
			}
			weights[message.ServerId(sid)] = uint32(weight)
		}
	}

	return NewWeighted(version, weights), nil
}

func sortedIds(members map[message.ServerId]uint32) []message.ServerId {
	ids := make([]message.ServerId, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
