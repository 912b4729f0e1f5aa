package quorumverifier

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/quorumwire/fle-election/src/message"
)

func ackSet(ids ...message.ServerId) map[message.ServerId]struct{} {
	set := make(map[message.ServerId]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestWeightedContainsQuorum(t *testing.T) {
	qv := NewMajority(1, []message.ServerId{1, 2, 3})

	if qv.ContainsQuorum(ackSet(1)) {
		t.Fatalf("single ack out of three should not be a quorum")
	}
	if !qv.ContainsQuorum(ackSet(1, 2)) {
		t.Fatalf("two acks out of three should be a quorum")
	}
	if !qv.ContainsQuorum(ackSet(1, 2, 3)) {
		t.Fatalf("all acks should be a quorum")
	}
}

func TestWeightedUnequalWeights(t *testing.T) {
	qv := NewWeighted(1, map[message.ServerId]uint32{1: 3, 2: 1, 3: 1})

	if !qv.ContainsQuorum(ackSet(1)) {
		t.Fatalf("heavy voter alone should already hold a quorum (3 of 5)")
	}
	if qv.ContainsQuorum(ackSet(2, 3)) {
		t.Fatalf("two light voters (2 of 5) should not hold a quorum")
	}
}

func TestWeightedStringRoundTrip(t *testing.T) {
	qv := NewWeighted(7, map[message.ServerId]uint32{1: 1, 2: 2, 3: 1})

	parsed, err := ParseConfig(qv.String())
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if diff := deep.Equal(parsed.(*Weighted).weights, qv.weights); diff != nil {
		t.Fatalf("round-tripped weights differ: %v", diff)
	}
	if parsed.Version() != qv.Version() {
		t.Fatalf("expected version %d, got %d", qv.Version(), parsed.Version())
	}
	if !parsed.Equal(qv) {
		t.Fatalf("expected round-tripped verifier to equal original")
	}
}

func TestOracleMajorityNeedOracleOnlyForTwoVoters(t *testing.T) {
	two := NewOracleMajority(1, map[message.ServerId]uint32{1: 1, 2: 1}, nil)
	three := NewOracleMajority(1, map[message.ServerId]uint32{1: 1, 2: 1, 3: 1}, nil)

	if !two.NeedOracle() {
		t.Fatalf("two-voter ensemble should need the oracle")
	}
	if three.NeedOracle() {
		t.Fatalf("three-voter ensemble should not need the oracle")
	}
}

type fakeOracle struct{ grant bool }

func (f fakeOracle) AskOracle() bool { return f.grant }

func TestOracleMajorityAskOracleDelegates(t *testing.T) {
	granting := NewOracleMajority(1, map[message.ServerId]uint32{1: 1, 2: 1}, fakeOracle{grant: true})
	denying := NewOracleMajority(1, map[message.ServerId]uint32{1: 1, 2: 1}, fakeOracle{grant: false})

	if !granting.AskOracle() {
		t.Fatalf("expected oracle grant to be surfaced")
	}
	if denying.AskOracle() {
		t.Fatalf("expected oracle denial to be surfaced")
	}
}

func TestRevalidateVotesetDropsUnknownMembers(t *testing.T) {
	qv := NewMajority(1, []message.ServerId{1, 2, 3})
	valid := qv.RevalidateVoteset(ackSet(1, 2, 99))

	if diff := deep.Equal(valid, ackSet(1, 2)); diff != nil {
		t.Fatalf("unexpected revalidated set: %v", diff)
	}
}

func TestWeightOfNonVoterIsZero(t *testing.T) {
	qv := NewMajority(1, []message.ServerId{1, 2, 3})
	if qv.Weight(42) != 0 {
		t.Fatalf("expected weight 0 for non-voter")
	}
}
