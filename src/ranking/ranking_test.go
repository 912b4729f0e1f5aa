package ranking

import (
	"math/rand"
	"testing"

	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

func TestZeroWeightNeverSucceeds(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})

	if Succeeds(qv, 99, 0x100, 5, 1, 0x0, 0) {
		t.Fatalf("a non-voter candidate must never succeed")
	}
}

func TestEpochDominates(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})

	if !Succeeds(qv, 1, 0x0, 5, 2, 0xFFFF, 4) {
		t.Fatalf("higher epoch should win even with a lower zxid and id")
	}
}

func TestZxidBreaksEpochTie(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})

	if !Succeeds(qv, 1, 0x200, 5, 3, 0x100, 5) {
		t.Fatalf("higher zxid should win an epoch tie even with a lower id")
	}
}

func TestZxidPrecedenceOverServerId(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})

	// peer 1 has zxid 0x200, peer 3 has zxid 0x100: 1 should beat 3.
	if !Succeeds(qv, 1, 0x200, 1, 3, 0x100, 1) {
		t.Fatalf("expected peer 1 (higher zxid) to succeed over peer 3")
	}
	if Succeeds(qv, 3, 0x100, 1, 1, 0x200, 1) {
		t.Fatalf("peer 3 (lower zxid) must not succeed over peer 1")
	}
}

func TestServerIdBreaksFullTie(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})

	if !Succeeds(qv, 3, 0x100, 1, 1, 0x100, 1) {
		t.Fatalf("expected higher server id to break a full tie")
	}
}

func TestStrictTotalOrder(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3, 4, 5})

	type candidate struct {
		id    message.ServerId
		zxid  message.Zxid
		epoch message.PeerEpoch
	}

	rng := rand.New(rand.NewSource(1))
	candidates := make([]candidate, 40)
	for i := range candidates {
		candidates[i] = candidate{
			id:    message.ServerId(1 + rng.Intn(5)),
			zxid:  message.Zxid(rng.Intn(20)),
			epoch: message.PeerEpoch(rng.Intn(5)),
		}
	}

	succeeds := func(a, b candidate) bool {
		return Succeeds(qv, a.id, a.zxid, a.epoch, b.id, b.zxid, b.epoch)
	}

	for _, a := range candidates {
		// irreflexive
		if succeeds(a, a) {
			t.Fatalf("candidate %+v must not succeed over itself", a)
		}

		for _, b := range candidates {
			// antisymmetric (unless equal on the ranked tuple, e.g. same id)
			if succeeds(a, b) && succeeds(b, a) {
				t.Fatalf("%+v and %+v both succeed over each other", a, b)
			}

			for _, c := range candidates {
				// transitive
				if succeeds(a, b) && succeeds(b, c) && !succeeds(a, c) {
					t.Fatalf("transitivity violated: %+v > %+v > %+v but not %+v > %+v", a, b, c, a, c)
				}
			}
		}
	}
}
