package peer

import (
	"errors"
	"testing"

	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

func TestSetPeerStateLeavingLeadingClearsLeader(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})
	p := NewSimplePeer(1, Participant, qv, PersistentState{})

	p.BecomeLeader()
	if _, ok := p.Leader(); !ok {
		t.Fatalf("expected a leader facade after BecomeLeader")
	}

	p.SetPeerState(message.Following)
	if _, ok := p.Leader(); ok {
		t.Fatalf("expected leader facade to be cleared on leaving LEADING")
	}
}

func TestCurrentEpochSurfacesInjectedFailure(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1})
	p := NewSimplePeer(1, Participant, qv, PersistentState{CurrentEpoch: 3})

	if _, err := p.CurrentEpoch(); err != nil {
		t.Fatalf("expected no error before injection, got %v", err)
	}

	wantErr := errors.New("disk unavailable")
	p.SetEpochReadFailure(wantErr)
	if _, err := p.CurrentEpoch(); !errors.Is(err, wantErr) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestCurrentAndNextConfigVotersMergesBothVerifiers(t *testing.T) {
	current := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})
	p := NewSimplePeer(1, Participant, current, PersistentState{})

	next := quorumverifier.NewMajority(2, []message.ServerId{2, 3, 4, 5})
	p.nextQv = next

	got := p.CurrentAndNextConfigVoters()
	want := map[message.ServerId]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d distinct voters, got %v", len(want), got)
	}
	for _, sid := range got {
		if !want[sid] {
			t.Fatalf("unexpected sid %d in voter list", sid)
		}
	}
}

func TestProcessReconfigRejectsNil(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1})
	p := NewSimplePeer(1, Participant, qv, PersistentState{})

	if err := p.ProcessReconfig(nil); err == nil {
		t.Fatalf("expected an error reconfiguring to a nil verifier")
	}
}

func TestConfigFromStringDelegatesToParseConfig(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1})
	p := NewSimplePeer(1, Participant, qv, PersistentState{})

	parsed, err := p.ConfigFromString("version=2;1=1,2=1,3=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Version() != 2 {
		t.Fatalf("expected version 2, got %d", parsed.Version())
	}
}
