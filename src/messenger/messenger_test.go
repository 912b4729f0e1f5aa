package messenger

import (
	"testing"
	"time"

	"github.com/quorumwire/fle-election/src/connection"
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/peer"
	"github.com/quorumwire/fle-election/src/quorumverifier"
	"github.com/quorumwire/fle-election/src/queue"
	"github.com/quorumwire/fle-election/src/wire"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition never became true within %s", timeout)
}

func TestSenderEncodesAndSends(t *testing.T) {
	net := connection.NewNetwork([]message.ServerId{1, 2}, 0)
	sendQueue := queue.New[wire.ToSend]()

	sender := NewSender(sendQueue, net.Peer(1))
	go sender.Run()
	defer sender.Stop()

	sendQueue.Offer(wire.ToSend{Target: 2, Leader: 1, Zxid: 0x100, ElectionEpoch: 1, PeerEpoch: 1, State: message.Looking})

	inbound, ok := net.Peer(2).PollRecvQueue(2 * time.Second)
	if !ok {
		t.Fatalf("expected the sender to deliver a frame")
	}
	notif, err := wire.Decode(inbound.Sid, inbound.Frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if notif.Vote.Leader != 1 || notif.Vote.Zxid != 0x100 {
		t.Fatalf("unexpected decoded vote: %+v", notif.Vote)
	}
}

func TestReceiverRepliesToNonVoterWithoutEnqueueing(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2})
	facade := peer.NewSimplePeer(1, peer.Participant, qv, peer.PersistentState{})
	facade.SetCurrentVote(message.Vote{Leader: 1, Zxid: 0x100, ElectionEpoch: 3, PeerEpoch: 1, State: message.Leading})
	facade.SetPeerState(message.Leading)

	net := connection.NewNetwork([]message.ServerId{1, 99}, 0)
	recvQueue := queue.New[wire.Notification]()

	receiver := NewReceiver(net.Peer(1), recvQueue, facade, nil, nil)
	go receiver.Run()
	defer receiver.Stop()

	frame := wire.Encode(wire.ToSend{Target: 1, Leader: 99, ElectionEpoch: 1, State: message.Looking})
	net.Peer(99).Send(1, frame)

	inbound, ok := net.Peer(99).PollRecvQueue(2 * time.Second)
	if !ok {
		t.Fatalf("expected a reply to the non-voter")
	}
	reply, err := wire.Decode(inbound.Sid, inbound.Frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if reply.Vote.Leader != 1 || reply.Vote.State != message.Leading {
		t.Fatalf("expected the peer's current committed vote, got %+v", reply.Vote)
	}
	if recvQueue.Len() != 0 {
		t.Fatalf("non-voter traffic must never be enqueued")
	}
}

func TestReceiverEnqueuesValidVoterWhileLooking(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2})
	facade := peer.NewSimplePeer(1, peer.Participant, qv, peer.PersistentState{})
	facade.SetPeerState(message.Looking)

	net := connection.NewNetwork([]message.ServerId{1, 2}, 0)
	recvQueue := queue.New[wire.Notification]()

	receiver := NewReceiver(net.Peer(1), recvQueue, facade, nil, nil)
	go receiver.Run()
	defer receiver.Stop()

	frame := wire.Encode(wire.ToSend{Target: 1, Leader: 2, Zxid: 0x200, ElectionEpoch: 5, PeerEpoch: 1, State: message.Looking})
	net.Peer(2).Send(1, frame)

	waitFor(t, 2*time.Second, func() bool { return recvQueue.Len() == 1 })

	notif, ok := recvQueue.Take(time.Second)
	if !ok {
		t.Fatalf("expected the queued notification to be available")
	}
	if notif.Vote.Leader != 2 || notif.Sid != 2 {
		t.Fatalf("unexpected notification: %+v", notif)
	}
}

type fakeHost struct {
	logicalClock message.ElectionEpoch
	restarted    bool
}

func (h *fakeHost) GetLogicalClock() message.ElectionEpoch { return h.logicalClock }
func (h *fakeHost) RequestRestart()                        { h.restarted = true }

func TestReceiverRequestsRestartOnDifferingReconfiguration(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2, 3})
	facade := peer.NewSimplePeer(1, peer.Participant, qv, peer.PersistentState{})
	facade.SetPeerState(message.Looking)

	net := connection.NewNetwork([]message.ServerId{1, 2}, 0)
	recvQueue := queue.New[wire.Notification]()
	host := &fakeHost{}

	receiver := NewReceiver(net.Peer(1), recvQueue, facade, host, nil)
	done := make(chan struct{})
	go func() {
		receiver.Run()
		close(done)
	}()

	newQv := quorumverifier.NewMajority(2, []message.ServerId{1, 2, 3, 4})
	frame := wire.Encode(wire.ToSend{
		Target: 1, Leader: 2, ElectionEpoch: 1, State: message.Looking,
		ConfigBytes: []byte(newQv.String()),
	})
	net.Peer(2).Send(1, frame)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the receiver loop to terminate on reconfiguration")
	}

	if !host.restarted {
		t.Fatalf("expected RequestRestart to have been called")
	}
	if facade.QuorumVerifier().Version() != 2 {
		t.Fatalf("expected the new verifier to be applied, got version %d", facade.QuorumVerifier().Version())
	}
}

func TestObservingPeerRepliesWithoutElecting(t *testing.T) {
	qv := quorumverifier.NewMajority(1, []message.ServerId{1, 2})
	facade := peer.NewSimplePeer(3, peer.Observer, qv, peer.PersistentState{})
	facade.SetCurrentVote(message.Vote{Leader: 3, Zxid: message.NoHistory, State: message.Observing})
	facade.SetPeerState(message.Observing)

	net := connection.NewNetwork([]message.ServerId{1, 3}, 0)
	recvQueue := queue.New[wire.Notification]()

	receiver := NewReceiver(net.Peer(3), recvQueue, facade, nil, nil)
	go receiver.Run()
	defer receiver.Stop()

	frame := wire.Encode(wire.ToSend{Target: 3, Leader: 1, ElectionEpoch: 1, State: message.Looking})
	net.Peer(1).Send(3, frame)

	inbound, ok := net.Peer(1).PollRecvQueue(2 * time.Second)
	if !ok {
		t.Fatalf("expected the observer to reply")
	}
	reply, err := wire.Decode(inbound.Sid, inbound.Frame)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if reply.Vote.State != message.Observing {
		t.Fatalf("expected the observer's own state in the reply, got %+v", reply.Vote)
	}
	if recvQueue.Len() != 0 {
		t.Fatalf("an observer must never enqueue into recvqueue")
	}
}
