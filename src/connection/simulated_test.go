package connection

import (
	"testing"
	"time"

	"github.com/quorumwire/fle-election/src/message"
)

func TestSendDeliversToTarget(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2}, time.Millisecond)
	a := net.Peer(1)
	b := net.Peer(2)

	a.Send(2, []byte("hello"))

	frame, ok := b.PollRecvQueue(200 * time.Millisecond)
	if !ok {
		t.Fatalf("expected frame to be delivered")
	}
	if frame.Sid != 1 || string(frame.Frame) != "hello" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestPollRecvQueueTimesOutWhenEmpty(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2}, 0)
	b := net.Peer(2)

	_, ok := b.PollRecvQueue(20 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout with no traffic")
	}
}

func TestSplitsBlockCrossGroupDelivery(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2, 3}, time.Millisecond)
	net.SetSplits([][]message.ServerId{{1}, {2, 3}})

	a := net.Peer(1)
	c := net.Peer(3)

	a.Send(3, []byte("cross-partition"))

	_, ok := c.PollRecvQueue(50 * time.Millisecond)
	if ok {
		t.Fatalf("expected the partition to drop cross-group traffic")
	}

	net.SetSplits([][]message.ServerId{{1, 2, 3}})
	a.Send(3, []byte("healed"))
	frame, ok := c.PollRecvQueue(200 * time.Millisecond)
	if !ok || string(frame.Frame) != "healed" {
		t.Fatalf("expected delivery once the partition healed, got %+v ok=%v", frame, ok)
	}
}

func TestHaveDeliveredReflectsInFlightSends(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2}, 50*time.Millisecond)
	a := net.Peer(1)

	a.Send(2, []byte("slow"))
	if a.HaveDelivered() {
		t.Fatalf("expected a pending send to be in flight")
	}

	time.Sleep(150 * time.Millisecond)
	if !a.HaveDelivered() {
		t.Fatalf("expected the send to have completed by now")
	}
}

func TestHaltStopsOutboundTraffic(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2}, 0)
	a := net.Peer(1)
	b := net.Peer(2)

	a.Halt()
	if a.ConnectionThreadCount() != 0 {
		t.Fatalf("expected zero connection threads once halted")
	}

	a.Send(2, []byte("should not arrive"))
	_, ok := b.PollRecvQueue(20 * time.Millisecond)
	if ok {
		t.Fatalf("halted peer must not deliver frames")
	}
}

func TestConnectionThreadCountCountsOtherPeers(t *testing.T) {
	net := NewNetwork([]message.ServerId{1, 2, 3, 4}, 0)
	a := net.Peer(1)

	if got := a.ConnectionThreadCount(); got != 3 {
		t.Fatalf("expected 3 peer connections, got %d", got)
	}
}
