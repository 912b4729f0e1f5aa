package connection

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quorumwire/fle-election/src/message"
)

// Network is a shared in-memory fabric connecting a fixed set of peers:
// peers can be split into groups that can only reach members of their own
// group, and every link has a configurable latency. Peer returns the
// Manager view a single peer sees of this shared fabric.
type Network struct {
	mu       sync.Mutex
	latency  time.Duration
	splits   [][]message.ServerId
	inboxes  map[message.ServerId]chan InboundFrame
	outbound map[message.ServerId]*outboundCounter
	halted   map[message.ServerId]bool
}

type outboundCounter struct {
	mu      sync.Mutex
	pending int
}

// NewNetwork builds a fully-connected fabric for the given peers.
func NewNetwork(sids []message.ServerId, latency time.Duration) *Network {
	n := &Network{
		latency:  latency,
		inboxes:  make(map[message.ServerId]chan InboundFrame),
		outbound: make(map[message.ServerId]*outboundCounter),
		halted:   make(map[message.ServerId]bool),
	}
	for _, sid := range sids {
		n.inboxes[sid] = make(chan InboundFrame, 1000)
		n.outbound[sid] = &outboundCounter{}
	}
	n.splits = [][]message.ServerId{append([]message.ServerId{}, sids...)}
	return n
}

// SetSplits partitions the fabric: peers can only reach others in the same
// group. Passing a single group containing every peer heals the partition.
func (n *Network) SetSplits(splits [][]message.ServerId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.splits = splits
}

// SetLatency changes the simulated one-way link latency.
func (n *Network) SetLatency(latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latency = latency
}

func (n *Network) canReach(from, to message.ServerId) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, split := range n.splits {
		hasFrom, hasTo := false, false
		for _, sid := range split {
			hasFrom = hasFrom || sid == from
			hasTo = hasTo || sid == to
		}
		if hasFrom && hasTo {
			return true
		}
	}
	return false
}

func (n *Network) currentLatency() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latency
}

// CurrentLatency reports the fabric's configured one-way link latency.
func (n *Network) CurrentLatency() time.Duration {
	return n.currentLatency()
}

// SplitsString renders the current partition groups as comma/space separated
// server ids, for display in an operator-facing status line.
func (n *Network) SplitsString() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := ""
	for _, split := range n.splits {
		for i, sid := range split {
			if i > 0 {
				result += ","
			}
			result += fmt.Sprintf("%d", sid)
		}
		result += " "
	}
	return result
}

// Peer returns a Manager bound to sid, viewing this shared fabric.
func (n *Network) Peer(sid message.ServerId) *PeerManager {
	return &PeerManager{network: n, self: sid}
}

// PeerManager is the per-peer view of a Network, implementing the Manager
// contract.
type PeerManager struct {
	network *Network
	self    message.ServerId
}

func (p *PeerManager) Send(targetSid message.ServerId, frame []byte) {
	p.network.mu.Lock()
	halted := p.network.halted[p.self]
	p.network.mu.Unlock()
	if halted {
		return
	}
	if !p.network.canReach(p.self, targetSid) {
		return
	}

	counter := p.network.outbound[p.self]
	counter.mu.Lock()
	counter.pending++
	counter.mu.Unlock()

	latency := p.network.currentLatency()
	go func() {
		jitter := time.Duration(0)
		if latency > 0 {
			jitter = time.Duration(rand.Int63n(int64(latency)/4 + 1))
		}
		time.Sleep(latency + jitter)

		counter.mu.Lock()
		counter.pending--
		counter.mu.Unlock()

		p.network.mu.Lock()
		inbox, ok := p.network.inboxes[targetSid]
		p.network.mu.Unlock()
		if !ok {
			return
		}
		select {
		case inbox <- InboundFrame{Sid: p.self, Frame: frame}:
		default:
			// inbox full: transport drops the frame silently, same as a
			// real TransportError being swallowed.
		}
	}()
}

func (p *PeerManager) PollRecvQueue(timeout time.Duration) (InboundFrame, bool) {
	p.network.mu.Lock()
	inbox := p.network.inboxes[p.self]
	p.network.mu.Unlock()

	select {
	case frame := <-inbox:
		return frame, true
	case <-time.After(timeout):
		return InboundFrame{}, false
	}
}

func (p *PeerManager) HaveDelivered() bool {
	counter := p.network.outbound[p.self]
	counter.mu.Lock()
	defer counter.mu.Unlock()
	return counter.pending == 0
}

func (p *PeerManager) ConnectAll() {
	// The simulated fabric has no persistent connections to reopen; healing
	// a partition is done via SetSplits. This is a deliberate no-op that
	// still satisfies the Manager contract.
}

func (p *PeerManager) Halt() {
	p.network.mu.Lock()
	p.network.halted[p.self] = true
	p.network.mu.Unlock()
}

func (p *PeerManager) ConnectionThreadCount() int {
	p.network.mu.Lock()
	defer p.network.mu.Unlock()
	if p.network.halted[p.self] {
		return 0
	}
	return len(p.network.inboxes) - 1
}
