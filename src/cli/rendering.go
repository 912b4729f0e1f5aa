package cli

import (
	"fmt"

	"github.com/rivo/tview"
)

// renderPeersState draws one line per simulated peer: its server state,
// current vote, and logical clock.
func renderPeersState(ctx *appContext, textView *tview.TextView) {
	writer := textView.BatchWriter()
	writer.Clear()
	defer writer.Close()

	for _, sp := range ctx.peers {
		vote := sp.facade.CurrentVote()
		fmt.Fprintf(writer, "PEER: %2d  STATE: %10s  CLOCK: %3d  VOTE(leader=%d zxid=%#x eepoch=%d peerEpoch=%d)\n",
			sp.sid,
			sp.facade.PeerState(),
			sp.fle.GetLogicalClock(),
			vote.Leader,
			int64(vote.Zxid),
			vote.ElectionEpoch,
			vote.PeerEpoch,
		)
	}
}

func renderConfig(ctx *appContext, textView *tview.TextView) {
	writer := textView.BatchWriter()
	writer.Clear()
	defer writer.Close()

	fmt.Fprintf(writer, "NETWORK LATENCY: %s  SPLITS: %s", ctx.network.CurrentLatency(), ctx.network.SplitsString())
}
