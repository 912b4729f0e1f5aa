// Package cli is the interactive election simulator: it wires up a handful
// of simulated peers over a connection.Network, renders their state and log
// streams with tview/tcell, and lets an operator drive elections, restarts,
// and network partitions from a command line.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/quorumwire/fle-election/src/config"
	"github.com/quorumwire/fle-election/src/connection"
	"github.com/quorumwire/fle-election/src/election"
	"github.com/quorumwire/fle-election/src/logging"
	"github.com/quorumwire/fle-election/src/message"
	"github.com/quorumwire/fle-election/src/peer"
	"github.com/quorumwire/fle-election/src/quorumverifier"
)

// simulatedPeer bundles one simulated peer's facade and election object
// together with the goroutine cancellation needed to restart it.
type simulatedPeer struct {
	sid    message.ServerId
	facade *peer.SimplePeer
	fle    *election.FastLeaderElection
	logger *logging.Logger
	cancel context.CancelFunc
}

type appContext struct {
	network *connection.Network
	peers   map[message.ServerId]*simulatedPeer
	logs    chan logging.LoggerEntry
}

// StartCli builds the simulated ensemble from config.Config.NodeIds and
// launches the tview event loop. Blocks until the application exits.
func StartCli() {
	sids := make([]message.ServerId, len(config.Config.NodeIds))
	for i, id := range config.Config.NodeIds {
		sids[i] = message.ServerId(id)
	}

	logs := make(chan logging.LoggerEntry, 1000)
	network := connection.NewNetwork(sids, config.Config.NetworkLatency)

	appCtx := &appContext{network: network, peers: make(map[message.ServerId]*simulatedPeer), logs: logs}

	for _, sid := range sids {
		startPeer(appCtx, sid, sids)
	}

	app, appQuit := setupApp(appCtx)

	if err := app.Run(); err != nil {
		panic(any(err))
	}

	close(appQuit)
}

func startPeer(ctx *appContext, sid message.ServerId, sids []message.ServerId) {
	logger := logging.CreateLogger(fmt.Sprintf("[NODE %d]", sid), ctx.logs)
	qv := quorumverifier.NewMajority(1, sids)
	facade := peer.NewSimplePeer(sid, peer.Participant, qv, peer.PersistentState{
		CurrentEpoch:   1,
		LastLoggedZxid: message.Zxid(0x100),
	})
	conn := ctx.network.Peer(sid)
	fle := election.New(election.Config{
		FinalizeWait:            config.Config.FinalizeWait,
		MinNotificationInterval: config.Config.MinNotificationInterval,
		MaxNotificationInterval: config.Config.MaxNotificationInterval,
	}, facade, conn, nil)

	sp := &simulatedPeer{sid: sid, facade: facade, fle: fle, logger: logger}
	ctx.peers[sid] = sp
	runElection(sp)
}

func runElection(sp *simulatedPeer) {
	electionCtx, cancel := context.WithCancel(context.Background())
	sp.cancel = cancel
	go func() {
		vote, err := sp.fle.LookForLeader(electionCtx)
		if err != nil {
			sp.logger.Log(fmt.Sprintf("lookForLeader error: %v", err))
			return
		}
		if vote != nil {
			sp.logger.Log(fmt.Sprintf("elected: %s, now %s", vote, sp.facade.PeerState()))
		}
	}()
}

// restartPeer cancels the running election, replaces the peer's facade and
// election object with a fresh LOOKING one at the same sid, and re-enters
// LookForLeader.
func restartPeer(ctx *appContext, sid message.ServerId) bool {
	sp, ok := ctx.peers[sid]
	if !ok {
		return false
	}
	sp.cancel()
	sp.fle.Shutdown()

	sids := make([]message.ServerId, 0, len(ctx.peers))
	for id := range ctx.peers {
		sids = append(sids, id)
	}
	startPeer(ctx, sid, sids)
	return true
}

func setupApp(ctx *appContext) (*tview.Application, chan struct{}) {
	flex := tview.NewFlex()
	flex.SetDirection(tview.FlexRow)

	peersStateTextView := tview.NewTextView()
	peersStateTextView.SetBorder(true).SetTitle("Peer State")
	flex.AddItem(peersStateTextView, 0, 2, false)

	configTextView := tview.NewTextView()
	configTextView.SetBorder(true).SetTitle("Network")
	flex.AddItem(configTextView, 3, 1, false)

	loggerTextView := tview.NewTextView()
	loggerTextView.SetBorder(true).SetTitle("Logs")
	flex.AddItem(loggerTextView, 0, 3, false)

	commandsInputField := tview.NewInputField()
	commandsInputField.SetBorder(true).SetTitle("Commands Input")
	flex.AddItem(commandsInputField, 3, 1, true)

	appQuit := make(chan struct{})

	app := tview.NewApplication().SetRoot(flex, true)

	go renderLogs(ctx.logs, loggerTextView, appQuit)
	go listenForUserCommands(commandsInputField, ctx, appQuit)
	go func() {
		for {
			select {
			case <-time.After(100 * time.Millisecond):
				renderPeersState(ctx, peersStateTextView)
				renderConfig(ctx, configTextView)
				app.Draw()
			case <-appQuit:
				return
			}
		}
	}()
	return app, appQuit
}

func renderLogs(logs chan logging.LoggerEntry, textView *tview.TextView, quit chan struct{}) {
	start := time.Now()
	for {
		select {
		case entry := <-logs:
			writer := textView.BatchWriter()
			prefix := formatTimestamp(start, entry.Timestamp)
			for _, message := range entry.Messages {
				fmt.Fprintf(writer, "%s %s\n", prefix, message)
				prefix = strings.Repeat(" ", len(prefix))
			}
			writer.Close()
		case <-quit:
			return
		}
	}
}

func formatTimestamp(start time.Time, end time.Time) string {
	diff := end.Sub(start)
	return fmt.Sprintf("[%02d:%02d:%04d]", int(diff.Minutes()), int(diff.Seconds())%60, diff.Milliseconds()%1000)
}
