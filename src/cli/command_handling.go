package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/quorumwire/fle-election/src/logging"
	"github.com/quorumwire/fle-election/src/message"
)

func listenForUserCommands(inputField *tview.InputField, ctx *appContext, quit chan struct{}) {
	logger := logging.CreateLogger("[green][COMMAND[]", ctx.logs)
	commandsChannel := make(chan string)
	inputField.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			command := inputField.GetText()
			if len(command) > 0 {
				commandsChannel <- command
			}
		}
	})

	for {
		select {
		case command := <-commandsChannel:
			handleCommand(command, ctx, logger)
			inputField.SetText("")
		case <-quit:
			return
		}
	}
}

func handleCommand(command string, ctx *appContext, logger *logging.Logger) {
	tokens := strings.Split(command, " ")
	switch tokens[0] {
	case "peer-restart":
		if len(tokens) != 2 {
			logInvalidCommand(command, logger)
			return
		}
		sid, err := strconv.Atoi(tokens[1])
		if err != nil {
			logInvalidCommand(command, logger)
			return
		}
		if restartPeer(ctx, message.ServerId(sid)) {
			logger.Log(command)
		} else {
			logInvalidCommand(command, logger)
		}
	case "network-splits":
		if len(tokens) < 2 {
			logInvalidCommand(command, logger)
			return
		}
		splits := make([][]message.ServerId, len(tokens[1:]))
		for i, token := range tokens[1:] {
			ids := strings.Split(token, ",")
			splits[i] = make([]message.ServerId, len(ids))
			for j, idStr := range ids {
				id, err := strconv.Atoi(idStr)
				if err != nil {
					logInvalidCommand(command, logger)
					return
				}
				splits[i][j] = message.ServerId(id)
			}
		}
		ctx.network.SetSplits(splits)
		logger.Log(command)
	case "network-latency":
		if len(tokens) != 2 {
			logInvalidCommand(command, logger)
			return
		}
		millis, err := strconv.Atoi(tokens[1])
		if err != nil {
			logInvalidCommand(command, logger)
			return
		}
		ctx.network.SetLatency(time.Duration(millis) * time.Millisecond)
		logger.Log(command)
	case "help":
		logHelp(logger)
	default:
		logInvalidCommand(command, logger)
	}
}

func logInvalidCommand(command string, logger *logging.Logger) {
	logger.Log(fmt.Sprintf("'%s' - invalid command", command))
	logHelp(logger)
}

func logHelp(logger *logging.Logger) {
	logger.LogMultiple([]string{
		"Available commands:",
		"peer-restart [SERVER_ID] (e.g. peer-restart 2) - restarts given peer's election, back to LOOKING at epoch 1",
		"network-latency [MILLIS] (e.g. network-latency 200) - sets simulated one-way link latency",
		"network-splits [SPLITS] (e.g. network-splits 1,2,3 4,5) - splits peers into sets that can communicate only",
		"                        with other peers in the same set. Use 'network-splits 1,2,3,4,5' to heal the partition",
		"help - displays this information",
	})
}
