package main

import (
	"github.com/quorumwire/fle-election/src/cli"
	"github.com/quorumwire/fle-election/src/config"
)

func main() {
	config.Config.NodeIds = []uint{1, 2, 3, 4, 5}
	cli.StartCli()
}
