// Package main provides the relayc CLI: it loads a graph description,
// partitions it for an offload backend and emits the results.
package main

import (
	"os"

	"github.com/born-ml/relay/cmd/relayc/commands"
)

func main() {
	root := commands.NewRootCommand()
	root.AddCommand(commands.NewPartitionCommand())
	root.AddCommand(commands.NewVersionCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
