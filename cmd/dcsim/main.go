// Command dcsim is the data-centre simulator's CLI: serve the REST API,
// advance ticks headlessly, or score an agent against a scenario. Built on
// cobra in place of the teacher's flag-based cmd/simulation and
// cmd/analytics-server mains, since the three subcommands need shared
// persistent flags (the config path) that flag alone handles poorly.
package main

import (
	"log"
	"os"

	"github.com/dcsim/dc-simulator/cmd/dcsim/command"
)

func main() {
	if err := command.Root().Execute(); err != nil {
		log.SetFlags(0)
		log.Println(err)
		os.Exit(1)
	}
}
