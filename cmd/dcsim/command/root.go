// Package command implements the dcsim cobra command tree.
package command

import (
	"github.com/spf13/cobra"

	"github.com/dcsim/dc-simulator/internal/config"
)

var configPath string

// Root builds the dcsim root command with its subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "dcsim",
		Short: "GPU data-centre discrete-time simulator",
		Long: "dcsim simulates a GPU data centre's thermal, power, workload, network, " +
			"storage and carbon behaviour tick by tick, with REST control, fault " +
			"injection and an agent-evaluation harness.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $DC_SIM_CONFIG, then built-in defaults)")

	root.AddCommand(serveCmd(), tickCmd(), evalCmd())
	return root
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
