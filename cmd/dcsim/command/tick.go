package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcsim/dc-simulator/internal/simulator"
)

func tickCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "advance the simulator headlessly by n ticks and print the final snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if n < 1 {
				n = 1
			}
			sim := simulator.New(cfg)
			snap := sim.TickN(n)

			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 1, "number of ticks to advance")
	return cmd
}
