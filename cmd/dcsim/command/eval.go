package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcsim/dc-simulator/internal/eval"
	"github.com/dcsim/dc-simulator/internal/simulator"
)

func evalCmd() *cobra.Command {
	var (
		agentName  string
		scenarioID string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "replay a named scenario against a registered agent and print its scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			agents := eval.BuiltinAgents()
			agent, ok := agents[agentName]
			if !ok {
				return fmt.Errorf("unknown agent %q (available: %s)", agentName, agentNames(agents))
			}
			scenarios := eval.BuiltinScenarios()
			scenario, ok := scenarios[scenarioID]
			if !ok {
				return fmt.Errorf("unknown scenario %q (available: %s)", scenarioID, scenarioIDs(scenarios))
			}

			sim := simulator.New(cfg)
			result, err := eval.Run(sim, scenario, agent)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&agentName, "agent", "noop", "registered agent name")
	cmd.Flags().StringVar(&scenarioID, "scenario", "thermal_crisis", "registered scenario id")
	return cmd
}

func agentNames(agents map[string]eval.AgentFunc) []string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	return names
}

func scenarioIDs(scenarios map[string]eval.Scenario) []string {
	ids := make([]string, 0, len(scenarios))
	for id := range scenarios {
		ids = append(ids, id)
	}
	return ids
}
