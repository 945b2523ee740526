package command

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dcsim/dc-simulator/internal/eval"
	"github.com/dcsim/dc-simulator/internal/httpapi"
	"github.com/dcsim/dc-simulator/internal/metrics"
	"github.com/dcsim/dc-simulator/internal/persist"
	"github.com/dcsim/dc-simulator/internal/simulator"
)

func serveCmd() *cobra.Command {
	var (
		addr           string
		tickIntervalS  float64
		autoStart      bool
		sinkKind       string
		snapshotLog    string
		auditLog       string
		sqlitePath     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API, optionally auto-ticking on a wall-clock interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sim := simulator.New(cfg)

			sink, err := buildSink(sinkKind, snapshotLog, auditLog, sqlitePath)
			if err != nil {
				return err
			}
			sim.SetSink(sink)

			reg := metrics.NewRegistry()
			sim.SetMetricsObserver(reg)
			server := httpapi.NewServer(sim, reg)
			for name, agent := range eval.BuiltinAgents() {
				server.RegisterAgent(name, agent)
			}
			for _, sc := range eval.BuiltinScenarios() {
				server.RegisterScenario(sc)
			}

			if autoStart {
				sim.StartContinuous(tickIntervalS)
			}

			log.Printf("dcsim listening on %s", addr)
			return server.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8090", "HTTP listen address")
	cmd.Flags().Float64Var(&tickIntervalS, "tick-interval-s", 0, "wall-clock seconds between automatic ticks (defaults to the config's clock.tick_interval_s); only used with --auto-start")
	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "start the auto-ticker immediately instead of waiting for POST /sim/run")
	cmd.Flags().StringVar(&sinkKind, "sink", "none", "persistence sink: none, jsonl, or sqlite")
	cmd.Flags().StringVar(&snapshotLog, "snapshot-log", "dcsim-snapshots.jsonl", "path for the jsonl sink's snapshot log")
	cmd.Flags().StringVar(&auditLog, "audit-log", "dcsim-audit.jsonl", "path for the jsonl sink's audit log")
	cmd.Flags().StringVar(&sqlitePath, "db", "dcsim.db", "path for the sqlite sink's database file")
	return cmd
}

func buildSink(kind, snapshotLog, auditLog, sqlitePath string) (persist.Sink, error) {
	switch kind {
	case "", "none":
		return persist.NopSink{}, nil
	case "jsonl":
		return persist.NewJSONLSink(snapshotLog, auditLog)
	case "sqlite":
		return persist.NewSQLiteSink(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown --sink %q (want none, jsonl, or sqlite)", kind)
	}
}
