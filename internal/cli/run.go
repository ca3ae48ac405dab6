package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/go-meshsim/meshsim/internal/config"
	"github.com/go-meshsim/meshsim/internal/logging"
	"github.com/go-meshsim/meshsim/internal/simrun"
	"github.com/go-meshsim/meshsim/internal/tui"
)

var (
	dryRun      bool
	interactive bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation to completion",
	Long: `Run loads a nodes_data JSON file describing a mesh, replays a fixed
number of simulated-time ticks of LoRa propagation, MAC contention, and
flood routing, and writes messages.csv, nodes.csv, backoff.csv, and
summary.csv to --results_dir.

Use --interactive to watch per-node state live instead of running headless.`,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("nodes_data", "", "path to the nodes_data JSON file (required)")
	runCmd.Flags().Float64("simulation_time", 0, "simulated seconds to run")
	runCmd.Flags().Int64("time_resolution", 0, "step interval in microseconds")
	runCmd.Flags().String("results_dir", "", "directory to write CSV output to")
	runCmd.Flags().String("propagation_model", "", "propagation model: FSPL, OpenTerrain, Suburban, City (unknown names fall back to FSPL)")
	runCmd.Flags().Float64("minimal_snr", 0, "minimum SNR in dB below which a signal cannot be received")
	runCmd.Flags().Int64("seed", 0, "base RNG seed (combined with each node id)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate configuration without running the simulation")
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "show a live node status table while running")
	runCmd.Flags().Bool("png", false, "accepted and stored in the run config; meshsim itself renders no PNG frames")
	runCmd.Flags().Bool("mp4", false, "accepted and stored in the run config (requires --png); meshsim itself assembles no MP4")
	runCmd.Flags().Int("slowmo_factor", 0, "slow-motion factor applied by an external renderer")
	runCmd.Flags().Int("dpi", 0, "DPI applied by an external renderer")

	for _, name := range []string{
		"nodes_data", "simulation_time", "time_resolution", "results_dir",
		"propagation_model", "minimal_snr", "seed", "interactive", "png", "mp4",
		"slowmo_factor", "dpi",
	} {
		_ = viper.BindPFlag(name, runCmd.Flags().Lookup(name))
	}
}

func runSimulation(_ *cobra.Command, _ []string) error {
	logCfg := logging.Config{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	}
	if interactive {
		logCfg.Format = "text"
		logCfg.Level = "error"
	}
	if err := logging.Initialize(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		logging.Info("using config file", zap.String("path", cfgFile))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if dryRun {
		fmt.Println("Configuration is valid!")
		fmt.Printf("  nodes_data:        %s\n", cfg.Run.NodesDataPath)
		fmt.Printf("  simulation_time:   %gs\n", cfg.Run.SimulationTime)
		fmt.Printf("  time_resolution:   %dus\n", cfg.Run.TimeResolutionUS)
		fmt.Printf("  ticks:             %d\n", cfg.Ticks())
		fmt.Printf("  results_dir:       %s\n", cfg.Run.ResultsDir)
		fmt.Printf("  propagation_model: %s\n", cfg.Run.PropagationModel)
		fmt.Printf("  seed:              %d\n", cfg.Run.Seed)
		return nil
	}

	runner, err := simrun.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build simulation: %w", err)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logging.Error("error closing results streams", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if interactive {
		if err := tui.Run(ctx, runner.Simulator(), runner.Ticks()); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
	} else {
		logging.Info("simulation starting. Press Ctrl+C to stop.")
		if err := runner.Run(ctx); err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
	}

	report, err := runner.Summarize()
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	printReport(report)

	return nil
}
