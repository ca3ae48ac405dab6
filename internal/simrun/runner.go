// Package simrun wires the loaded config and node descriptors into a
// driver.Simulator and drives it to completion, the orchestration role the
// teacher's internal/relay.Service played for connections and outputs.
package simrun

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/go-meshsim/meshsim/internal/config"
	"github.com/go-meshsim/meshsim/internal/logging"
	"github.com/go-meshsim/meshsim/internal/nodesfile"
	"github.com/go-meshsim/meshsim/internal/simlog"
	"github.com/go-meshsim/meshsim/pkg/meshsim/driver"
	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

// Runner owns a built Simulator and its CSV log streams for one run.
type Runner struct {
	cfg    *config.Config
	sim    *driver.Simulator
	logger *simlog.Logger
	ticks  int64
}

// New loads nodes_data, opens the results-dir CSV streams, and constructs
// the Simulator. The caller must call Close when done, success or not.
func New(cfg *config.Config) (*Runner, error) {
	data, err := os.ReadFile(cfg.Run.NodesDataPath)
	if err != nil {
		return nil, fmt.Errorf("reading nodes_data: %w", err)
	}

	descriptors, err := nodesfile.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading nodes_data: %w", err)
	}

	logger, err := simlog.New(cfg.Run.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("opening results dir: %w", err)
	}

	sim, err := driver.NewFromNodesData(descriptors, driver.Config{
		StepIntervalUS:   cfg.Run.TimeResolutionUS,
		Seed:             cfg.Run.Seed,
		PropagationModel: cfg.Run.PropagationModel,
		MinimalSNR:       cfg.Run.MinimalSNR,
		Sink:             simevent.Sink(logger),
		ReportEveryTicks: cfg.Plot.EveryNMicrosecondsIfStateNotChanged / cfg.Run.TimeResolutionUS,
	})
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("building simulator: %w", err)
	}

	return &Runner{cfg: cfg, sim: sim, logger: logger, ticks: cfg.Ticks()}, nil
}

// Simulator exposes the built simulator, e.g. for the interactive TUI.
func (r *Runner) Simulator() *driver.Simulator { return r.sim }

// Ticks returns the total number of ticks this run will execute.
func (r *Runner) Ticks() int64 { return r.ticks }

// Run advances the simulator to completion headlessly, logging progress at
// the configured report cadence.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.With(zap.String("component", "simrun"))
	log.Info("starting simulation",
		zap.Int64("ticks", r.ticks),
		zap.Int64("step_interval_us", r.cfg.Run.TimeResolutionUS),
		zap.Int64("seed", r.cfg.Run.Seed))

	err := r.sim.Run(ctx, r.ticks, func(_ context.Context, currentTimeUS int64, tick int64) {
		log.Debug("tick",
			zap.Int64("tick", tick),
			zap.Int64("current_time_us", currentTimeUS))
	})
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	log.Info("simulation complete")
	return nil
}

// Summarize aggregates terminal node state, appends one row per node to
// summary.csv, and returns the report for console display.
func (r *Runner) Summarize() (summary.Report, error) {
	report := summary.Aggregate(r.sim.Nodes())
	for _, n := range r.sim.Nodes() {
		if err := r.logger.LogSummary(n.Summary()); err != nil {
			return report, fmt.Errorf("writing summary row: %w", err)
		}
	}
	return report, nil
}

// Close flushes and closes the results CSV streams.
func (r *Runner) Close() error {
	return r.logger.Close()
}
