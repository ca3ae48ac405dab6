package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-meshsim/meshsim/pkg/meshsim/driver"
	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

// Run drives sim to completion in a background goroutine and displays a
// live node status table until it finishes or the user quits. Quitting
// early cancels the run via ctx.
func Run(ctx context.Context, sim *driver.Simulator, totalTicks int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan update, 1)
	done := make(chan doneMsg, 1)

	go func() {
		err := sim.Run(ctx, totalTicks, func(_ context.Context, currentTimeUS int64, tick int64) {
			u := update{
				tick:          tick,
				totalTicks:    totalTicks,
				currentTimeUS: currentTimeUS,
				report:        summary.Aggregate(sim.Nodes()),
			}
			select {
			case updates <- u:
			default:
				// drop: the TUI only needs the latest snapshot
			}
		})
		done <- doneMsg{err: err}
		close(done)
	}()

	model := New(updates, done)
	program := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := program.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	if fm, ok := finalModel.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
