// Package tui provides the interactive terminal view for a simulation run:
// a live table of node state, refreshed as the driver advances ticks.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

// update carries one status snapshot from the driver loop into the TUI.
type update struct {
	tick          int64
	totalTicks    int64
	currentTimeUS int64
	report        summary.Report
}

// doneMsg signals the simulation finished, successfully or not.
type doneMsg struct{ err error }

// Model is the bubbletea model for a simulation run.
type Model struct {
	updates <-chan update
	done    <-chan doneMsg

	width, height int
	ready         bool
	quitting      bool
	finished      bool
	err           error

	spinner spinner.Model
	table   table.Model

	tick          int64
	totalTicks    int64
	currentTimeUS int64
	report        summary.Report
	startTime     time.Time
}

// New creates a TUI model that drains updates/done until the simulation
// finishes or the user quits.
func New(updates <-chan update, done <-chan doneMsg) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	t := table.New(
		table.WithColumns(nodeColumns),
		table.WithFocused(false),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	return Model{
		updates:   updates,
		done:      done,
		spinner:   s,
		table:     t,
		startTime: time.Now(),
	}
}

// Init satisfies tea.Model.
//
//nolint:gocritic // hugeParam: Model must be value receiver to implement tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates), waitForDone(m.done))
}

func waitForUpdate(ch <-chan update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return u
	}
}

func waitForDone(ch <-chan doneMsg) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return nil
		}
		return d
	}
}
