package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

// Update handles messages and updates the model.
//
//nolint:gocritic // hugeParam: Model must be value receiver to implement tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.table.SetHeight(m.height - 10)

	case update:
		m.tick = msg.tick
		m.totalTicks = msg.totalTicks
		m.currentTimeUS = msg.currentTimeUS
		m.report = msg.report
		m.table.SetRows(nodeRows(msg.report))
		cmds = append(cmds, waitForUpdate(m.updates))

	case doneMsg:
		m.finished = true
		m.err = msg.err
		// keep draining in case a late update arrives after completion
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func nodeRows(r summary.Report) []table.Row {
	rows := make([]table.Row, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		rows = append(rows, table.Row{
			fmt.Sprintf("!%08x", n.ID),
			n.Role,
			fmt.Sprintf("%d", n.TxOrigin),
			fmt.Sprintf("%d", n.MessagesConfirmed),
			fmt.Sprintf("%d", n.RxSuccess),
			fmt.Sprintf("%d", n.RxDups),
			fmt.Sprintf("%d", n.Forwarded),
			fmt.Sprintf("%d", n.CollisionsCaused),
			fmt.Sprintf("%.1f", n.TxUtil*100),
			fmt.Sprintf("%.1f", n.AirUtil*100),
		})
	}
	return rows
}
