package tui

import (
	"fmt"
	"strings"
)

// View renders the UI.
//
//nolint:gocritic // hugeParam: Model must be value receiver to implement tea.Model interface
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return fmt.Sprintf("%s Initializing...\n", m.spinner.View())
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("mesh simulation"))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(m.table.View()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	help := "q: quit"
	if m.finished {
		help = "simulation complete • " + help
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m Model) renderStatusBar() string {
	progress := statLabelStyle.Render("Tick: ") +
		statValueStyle.Render(fmt.Sprintf("%d/%d", m.tick, m.totalTicks))
	simTime := statLabelStyle.Render(" | t=") +
		statValueStyle.Render(fmt.Sprintf("%.3fs", float64(m.currentTimeUS)/1e6))
	origin := statLabelStyle.Render(" | originated: ") +
		statValueStyle.Render(fmt.Sprintf("%d", m.report.TotalTxOrigin))
	confirmed := statLabelStyle.Render(" | confirmed: ") +
		statValueStyle.Render(fmt.Sprintf("%d", m.report.TotalMessagesConfirmed))
	collisions := statLabelStyle.Render(" | collisions: ") +
		statValueStyle.Render(fmt.Sprintf("%d", m.report.TotalCollisions))

	if m.finished {
		return progress + simTime + origin + confirmed + collisions
	}
	return m.spinner.View() + " " + progress + simTime + origin + confirmed + collisions
}
