package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/go-meshsim/meshsim/pkg/meshsim/summary"
)

var (
	reportHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	reportBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// printReport renders the final per-node summary as a table. It shows a
// subset of the summary.csv columns: long_name, rx_unicast and
// tx_cancelled are written to the CSV but not printed here.
func printReport(r summary.Report) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(reportBorderStyle).
		Headers("Node", "Role", "TxOrigin", "Confirmed", "RxOK", "RxFail", "RxDup", "Fwd", "Collisions", "TxUtil%", "AirUtil%")

	for _, n := range r.Nodes {
		t.Row(
			fmt.Sprintf("!%08x", n.ID),
			n.Role,
			fmt.Sprintf("%d", n.TxOrigin),
			fmt.Sprintf("%d", n.MessagesConfirmed),
			fmt.Sprintf("%d", n.RxSuccess),
			fmt.Sprintf("%d", n.RxFail),
			fmt.Sprintf("%d", n.RxDups),
			fmt.Sprintf("%d", n.Forwarded),
			fmt.Sprintf("%d", n.CollisionsCaused),
			fmt.Sprintf("%.1f", n.TxUtil*100),
			fmt.Sprintf("%.1f", n.AirUtil*100),
		)
	}

	fmt.Println(t.Render())
	fmt.Printf("\n%s originated=%d confirmed=%d rx_success=%d rx_fail=%d collisions=%d\n",
		reportHeaderStyle.Render("totals:"),
		r.TotalTxOrigin, r.TotalMessagesConfirmed, r.TotalRxSuccess, r.TotalRxFail, r.TotalCollisions)

	if len(r.Sources) == 0 {
		return
	}

	st := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(reportBorderStyle).
		Headers("Source", "Originated", "Confirmed", "Success Rate")

	for _, s := range r.Sources {
		st.Row(
			fmt.Sprintf("!%08x", s.SourceID),
			fmt.Sprintf("%d", s.MessagesOriginated),
			fmt.Sprintf("%d", s.MessagesConfirmed),
			fmt.Sprintf("%.1f%%", s.NormalizedSuccessRate*100),
		)
	}

	fmt.Println()
	fmt.Println(st.Render())
}
