package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-meshsim/meshsim/internal/config"
	"github.com/go-meshsim/meshsim/internal/nodesfile"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Load and validate a nodes_data file without simulating",
	Long: `Describe loads --nodes_data, validates every node descriptor the
same way run does, and prints the resolved role, position, and timing
parameters for each node. Nothing is simulated and no CSV output is
written.`,
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().String("nodes_data", "", "path to the nodes_data JSON file (required)")
	_ = viper.BindPFlag("nodes_data", describeCmd.Flags().Lookup("nodes_data"))
}

func runDescribe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Run.NodesDataPath == "" {
		return fmt.Errorf("nodes_data is required")
	}

	data, err := os.ReadFile(cfg.Run.NodesDataPath)
	if err != nil {
		return fmt.Errorf("reading nodes_data: %w", err)
	}

	descriptors, err := nodesfile.Load(data)
	if err != nil {
		return fmt.Errorf("invalid nodes_data: %w", err)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(reportBorderStyle).
		Headers("Node", "Name", "Role", "Position", "TxPower", "Freq", "Mode", "HopStart")

	for _, d := range descriptors {
		t.Row(
			fmt.Sprintf("!%08x", d.ID),
			d.LongName,
			d.Role.String(),
			fmt.Sprintf("(%.1f, %.1f, %.1f)", d.Position.X, d.Position.Y, d.Position.Z),
			fmt.Sprintf("%.1fdBm", d.TxPowerDBm),
			fmt.Sprintf("%.0fMHz", d.FrequencyHz/1e6),
			d.Mode.String(),
			fmt.Sprintf("%d", d.HopStart),
		)
	}

	fmt.Println(t.Render())
	fmt.Printf("\n%d nodes\n", len(descriptors))
	return nil
}
