package config

import (
	"github.com/spf13/viper"

	"github.com/go-meshsim/meshsim/internal/simerr"
)

// Load reads the configuration from viper (global Config JSON plus
// CLI-bound run flags) and returns a Config struct.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if v := viper.GetInt64("plot_every_n_microseconds_if_state_not_changed"); v != 0 {
		cfg.Plot.EveryNMicrosecondsIfStateNotChanged = v
	}
	if v := viper.GetInt("plot_node_font_size"); v != 0 {
		cfg.Plot.NodeFontSize = v
	}
	cfg.Plot.RangeCircles = viper.GetBool("plot_range_circles")
	if v := viper.GetFloat64("plot_range_circles_minimal_rssi"); v != 0 {
		cfg.Plot.RangeCirclesMinimalRSSI = v
	}
	cfg.Plot.RangeCirclesColorFromMessageID = viper.GetBool("plot_range_circles_color_from_message_id")

	if v := viper.GetString("nodes_data"); v != "" {
		cfg.Run.NodesDataPath = v
	}
	if v := viper.GetFloat64("simulation_time"); v != 0 {
		cfg.Run.SimulationTime = v
	}
	if v := viper.GetInt64("time_resolution"); v != 0 {
		cfg.Run.TimeResolutionUS = v
	}
	if v := viper.GetString("results_dir"); v != "" {
		cfg.Run.ResultsDir = v
	}
	if v := viper.GetString("propagation_model"); v != "" {
		cfg.Run.PropagationModel = v
	}
	if v := viper.GetFloat64("minimal_snr"); v != 0 {
		cfg.Run.MinimalSNR = v
	}
	if viper.IsSet("seed") {
		cfg.Run.Seed = viper.GetInt64("seed")
	}
	cfg.Run.Interactive = viper.GetBool("interactive")
	cfg.Run.PNG = viper.GetBool("png")
	cfg.Run.MP4 = viper.GetBool("mp4")
	if v := viper.GetInt("slowmo_factor"); v != 0 {
		cfg.Run.SlowmoFactor = v
	}
	if v := viper.GetInt("dpi"); v != 0 {
		cfg.Run.DPI = v
	}

	cfg.Logging.Level = viper.GetString("logging.level")
	cfg.Logging.Format = viper.GetString("logging.format")
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	return cfg, nil
}

// Validate checks the configuration for errors (spec §7: malformed input
// is a ConfigError, the simulator fails to start, no per-tick recovery).
func (c *Config) Validate() error {
	if c.Run.NodesDataPath == "" {
		return simerr.NewConfig("nodes_data is required")
	}
	if c.Run.SimulationTime <= 0 {
		return simerr.NewConfig("simulation_time must be positive, got %v", c.Run.SimulationTime)
	}
	if c.Run.TimeResolutionUS <= 0 {
		return simerr.NewConfig("time_resolution must be positive, got %d", c.Run.TimeResolutionUS)
	}
	if c.Run.ResultsDir == "" {
		return simerr.NewConfig("results_dir is required")
	}
	if c.Run.MP4 && !c.Run.PNG {
		return simerr.NewConfig("mp4 requires png to also be set")
	}
	return nil
}
