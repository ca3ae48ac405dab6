// Package cli provides the command-line interface for the mesh simulator.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meshsim",
	Short: "A discrete-event simulator for LoRa mesh flood routing",
	Long: `meshsim simulates a Meshtastic-style flooding mesh network: LoRa
propagation, the half-duplex CSMA/CA MAC layer, and flood routing across a
set of nodes placed in space, replaying a fixed number of simulated-time
ticks and logging every state transition, reception, and backoff decision
to CSV for later analysis.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("MESHSIM")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// GetConfigFile returns the config file being used.
func GetConfigFile() string {
	return viper.ConfigFileUsed()
}
