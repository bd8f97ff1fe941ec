package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ohowland/cgc_powerflow/internal/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:           "cgcflow",
	Short:         "Microgrid power flow studies",
	Long:          "cgcflow builds a microgrid network, solves its power flow with an external solver, and reports, plots and archives the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cgcflow:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (JSON, TOML or YAML)")
	rootCmd.PersistentFlags().String("scenario", "", "scenario file; the built-in microgrid when empty")
	rootCmd.PersistentFlags().String("out", "", "directory for the topology artifact")
	rootCmd.PersistentFlags().Bool("mock-solver", false, "use the deterministic stand-in solver instead of the external process")

	viper.BindPFlag("scenario", rootCmd.PersistentFlags().Lookup("scenario"))
	viper.BindPFlag("out_dir", rootCmd.PersistentFlags().Lookup("out"))

	rootCmd.AddCommand(runCmd, serveCmd, viewCmd, runsCmd)
}

// loadConfig reads the --config file, env and flags over the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(viper.GetViper(), path); err != nil {
		return config.Config{}, err
	}
	return config.Load(viper.GetViper())
}
