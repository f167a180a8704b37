package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yieldpilot",
	Short: "YieldPilot - portfolio yield aggregation and rebalancing",
	Long: `YieldPilot Unified CLI

Yield aggregation pipeline with advised rebalancing.
Per cycle: fetch market data, compute per-asset yields, aggregate
basket snapshots, produce a recommendation, gate rebalances.

Usage:
  go run ./cmd/yieldpilot [command]

Examples:
  go run ./cmd/yieldpilot api
  go run ./cmd/yieldpilot worker
  go run ./cmd/yieldpilot cycle
  go run ./cmd/yieldpilot status
  go run ./cmd/yieldpilot rebalance user-42`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
