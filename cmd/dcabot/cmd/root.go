package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dcabot",
	Short: "A drop-trigger DCA accumulation bot for Upbit KRW markets",
	Long: `dcabot accumulates a fixed set of coins in installments, buying only
when the price drops a configured percentage below the last reference,
and liquidates once a profit target is reached.

It provides:
  - Pooled or weighted installment budgeting across instruments
  - Per-coin drop-trigger thresholds that cascade from each fill
  - A durable JSON ledger that survives and resumes across restarts
  - Dry-run simulation against live market prices
  - Optional SQLite/CSV fill journaling and Prometheus metrics`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "", "path to YAML config file (optional; environment overrides it)")
}
