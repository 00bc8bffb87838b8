package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the dcabot CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dcabot version %s\n", version)
		fmt.Println("A drop-trigger DCA accumulation bot for Upbit KRW markets")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
