package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "ucgplan",
	Short:   "Offline inspection tool for the collective engine's planner",
	Long:    `ucgplan loads a synthetic group and collective description from a JSON file and prints the phase array the planner would build for it, without a real transport.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
