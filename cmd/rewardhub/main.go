// RewardHub — multi-tenant rewards platform backend.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rewardhub",
	Short: "RewardHub — multi-tenant rewards platform backend.",
	Long: `RewardHub is the admin backend for a multi-tenant SaaS rewards platform.
Brands run points campaigns, issue vouchers, and manage their tenant through
an HTTP API with strict tenant isolation and field-level encryption at rest.`,
	RunE:          runServe, // Default to server mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, setupCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
