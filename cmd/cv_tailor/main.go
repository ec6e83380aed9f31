// Package main provides the cv_tailor CLI: the HTTP API server and one-shot tailoring commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "cv_tailor",
	Short: "Tailor a CV to a job description without inventing experience",
	Long: `cv_tailor rewrites a CV for a specific job posting. Every claim in the output is traced back
to the original CV; anything that cannot be grounded is rejected.

Configuration comes from environment variables (a .env file is loaded when present) and an
optional JSON file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (environment variables take precedence)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
