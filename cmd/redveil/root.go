package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "redveil",
	Short: "Redveil - privacy-preserving Reddit relay",
	Long: `Redveil is a privacy-preserving relay that lets clients browse Reddit
without ever making an authenticated request themselves.

The relay holds the upstream identity, providing:
  - Spoofed mobile-client token handshakes with automatic renewal
  - Classified, retried, and paced upstream API dispatch
  - Streaming media relay with range passthrough and no buffering
  - Versioned settings restore links`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
