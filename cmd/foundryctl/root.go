// Package main is the foundryctl operator CLI: run the validation battery
// against a local artifact directory without going through the service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"pagefoundry.io/foundry/internal/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "foundryctl",
	Short: "PageFoundry operator tooling",
	Long: `foundryctl runs PageFoundry's validation battery outside the service:
point it at a directory (and optionally a live URL) and it prints the same
report the pipeline would attach to an evaluation notification.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logLevel, "console")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(validateCmd)
}
