// Package main is the entry point for the keypad-calc command.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/keypad-calc/pkg/config"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "keypad-calc",
		Short:        "Keypad calculator engine, server and tools",
		SilenceUsage: true,
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("keypad-calc version {{.Version}}\n")

	root.PersistentFlags().String("config", "", "YAML config file (env KEYPAD_CALC_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newEvalCmd(),
		newTokensCmd(),
		newPressCmd(),
		newReplayCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config or KEYPAD_CALC_CONFIG, then
// the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := os.Getenv("KEYPAD_CALC_CONFIG")
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path = v
	}
	return config.Load(path)
}
