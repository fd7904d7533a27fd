package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/trace"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "trace init:", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "bot",
		Short: "Autonomous crypto trading engine",
		Long: `Runs the signal generation, arbitration and risk-managed execution
engine against the configured trading pairs. Strategies and the optional
advisory source propose signals; the arbiter resolves conflicts; the risk
manager sizes and validates; the venue settles.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Configuration file path")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newOnceCmd(&configPath))
	rootCmd.AddCommand(newMetricsCmd(&configPath))
	return rootCmd
}
