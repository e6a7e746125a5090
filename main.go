package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build variables set by ldflags
var (
	buildVersion = "dev"
	buildCommit  = "none"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "picoring0",
		Short: "Intel processor and SMART drive sensor monitor",
		Long: `picoring0 reads core temperatures and clocks from Intel model-specific
registers and drive health from SMART, and serves them over HTTP.`,
		Version:      fmt.Sprintf("%s (%s)", buildVersion, buildCommit),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, configPath)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a picoring0.yaml config file")
	flags.String("bind", "0.0.0.0", "IP address to bind the server to")
	flags.Int("port", 8080, "Port to run the server on")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(cpuCmd(&configPath))
	rootCmd.AddCommand(smartCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "picoring0 %s (%s)\n", buildVersion, buildCommit)
		},
	}
}
