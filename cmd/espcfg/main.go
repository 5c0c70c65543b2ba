// Espcfg provisions a channel-tracking display device.
//
// A factory-fresh device hosts its own WiFi hotspot. espcfg hands it the
// credentials of the household network, confirms that it joined, and then
// sets and confirms the channel it should track. The interactive wizard is
// the default; each step is also available as a direct command for
// scripting.
//
// Usage:
//
//	espcfg [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'espcfg --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/espcfg/internal/config"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath     string
	apAddress      string
	stationAddress string
	requestTimeout time.Duration
	outputFormat   string
	logLevel       string
)

// cfg is the effective configuration: the preferences file with flag
// overrides applied. It is loaded before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "espcfg",
	Short: "Channel display provisioning utility",
	Long: `A utility for provisioning channel-tracking display devices.

Connect to the device's setup hotspot, then run espcfg to give the device
your WiFi credentials and the channel it should track. Every step is
confirmed with the device before the next one is offered.

If no command is specified, the interactive wizard will launch automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runWizard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: user config directory)")
	rootCmd.PersistentFlags().StringVar(&apAddress, "ap-address", "", "Device address while it hosts its hotspot (default 192.168.4.1)")
	rootCmd.PersistentFlags().StringVar(&stationAddress, "station-address", "", "Device address once it joined your network (default 192.168.1.1)")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 0, "Per-request timeout (default 10s)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("espcfg %s\n", version.Full())
	},
}
