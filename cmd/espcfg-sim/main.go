// Espcfg-sim runs a simulated channel display device.
//
// The simulator serves the device's HTTP contract on two listeners: one for
// the access-point address the device uses while it hosts its hotspot, and
// one for the station address it answers on once it has joined a network.
// Point espcfg at both to rehearse a provisioning run without hardware.
//
// Usage:
//
//	espcfg-sim [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/devicesim"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	apListen          string
	stationListen     string
	associationChecks int
	slowChannel       time.Duration
	failScan          bool
	logLevel          string
)

var rootCmd = &cobra.Command{
	Use:   "espcfg-sim",
	Short: "Simulated channel display device",
	Long: `Run a simulated device for trying out espcfg without hardware.

The simulated household has a secured "Home WiFi" network (password
pass1234), an open "Guest Network", and a 5 GHz network the device cannot
join. Channel searches resolve "mkbhd" and "veritasium".`,
	Example: `  # Start the simulator and provision it
  espcfg-sim &
  espcfg --ap-address 127.0.0.1:8041 --station-address 127.0.0.1:8042

  # Slow channel confirmations
  espcfg-sim --slow-channel 3s`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runSim,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&apListen, "ap-listen", "127.0.0.1:8041", "Listen address for the access-point side")
	rootCmd.Flags().StringVar(&stationListen, "station-listen", "127.0.0.1:8042", "Listen address for the station side")
	rootCmd.Flags().IntVar(&associationChecks, "association-checks", 1, "Verify requests answered \"not connected\" before joining")
	rootCmd.Flags().DurationVar(&slowChannel, "slow-channel", 0, "Delay channel submissions by this long")
	rootCmd.Flags().BoolVar(&failScan, "fail-scan", false, "Answer scans with a server error")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSim(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	simConfig := devicesim.DefaultConfig()
	simConfig.AssociationChecks = associationChecks
	sim := devicesim.New(simConfig)
	sim.SetFailures(devicesim.Failures{Scan: failScan, SlowSubmitChannel: slowChannel})

	servers := []*http.Server{
		{Addr: apListen, Handler: sim.AccessPointHandler(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: stationListen, Handler: sim.StationHandler(), ReadHeaderTimeout: 10 * time.Second},
	}

	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		listener, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		logging.Info("Simulator listening", zap.String("addr", listener.Addr().String()))

		go func(srv *http.Server) {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}(srv)
	}

	fmt.Printf("Simulated device ready\n  access point: %s\n  station:      %s\n", apListen, stationListen)
	fmt.Printf("\nProvision it with:\n  espcfg --ap-address %s --station-address %s\n", apListen, stationListen)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping simulator...")
	case runErr = <-errChan:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	return runErr
}
