package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/espcfg/internal/config"
	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/provision"
	"github.com/muurk/espcfg/internal/server"
	"github.com/muurk/espcfg/internal/ui"
	"github.com/muurk/espcfg/internal/wizard/tui"
)

// Command flags
var (
	via          string
	wifiSSID     string
	wifiPassword string
	serveHost    string
	servePort    int
	certPath     string
	keyPath      string
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(wifiCmd)
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(serveCmd)

	statusCmd.Flags().StringVar(&via, "via", "station", "Address to use (station, ap)")

	wifiCmd.Flags().StringVar(&wifiSSID, "ssid", "", "WiFi network name")
	wifiCmd.Flags().StringVar(&wifiPassword, "password", "", "WiFi password (prompted when omitted)")
	_ = wifiCmd.MarkFlagRequired("ssid")

	channelCmd.PersistentFlags().StringVar(&via, "via", "station", "Address to use (station, ap)")
	channelCmd.AddCommand(channelSearchCmd)
	channelCmd.AddCommand(channelSetCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Listen port")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves HTTPS with --key)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
}

// initLogging applies --log-level, falling back to the environment when the
// flag is unset.
func initLogging() error {
	if logLevel == "" {
		return logging.InitializeFromEnv()
	}
	return logging.Initialize(logLevel)
}

// loadConfig loads the preferences file and applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	switch outputFormat {
	case "detailed", "compact", "json":
	default:
		return fmt.Errorf("invalid --format %q (use detailed, compact or json)", outputFormat)
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("ap-address") {
		loaded.Device.AccessPointAddress = apAddress
	}
	if flags.Changed("station-address") {
		loaded.Device.StationAddress = stationAddress
	}
	if flags.Changed("timeout") {
		loaded.Device.RequestTimeout = requestTimeout
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	cfg = loaded
	logging.Debug("Configuration loaded",
		zap.String("access_point_address", cfg.Device.AccessPointAddress),
		zap.String("station_address", cfg.Device.StationAddress),
		zap.Duration("request_timeout", cfg.Device.RequestTimeout),
	)
	return nil
}

// newSession creates a provisioning session starting at initial
func newSession(initial device.Address) (*provision.Session, error) {
	return provision.NewSession(provision.Options{
		Device:             device.NewClient(cfg.Device.RequestTimeout),
		AccessPointAddress: cfg.AccessPointAddress(),
		StationAddress:     cfg.StationAddress(),
		InitialAddress:     initial,
		Verification:       cfg.PollOptions(),
	})
}

// viaAddress resolves the --via flag
func viaAddress() (device.Address, error) {
	switch via {
	case "station":
		return cfg.StationAddress(), nil
	case "ap":
		return cfg.AccessPointAddress(), nil
	default:
		return "", fmt.Errorf("invalid --via %q (use station or ap)", via)
	}
}

// outcomeError reports a failed step with its troubleshooting hint and
// returns it as the command error.
func outcomeError(title string, out provision.Outcome) error {
	if outputFormat == "detailed" {
		var tips []string
		if out.Err != nil && out.Kind != device.KindValidation {
			tips = ui.TipsFromHint(device.GetTroubleshootingHint(out.Err))
		}
		fmt.Fprintln(os.Stderr, ui.RenderFailure(title, errors.New(out.Message), tips))
	}
	return errors.New(out.Message)
}

// printHeader prints the command banner in detailed output
func printHeader(title, command string, params ...ui.Field) {
	if outputFormat == "detailed" {
		fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{Title: title, Command: command, Params: params}))
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runWizard(cmd *cobra.Command, args []string) error {
	session, err := newSession("")
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), session)
}

// statusCmd reads the device status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show device status",
	Long: `Read the device's WiFi association, IP address and tracked channel.

By default the device is contacted on its station address, where it lives
once WiFi is configured. Use --via ap while it still hosts its hotspot.`,
	Example: `  # Status of a provisioned device
  espcfg status

  # Status while connected to the setup hotspot
  espcfg status --via ap

  # JSON output for scripting
  espcfg status --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, err := viaAddress()
	if err != nil {
		return err
	}

	status, err := device.NewClient(cfg.Device.RequestTimeout).GetStatus(cmd.Context(), addr)
	if err != nil {
		return outcomeError("Device status unavailable", provision.Outcome{
			Kind:    device.KindOf(err),
			Message: device.GetShortErrorMessage(err),
			Err:     err,
		})
	}

	switch outputFormat {
	case "compact":
		fmt.Println(status.FormatCompact())
	case "json":
		return printJSON(status)
	default:
		fmt.Printf("Device at %s\n\n", addr)
		fmt.Print(status.FormatDetailed())
	}
	return nil
}

// scanCmd lists the networks the device can see
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List WiFi networks visible to the device",
	Long: `Ask the device to scan for WiFi networks.

The device only supports the 2.4 GHz band; networks on other bands are
left out of the result.`,
	Example: `  espcfg scan
  espcfg scan --format json`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	session, err := newSession(cfg.AccessPointAddress())
	if err != nil {
		return err
	}

	printHeader("WiFi scan", "espcfg scan", ui.Field{Key: "Device", Value: session.Snapshot().Address.String()})
	out := session.Scan(cmd.Context())
	if !out.Success {
		return outcomeError("Scan failed", out)
	}

	networks := session.Snapshot().Networks
	switch outputFormat {
	case "json":
		return printJSON(networks)
	case "compact":
		for _, ap := range networks {
			fmt.Printf("%s\t%d\t%d\n", ap.SSID, ap.Strength, ap.Channel)
		}
	default:
		fmt.Println()
		fmt.Print(device.FormatNetworks(networks))
		fmt.Println("\nUse 'espcfg wifi --ssid <name>' to connect the device")
	}
	return nil
}

// wifiCmd connects the device to a network
var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "Connect the device to a WiFi network",
	Long: `Send WiFi credentials to the device and wait until it has joined.

The device is contacted on its hotspot address. After it reports the
association, it is confirmed on its station address. Networks that are not
in the device's scan are treated as hidden secured networks.

When --password is omitted for a secured network, it is read from the
terminal without echo.`,
	Example: `  # Prompt for the password
  espcfg wifi --ssid "Home WiFi"

  # Scripted
  espcfg wifi --ssid "Home WiFi" --password "$WIFI_PASSWORD"`,
	RunE: runWifi,
}

func runWifi(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	session, err := newSession(cfg.AccessPointAddress())
	if err != nil {
		return err
	}

	printHeader("WiFi provisioning", "espcfg wifi",
		ui.Field{Key: "Network", Value: wifiSSID},
		ui.Field{Key: "Hotspot", Value: cfg.AccessPointAddress().String()},
		ui.Field{Key: "Station", Value: cfg.StationAddress().String()},
	)
	if out := session.Scan(ctx); !out.Success {
		fmt.Printf("⚠ Scan failed (%s), treating %s as a hidden network\n", out.Message, wifiSSID)
	}

	if err := session.EnterNetwork(wifiSSID); err != nil {
		return err
	}
	snap := session.Snapshot()
	if snap.SelectedHidden {
		fmt.Printf("⚠ %s is not visible to the device, trying anyway\n", wifiSSID)
	}

	secret := wifiPassword
	if !cmd.Flags().Changed("password") && !snap.SelectedOpen {
		if secret, err = promptSecret(wifiSSID); err != nil {
			return err
		}
	}
	if err := session.SetSecret(secret); err != nil {
		return err
	}

	fmt.Printf("Sending credentials for %s...\n", wifiSSID)
	out := session.SubmitWifi(ctx)
	if !out.Success {
		return outcomeError("WiFi not confirmed", out)
	}

	if outputFormat != "detailed" {
		fmt.Println(out.Message)
		return nil
	}
	fmt.Println(ui.RenderSuccess(out.Message, []ui.Field{
		{Key: "Network", Value: wifiSSID},
		{Key: "Address", Value: session.Snapshot().Address.String()},
	}))
	fmt.Println("\nUse 'espcfg channel search <name>' to choose its channel")
	return nil
}

// promptSecret reads a secret from the terminal without echo
func promptSecret(ssid string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is secured: pass --password or run from a terminal", ssid)
	}

	fmt.Printf("Password for %s: ", ssid)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

// channelCmd groups the channel commands
var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Search for and set the tracked channel",
}

var channelSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve a channel name through the device",
	Long: `Ask the device to resolve a channel name or handle.

The device performs the lookup, so it must already be online.`,
	Example: `  espcfg channel search mkbhd
  espcfg channel search "Marques Brownlee" --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChannelSearch,
}

func runChannelSearch(cmd *cobra.Command, args []string) error {
	addr, err := viaAddress()
	if err != nil {
		return err
	}
	session, err := newSession(addr)
	if err != nil {
		return err
	}

	if err := session.SetQuery(strings.Join(args, " ")); err != nil {
		return err
	}
	out := session.SearchChannel(cmd.Context())
	if !out.Success {
		return outcomeError("Channel search failed", out)
	}

	snap := session.Snapshot()
	if outputFormat == "json" {
		return printJSON(snap.Candidates)
	}
	if len(snap.Candidates) == 0 {
		fmt.Printf("No channel matches %q\n", snap.Query)
		return nil
	}

	c := snap.Candidates[0]
	switch outputFormat {
	case "compact":
		fmt.Printf("%s\t%s\n", c.ID, c.Title)
	default:
		fmt.Printf("Found: %s\n", c.FormatCandidate())
		fmt.Printf("  Avatar: %s\n", c.Thumbnail)
		fmt.Printf("\nUse 'espcfg channel set %s' to track it\n", c.ID)
	}
	return nil
}

var channelSetCmd = &cobra.Command{
	Use:   "set <channel-id>",
	Short: "Set the tracked channel and confirm it",
	Long: `Send a channel identifier to the device and wait until the device
reports it as its tracked channel.`,
	Example: `  espcfg channel set UCBJycsmduvYEL83R_U4JriQ`,
	Args:    cobra.ExactArgs(1),
	RunE:    runChannelSet,
}

func runChannelSet(cmd *cobra.Command, args []string) error {
	addr, err := viaAddress()
	if err != nil {
		return err
	}
	session, err := newSession(addr)
	if err != nil {
		return err
	}

	if err := session.SetChannelID(args[0]); err != nil {
		return err
	}

	channelID := session.Snapshot().SubmissionID
	printHeader("Channel provisioning", "espcfg channel set",
		ui.Field{Key: "Channel", Value: channelID},
		ui.Field{Key: "Device", Value: addr.String()},
	)
	out := session.SubmitChannel(cmd.Context())
	if !out.Success {
		return outcomeError("Channel not confirmed", out)
	}

	if outputFormat != "detailed" {
		fmt.Println(out.Message)
		return nil
	}
	fmt.Println(ui.RenderSuccess(out.Message, []ui.Field{{Key: "Channel", Value: channelID}}))
	return nil
}

// serveCmd exposes a session to a browser front-end
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the provisioning session over HTTP and WebSocket",
	Long: `Run a provisioning session behind a JSON API with a WebSocket event
stream, for browser front-ends.

Each step is an HTTP call; every state change is pushed to the clients
connected to /ws. Provide --cert and --key to serve HTTPS.`,
	Example: `  espcfg serve
  espcfg serve --port 9000
  espcfg serve --cert cert.pem --key key.pem`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath == "") != (keyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together")
	}

	session, err := newSession("")
	if err != nil {
		return err
	}

	srvConfig := &server.Config{
		Host:     serveHost,
		Port:     servePort,
		CertPath: certPath,
		KeyPath:  keyPath,
	}
	srv, err := server.New(srvConfig, session)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	scheme := "http"
	if certPath != "" {
		scheme = "https"
	}
	fmt.Printf("Serving session %s on %s://%s (Ctrl+C to stop)\n", session.ID(), scheme, srvConfig.Addr())
	return srv.Start()
}
