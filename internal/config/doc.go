// Package config manages the espcfg preferences file.
//
// The file holds the two device addresses, the per-request timeout and the
// verification polling parameters. It never holds WiFi secrets, and nothing
// about a provisioning run is written back to it.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/espcfg/config.yaml or $HOME/.config/espcfg/config.yaml
//   - macOS: $HOME/.config/espcfg/config.yaml
//   - Windows: %LOCALAPPDATA%\espcfg\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session, err := provision.NewSession(provision.Options{
//	    Device:             device.NewClient(cfg.Device.RequestTimeout),
//	    AccessPointAddress: cfg.AccessPointAddress(),
//	    StationAddress:     cfg.StationAddress(),
//	    Verification:       cfg.PollOptions(),
//	})
package config
