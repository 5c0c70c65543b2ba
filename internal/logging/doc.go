// Package logging provides structured logging for espcfg.
//
// The package wraps a process-wide zap logger with convenience functions and a
// few domain helpers for device round trips and provisioning state changes.
//
// # Silent By Default
//
// espcfg is mostly an interactive tool, so nothing is logged unless a level is
// requested, either explicitly or through the ESPCFG_LOG_LEVEL environment
// variable:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr in console format so it never mixes with command
// output on stdout.
//
// # Domain Helpers
//
//	logging.LogDeviceRequest("GET", "http://192.168.4.1/status", 200, elapsed, nil)
//	logging.LogTransition(sessionID, "wifi", "channel")
//	logging.LogProtocolEvent(sessionID, "wifi", "verifying", zap.Int("attempt", 2))
//
// WiFi secrets must never be passed to any of these functions. Log the secret
// length with SecretField instead.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
