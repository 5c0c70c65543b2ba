// Package device provides an HTTP client for the provisioning API of an
// ESP-class channel display.
//
// The device starts life hosting its own access point. While it does, it is
// reachable only on that hotspot (the access-point address). Once it has been
// given station-mode credentials and has joined the target network, it is
// reachable on the user's network instead (the station address). The client
// holds no address of its own: every call takes the Address to talk to, so the
// caller decides which phase it is in.
//
// # Usage Example
//
//	client := device.NewClient(10 * time.Second)
//	ap := device.NormalizeAddress("192.168.4.1")
//
//	networks, err := client.ScanNetworks(ctx, ap)
//	if err != nil {
//	    log.Fatal(device.GetShortErrorMessage(err))
//	}
//
//	if err := client.SubmitWifi(ctx, ap, "Home WiFi", "pass1234"); err != nil {
//	    log.Fatal(err)
//	}
//	if !client.VerifyWifi(ctx, ap) {
//	    // Not conclusive: the device may be switching networks.
//	}
//
// # Endpoints
//
// Newer firmware serves some routes under /api/. The client tries the primary
// path first and falls back to the /api/ alias when the device answers 404 or
// 405.
//
// # Error Handling
//
// Failures are returned as *DeviceError. Kind() maps every error onto one of
// three categories: communication (transport, timeout, non-2xx, unparsable
// response), verification failed (the device answered, but not with the state
// we asked for) and validation (rejected locally before any request).
package device
