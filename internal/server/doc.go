// Package server exposes a provisioning session to a browser front-end.
//
// A Bridge serves JSON endpoints that drive the session and a WebSocket
// endpoint that streams every session event:
//
//	GET  /api/state               current snapshot
//	GET  /api/device/status       device status at the current address
//	POST /api/scan                scan for networks
//	POST /api/networks/select     {"ssid": "..."}
//	POST /api/networks/manual     {"ssid": "..."} for hidden networks
//	POST /api/wifi                {"password": "..."} then submit
//	POST /api/channel/query       {"query": "..."}
//	POST /api/channel/search
//	POST /api/channel/select
//	POST /api/channel             {"channelId": "..."} (optional) then submit
//	POST /api/step/next
//	POST /api/step/back
//	POST /api/reset
//	GET  /ws                      {"type": ..., "snapshot": ...} per event
//
// Action endpoints answer {outcome, snapshot} or {error, snapshot}. A step
// that fails on the device is still a 200 with outcome.success false; only
// rejected calls get an error status: 409 while the same operation is in
// flight, 422 for validation failures and locked steps, 400 for bodies that
// do not decode.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 8080}, session)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server closes WebSocket clients, stops accepting
// requests and waits up to ten seconds for in-flight requests.
package server
