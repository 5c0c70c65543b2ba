// Package devicesim is an in-memory provisioning device that serves the
// device HTTP API.
//
// The simulator models the two addressing phases of a real board: until it
// has joined a network it answers only on its access-point handler, and
// once associated the access-point handler goes away and the station handler
// takes over. Failure injection covers rejected submissions, slow channel
// writes and devices that accept a channel without storing it.
package devicesim
