// Package provision hosts the provisioning session that takes a device from
// "unconfigured" to "online and tracking a channel".
//
// A Session sequences four concerns over a Device:
//
//   - network scan and selection (Scan, SelectNetwork, EnterNetwork)
//   - the WiFi protocol (SetSecret, SubmitWifi): submit credentials against
//     the access-point address, poll for association, then switch to the
//     station address
//   - the channel protocol (SetQuery, SearchChannel, SelectCandidate,
//     SetChannelID, SubmitChannel)
//   - the wizard (Advance, Back, Reset), whose forward transitions are gated
//     on the verification results of the protocols
//
// Protocol operations never return raw transport errors. They return an
// Outcome whose Kind follows the device error taxonomy, and they record
// their progress in the session state, which front-ends read through
// Snapshot or receive through Subscribe.
//
// Each operation may run at most once at a time per session; a concurrent
// call of the same operation is rejected with ErrInFlight.
package provision
