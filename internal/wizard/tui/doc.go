// Package tui implements the terminal front-end of the espcfg provisioning wizard.
//
// The wizard is a Bubble Tea program over a provision.Session. It never talks
// to the device itself: every long-running step (scan, WiFi submission,
// channel search and channel submission) runs in a tea.Cmd and comes back as
// an outcome, and every screen is rendered from Session.Snapshot.
//
// # Screens
//
// The screen follows the session's wizard step:
//
//  1. WiFi: the scanned 2.4 GHz networks with signal bars. enter selects a
//     network and prompts for its password (open networks are submitted
//     directly), m enters a hidden network, r rescans. Once the device has
//     joined the network and answered on its station address, n moves on.
//
//  2. Channel: / focuses the search field and enter runs the search. The
//     resolved channel is shown as a card; s selects it, enter submits it to
//     the device and waits for confirmation, n finishes. esc returns to the
//     WiFi screen and clears the credential.
//
//  3. Complete: a summary. r resets the session and starts over.
//
// All screens use RenderApplicationContainer for a consistent header and
// context-sensitive help footer.
//
// # Usage
//
//	session, _ := provision.NewSession(opts)
//	if err := tui.Run(ctx, session); err != nil {
//	    log.Fatal(err)
//	}
package tui
