// Package ui renders the styled output of espcfg's direct commands.
//
// Unlike the interactive wizard, these components follow a "run once and
// exit" pattern: a command prints a Header describing what it is about to do
// and the device it targets, then a Result box with the outcome. Failure
// boxes carry the troubleshooting hint for the error.
//
// # Usage Pattern
//
//	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
//	    Title:   "WiFi provisioning",
//	    Command: "espcfg wifi",
//	    Params:  []ui.Field{{Key: "Network", Value: ssid}},
//	}))
//	...
//	fmt.Println(ui.RenderSuccess("Device joined the network", details))
//
// Widths follow the terminal between MinTerminalWidth and MaxContentWidth.
// Output that is not a terminal gets MinTerminalWidth.
package ui
