package device

import (
	"fmt"
	"strings"
)

// FormatDetailed returns a multi-section description of the status
func (s *Status) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Device Status ===\n")
	b.WriteString(fmt.Sprintf("WiFi:     %s\n", connectedLabel(s.WifiConnected)))
	b.WriteString(fmt.Sprintf("IP:       %s\n", orNone(s.IP)))
	b.WriteString(fmt.Sprintf("Channel:  %s\n", orNone(s.TrackedChannelID)))

	return b.String()
}

// FormatCompact returns a one-line description of the status
func (s *Status) FormatCompact() string {
	return fmt.Sprintf("wifi=%s ip=%s channel=%s",
		connectedLabel(s.WifiConnected), orNone(s.IP), orNone(s.TrackedChannelID))
}

// SignalBars renders a 0-100 strength as four bars.
func SignalBars(strength int) string {
	filled := (clampStrength(strength) + 24) / 25
	return strings.Repeat("▮", filled) + strings.Repeat("▯", 4-filled)
}

// FormatNetworks renders a scan result as an aligned table.
func FormatNetworks(aps []AccessPoint) string {
	if len(aps) == 0 {
		return "No networks found.\n"
	}

	width := len("SSID")
	for _, ap := range aps {
		if len(ap.SSID) > width {
			width = len(ap.SSID)
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-*s  %-6s  %-7s  %s\n", width, "SSID", "SIGNAL", "CHANNEL", "SECURITY"))
	for _, ap := range aps {
		security := "secured"
		if ap.Open() {
			security = "open"
		}
		b.WriteString(fmt.Sprintf("%-*s  %-6s  %-7d  %s\n", width, ap.SSID, SignalBars(ap.Strength), ap.Channel, security))
	}
	return b.String()
}

// FormatCandidate renders a resolved channel
func (c *ChannelCandidate) FormatCandidate() string {
	return fmt.Sprintf("%s (%s)", c.Title, c.ID)
}

func connectedLabel(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
