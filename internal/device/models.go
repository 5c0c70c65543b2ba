package device

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MinSupportedChannel and MaxSupportedChannel bound the 2.4 GHz channels the
	// device radio can join.
	MinSupportedChannel = 1
	MaxSupportedChannel = 13
)

// AccessPoint is a WiFi network found by a device scan.
type AccessPoint struct {
	SSID     string `json:"ssid"`
	Strength int    `json:"strength"` // Signal strength 0-100
	Channel  int    `json:"channel"`  // Radio channel (1-13 on the supported band)
	Security string `json:"security,omitempty"`
}

// Open reports whether the network advertises no security. A network that
// does not advertise its security at all is assumed to be secured.
func (ap AccessPoint) Open() bool {
	switch strings.ToLower(strings.TrimSpace(ap.Security)) {
	case "open", "none":
		return true
	default:
		return false
	}
}

// InSupportedBand reports whether the device radio can join this network.
func (ap AccessPoint) InSupportedBand() bool {
	return ap.Channel >= MinSupportedChannel && ap.Channel <= MaxSupportedChannel
}

// FilterSupportedBand returns the access points on channels 1-13, in their
// original order. Entries on other channels belong to a band the device
// cannot use and are dropped silently, as are entries without an SSID.
func FilterSupportedBand(aps []AccessPoint) []AccessPoint {
	out := make([]AccessPoint, 0, len(aps))
	for _, ap := range aps {
		if ap.SSID == "" || !ap.InSupportedBand() {
			continue
		}
		ap.Strength = clampStrength(ap.Strength)
		out = append(out, ap)
	}
	return out
}

func clampStrength(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// ChannelCandidate is a content channel resolved from a search query.
type ChannelCandidate struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"` // Avatar URL
}

// Status is the device state reported by GET /status.
type Status struct {
	WifiConnected    bool   `json:"wifi_connected"`
	IP               string `json:"ip"`
	TrackedChannelID string `json:"channel_id"`
}

// statusWire matches the JSON body the device sends.
type statusWire struct {
	WifiStatus string `json:"wifi_status"`
	IP         string `json:"ip"`
	ChannelID  string `json:"channel_id"`
}

func (w statusWire) toStatus() *Status {
	return &Status{
		WifiConnected:    strings.EqualFold(w.WifiStatus, "connected"),
		IP:               w.IP,
		TrackedChannelID: w.ChannelID,
	}
}

type wifiRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

type channelRequest struct {
	ChannelID string `json:"channelId"`
}

type wifiVerifyResponse struct {
	Connected bool `json:"connected"`
}

type channelVerifyResponse struct {
	Valid bool `json:"valid"`
}

// parseScanResponse accepts either a bare JSON array or an object with a
// "networks" array.
func parseScanResponse(body []byte) ([]AccessPoint, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("empty scan response")
	}

	var aps []AccessPoint
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &aps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan list: %w", err)
		}
		return aps, nil
	}

	var wrapped struct {
		Networks []AccessPoint `json:"networks"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan object: %w", err)
	}
	return wrapped.Networks, nil
}
