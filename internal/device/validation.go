package device

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSSIDLength is the 802.11 SSID limit in bytes
	MaxSSIDLength = 32

	// MaxSecretLength is the WPA passphrase limit
	MaxSecretLength = 63
)

// ValidateSSID validates a WiFi network name.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("WiFi network name cannot be empty")
	}
	if len(ssid) > MaxSSIDLength {
		return NewValidationError(fmt.Sprintf("WiFi network name too long (max %d bytes): %d bytes", MaxSSIDLength, len(ssid)))
	}
	return nil
}

// ValidateSecret validates a WiFi secret. Open networks are the one case
// where an empty secret is allowed.
func ValidateSecret(secret string, open bool) error {
	if secret == "" {
		if open {
			return nil
		}
		return NewValidationError("WiFi password required for secured networks")
	}
	if n := utf8.RuneCountInString(secret); n > MaxSecretLength {
		return NewValidationError(fmt.Sprintf("WiFi password too long (max %d chars): %d chars", MaxSecretLength, n))
	}
	return nil
}

// ValidateQuery rejects channel queries without a single non-whitespace
// character.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return NewValidationError("channel search query cannot be empty")
	}
	return nil
}

// ValidateChannelID validates a channel identifier before submission.
func ValidateChannelID(id string) error {
	if id == "" {
		return NewValidationError("channel identifier cannot be empty")
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return NewValidationError("channel identifier contains whitespace")
	}
	return nil
}
