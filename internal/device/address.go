package device

import (
	"strings"
)

const (
	// DefaultAccessPointAddress is where the device answers while it hosts its
	// own hotspot.
	DefaultAccessPointAddress = "192.168.4.1"

	// DefaultStationAddress is where the device answers once it joined the
	// user's network.
	DefaultStationAddress = "192.168.1.1"
)

// Address is the normalized base URL of a device, e.g. "http://192.168.4.1".
type Address string

// NormalizeAddress trims raw, prefixes http:// when no scheme is present and
// drops trailing slashes. Reachability is not checked here; a bad address
// surfaces on the next request.
func NormalizeAddress(raw string) Address {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}
	return Address(strings.TrimRight(s, "/"))
}

// URL joins the address with an absolute path.
func (a Address) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return string(a) + path
}

// Host returns the address without its scheme.
func (a Address) Host() string {
	s := string(a)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	return s
}

// String implements fmt.Stringer
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}
