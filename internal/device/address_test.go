package device

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"192.168.4.1", "http://192.168.4.1"},
		{" 192.168.4.1:8080/ ", "http://192.168.4.1:8080"},
		{"http://esp.local", "http://esp.local"},
		{"https://esp.local//", "https://esp.local"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddress_URLAndHost(t *testing.T) {
	addr := NormalizeAddress("192.168.4.1")

	if got := addr.URL("status"); got != "http://192.168.4.1/status" {
		t.Errorf("URL() = %q", got)
	}
	if got := addr.URL("/wifi/scan"); got != "http://192.168.4.1/wifi/scan" {
		t.Errorf("URL() = %q", got)
	}
	if got := addr.Host(); got != "192.168.4.1" {
		t.Errorf("Host() = %q", got)
	}
}
