package provision

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/poll"
)

const (
	testAP      = device.Address("http://192.168.4.1")
	testStation = device.Address("http://192.168.1.1")
)

var testNetworks = []device.AccessPoint{
	{SSID: "Home WiFi", Strength: 82, Channel: 6, Security: "wpa2"},
	{SSID: "Guest Network", Strength: 40, Channel: 11, Security: "open"},
	{SSID: "Office", Strength: 60, Channel: 1, Security: "wpa2"},
}

var mkbhd = device.ChannelCandidate{
	ID:        "UCBJycsmduvYEL83R_U4JriQ",
	Title:     "Marques Brownlee",
	Thumbnail: "https://example.com/mkbhd.jpg",
}

// fakeDevice is an in-memory Device. Hooks left nil behave like a healthy
// device that confirms everything.
type fakeDevice struct {
	mu sync.Mutex

	networks         []device.AccessPoint
	scanErr          error
	submitWifiErr    error
	verifyWifi       func(addr device.Address) bool
	candidate        *device.ChannelCandidate
	searchErr        error
	submitChannelErr error
	verifyChannel    func(id string) (bool, error)

	// gate, when set, blocks the named operation until it is closed.
	gate      map[string]chan struct{}
	entered   chan string
	calls     []string
	lastWifi  [2]string
	lastQuery string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		networks: testNetworks,
		gate:     make(map[string]chan struct{}),
		entered:  make(chan string, 16),
	}
}

func (f *fakeDevice) record(op string, addr device.Address) chan struct{} {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s %s", op, addr))
	gate := f.gate[op]
	f.mu.Unlock()

	select {
	case f.entered <- op:
	default:
	}
	return gate
}

func (f *fakeDevice) wait(ctx context.Context, gate chan struct{}) {
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

func (f *fakeDevice) block(op string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate[op] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeDevice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDevice) GetStatus(ctx context.Context, addr device.Address) (*device.Status, error) {
	f.record("status", addr)
	return &device.Status{WifiConnected: addr == testStation}, nil
}

func (f *fakeDevice) ScanNetworks(ctx context.Context, addr device.Address) ([]device.AccessPoint, error) {
	f.wait(ctx, f.record("scan", addr))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return append([]device.AccessPoint(nil), f.networks...), nil
}

func (f *fakeDevice) SubmitWifi(ctx context.Context, addr device.Address, ssid, secret string) error {
	f.wait(ctx, f.record("submit_wifi", addr))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastWifi = [2]string{ssid, secret}
	return f.submitWifiErr
}

func (f *fakeDevice) VerifyWifi(ctx context.Context, addr device.Address) bool {
	f.record("verify_wifi", addr)
	f.mu.Lock()
	fn := f.verifyWifi
	f.mu.Unlock()
	if fn == nil {
		return true
	}
	return fn(addr)
}

func (f *fakeDevice) SearchChannel(ctx context.Context, addr device.Address, query string) (*device.ChannelCandidate, error) {
	f.wait(ctx, f.record("search", addr))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidate, nil
}

func (f *fakeDevice) SubmitChannel(ctx context.Context, addr device.Address, id string) error {
	f.wait(ctx, f.record("submit_channel", addr))
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitChannelErr
}

func (f *fakeDevice) VerifyChannel(ctx context.Context, addr device.Address, id string) (bool, error) {
	f.record("verify_channel", addr)
	f.mu.Lock()
	fn := f.verifyChannel
	f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(id)
}

func testPollOptions() poll.Options {
	return poll.Options{Attempts: 3, Delay: time.Millisecond, Timeout: 2 * time.Second}
}

func newTestSession(t *testing.T, dev Device) *Session {
	t.Helper()
	s, err := NewSession(Options{
		Device:             dev,
		AccessPointAddress: testAP,
		StationAddress:     testStation,
		Verification:       testPollOptions(),
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

// waitEntered blocks until the fake device has been entered for op.
func waitEntered(t *testing.T, f *fakeDevice, op string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.entered:
			if got == op {
				return
			}
		case <-timeout:
			t.Fatalf("device never entered %s", op)
		}
	}
}

// verifiedWifiSession returns a session whose WiFi step is verified.
func verifiedWifiSession(t *testing.T, f *fakeDevice) *Session {
	t.Helper()
	s := newTestSession(t, f)
	ctx := context.Background()

	if out := s.Scan(ctx); !out.Success {
		t.Fatalf("Scan() = %+v", out)
	}
	if err := s.SelectNetwork("Home WiFi"); err != nil {
		t.Fatalf("SelectNetwork() error = %v", err)
	}
	if err := s.SetSecret("pass1234"); err != nil {
		t.Fatalf("SetSecret() error = %v", err)
	}
	if out := s.SubmitWifi(ctx); !out.Success {
		t.Fatalf("SubmitWifi() = %+v", out)
	}
	return s
}
