package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/muurk/espcfg/internal/device"
)

func TestNewSession_RequiresDevice(t *testing.T) {
	if _, err := NewSession(Options{}); err == nil {
		t.Error("NewSession() without device should fail")
	}
}

func TestNewSession_Defaults(t *testing.T) {
	s, err := NewSession(Options{Device: newFakeDevice()})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.Address != "http://192.168.4.1" {
		t.Errorf("Address = %q, want the default access point address", snap.Address)
	}
	if snap.Step != StepWifi || snap.WifiVerified != Unknown || snap.ChannelVerified != Unknown {
		t.Errorf("initial snapshot = %+v", snap)
	}
	if snap.SessionID == "" {
		t.Error("SessionID is empty")
	}
	if got := s.Options().StationAddress; got != "http://192.168.1.1" {
		t.Errorf("StationAddress = %q", got)
	}
}

func TestScan_Idempotent(t *testing.T) {
	s := newTestSession(t, newFakeDevice())
	ctx := context.Background()

	s.Scan(ctx)
	first := s.Snapshot().Networks
	s.Scan(ctx)
	second := s.Snapshot().Networks

	if diff := cmp.Diff(testNetworks, first); diff != "" {
		t.Errorf("first scan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rescan changed the list (-first +second):\n%s", diff)
	}
}

func TestScan_ReplacesStaleReadings(t *testing.T) {
	f := newFakeDevice()
	s := newTestSession(t, f)
	ctx := context.Background()

	s.Scan(ctx)
	f.mu.Lock()
	f.networks = []device.AccessPoint{{SSID: "Home WiFi", Strength: 12, Channel: 6}}
	f.mu.Unlock()
	s.Scan(ctx)

	want := []device.AccessPoint{{SSID: "Home WiFi", Strength: 12, Channel: 6}}
	if diff := cmp.Diff(want, s.Snapshot().Networks); diff != "" {
		t.Errorf("Networks mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_BandFiltering(t *testing.T) {
	f := newFakeDevice()
	f.networks = []device.AccessPoint{
		{SSID: "Low", Channel: 1},
		{SSID: "High", Channel: 13},
		{SSID: "Fourteen", Channel: 14},
		{SSID: "Five", Channel: 36},
		{SSID: "Zero", Channel: 0},
	}
	s := newTestSession(t, f)
	s.Scan(context.Background())

	for _, ap := range s.Snapshot().Networks {
		if ap.Channel < 1 || ap.Channel > 13 {
			t.Errorf("network %q on channel %d is selectable", ap.SSID, ap.Channel)
		}
	}
	if err := s.SelectNetwork("Five"); !device.IsValidationError(err) {
		t.Errorf("SelectNetwork(Five) error = %v, want validation error", err)
	}
}

func TestScan_FailureKeepsPreviousList(t *testing.T) {
	f := newFakeDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	s.Scan(ctx)

	f.mu.Lock()
	f.scanErr = device.NewNetworkError("GET /wifi/scan failed", testAP, context.DeadlineExceeded)
	f.mu.Unlock()

	out := s.Scan(ctx)
	if out.Success || out.Kind != device.KindCommunication {
		t.Errorf("Scan() = %+v, want communication failure", out)
	}
	snap := s.Snapshot()
	if len(snap.Networks) != len(testNetworks) {
		t.Errorf("failed scan replaced the list: %+v", snap.Networks)
	}
	if snap.Scanning {
		t.Error("Scanning still set after failure")
	}
}

func TestScan_RejectsOverlap(t *testing.T) {
	f := newFakeDevice()
	gate := f.block("scan")
	s := newTestSession(t, f)

	done := make(chan Outcome)
	go func() { done <- s.Scan(context.Background()) }()
	waitEntered(t, f, "scan")

	if !s.Snapshot().Scanning {
		t.Error("Scanning = false while a scan is in flight")
	}
	out := s.Scan(context.Background())
	if !errors.Is(out.Err, ErrInFlight) {
		t.Errorf("overlapping Scan() = %+v, want ErrInFlight", out)
	}

	close(gate)
	if out := <-done; !out.Success {
		t.Errorf("first Scan() = %+v", out)
	}
}

func TestSelectNetwork_Exclusive(t *testing.T) {
	s := newTestSession(t, newFakeDevice())
	s.Scan(context.Background())

	if err := s.SelectNetwork("Home WiFi"); err != nil {
		t.Fatalf("SelectNetwork(A) error = %v", err)
	}
	if err := s.SetSecret("pass1234"); err != nil {
		t.Fatalf("SetSecret() error = %v", err)
	}
	if err := s.SelectNetwork("Office"); err != nil {
		t.Fatalf("SelectNetwork(B) error = %v", err)
	}

	snap := s.Snapshot()
	if snap.SelectedSSID != "Office" {
		t.Errorf("SelectedSSID = %q, want Office", snap.SelectedSSID)
	}
	if snap.HasSecret {
		t.Error("secret of the previous network was carried over")
	}
	if snap.WifiVerified != Unknown || snap.WifiPhase != WifiIdle {
		t.Errorf("verification not reset: %v / %v", snap.WifiVerified, snap.WifiPhase)
	}
}

func TestSelectNetwork_ToggleOff(t *testing.T) {
	s := newTestSession(t, newFakeDevice())
	s.Scan(context.Background())

	_ = s.SelectNetwork("Home WiFi")
	_ = s.SetSecret("pass1234")
	if err := s.SelectNetwork("Home WiFi"); err != nil {
		t.Fatalf("SelectNetwork() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.SelectedSSID != "" || snap.HasSecret {
		t.Errorf("reselecting should deselect: %+v", snap)
	}
}

func TestSelectNetwork_KeptWhenRescanDropsIt(t *testing.T) {
	f := newFakeDevice()
	s := newTestSession(t, f)
	ctx := context.Background()
	s.Scan(ctx)
	_ = s.SelectNetwork("Office")
	_ = s.SetSecret("secret99")

	f.mu.Lock()
	f.networks = testNetworks[:2]
	f.mu.Unlock()
	s.Scan(ctx)

	snap := s.Snapshot()
	if snap.SelectedSSID != "Office" || !snap.HasSecret {
		t.Errorf("selection lost on rescan: %+v", snap)
	}
	if snap.SelectedInRange {
		t.Error("SelectedInRange = true for a network missing from the scan")
	}
}

func TestEnterNetwork_Hidden(t *testing.T) {
	s := newTestSession(t, newFakeDevice())

	if err := s.EnterNetwork("Hidden Lab"); err != nil {
		t.Fatalf("EnterNetwork() error = %v", err)
	}
	snap := s.Snapshot()
	if snap.SelectedSSID != "Hidden Lab" || !snap.SelectedHidden || snap.SelectedOpen {
		t.Errorf("snapshot = %+v, want hidden secured selection", snap)
	}

	out := s.SubmitWifi(context.Background())
	if out.Kind != device.KindValidation {
		t.Errorf("SubmitWifi() without secret = %+v, want validation failure", out)
	}

	if err := s.EnterNetwork(""); !device.IsValidationError(err) {
		t.Errorf("EnterNetwork(\"\") error = %v, want validation error", err)
	}
}

func TestSetSecret_RequiresSelection(t *testing.T) {
	s := newTestSession(t, newFakeDevice())
	if err := s.SetSecret("pass1234"); !device.IsValidationError(err) {
		t.Errorf("SetSecret() error = %v, want validation error", err)
	}
}
