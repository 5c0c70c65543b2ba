package provision

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/devicesim"
)

func newSimSession(t *testing.T, timeout time.Duration) (*Session, *devicesim.Device) {
	t.Helper()
	sim := devicesim.New(devicesim.DefaultConfig())
	apServer := httptest.NewServer(sim.AccessPointHandler())
	stationServer := httptest.NewServer(sim.StationHandler())
	t.Cleanup(apServer.Close)
	t.Cleanup(stationServer.Close)

	s, err := NewSession(Options{
		Device:             device.NewClient(timeout),
		AccessPointAddress: device.Address(apServer.URL),
		StationAddress:     device.Address(stationServer.URL),
		Verification:       testPollOptions(),
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, sim
}

func TestSimulator_EndToEnd(t *testing.T) {
	s, sim := newSimSession(t, 2*time.Second)
	ctx := context.Background()

	if out := s.Scan(ctx); !out.Success {
		t.Fatalf("Scan() = %+v", out)
	}
	if _, ok := s.Snapshot().Network("Home WiFi 5G"); ok {
		t.Error("5 GHz network is selectable")
	}

	apAddr := s.Snapshot().Address
	_ = s.SelectNetwork("Home WiFi")
	_ = s.SetSecret("pass1234")
	if out := s.SubmitWifi(ctx); !out.Success {
		t.Fatalf("SubmitWifi() = %+v", out)
	}
	if !sim.Associated() {
		t.Error("simulator did not associate")
	}
	if addr := s.Snapshot().Address; addr == apAddr {
		t.Error("address did not switch to the station address")
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	_ = s.SetQuery("mkbhd")
	if out := s.SearchChannel(ctx); !out.Success {
		t.Fatalf("SearchChannel() = %+v", out)
	}
	if err := s.SelectCandidate(); err != nil {
		t.Fatalf("SelectCandidate() error = %v", err)
	}
	if out := s.SubmitChannel(ctx); !out.Success {
		t.Fatalf("SubmitChannel() = %+v", out)
	}
	if got := sim.ChannelID(); got != "UCBJycsmduvYEL83R_U4JriQ" {
		t.Errorf("device channel = %q", got)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.WifiConnected || status.TrackedChannelID != "UCBJycsmduvYEL83R_U4JriQ" {
		t.Errorf("status = %+v", status)
	}
}

func TestSimulator_WrongSecretFails(t *testing.T) {
	s, sim := newSimSession(t, 2*time.Second)
	ctx := context.Background()
	s.Scan(ctx)
	_ = s.SelectNetwork("Home WiFi")
	_ = s.SetSecret("wrong-secret")

	out := s.SubmitWifi(ctx)
	if out.Kind != device.KindVerificationFailed {
		t.Errorf("SubmitWifi() = %+v, want verification failure", out)
	}
	if sim.Associated() {
		t.Error("simulator associated with a wrong secret")
	}
	if !s.Snapshot().HasSecret {
		t.Error("secret dropped after a failed attempt")
	}
}

func TestSimulator_SubmitChannelTimeout(t *testing.T) {
	s, sim := newSimSession(t, 100*time.Millisecond)
	sim.SetFailures(devicesim.Failures{SlowSubmitChannel: time.Second})
	ctx := context.Background()

	_ = s.SetChannelID("UCBJycsmduvYEL83R_U4JriQ")
	out := s.SubmitChannel(ctx)

	if out.Success || out.Kind != device.KindCommunication {
		t.Fatalf("SubmitChannel() = %+v, want communication failure", out)
	}
	snap := s.Snapshot()
	if snap.SubmitPhase != ChannelFailed {
		t.Errorf("SubmitPhase = %v, want failed", snap.SubmitPhase)
	}
	if snap.SubmissionID != "UCBJycsmduvYEL83R_U4JriQ" {
		t.Errorf("SubmissionID = %q, want it unchanged", snap.SubmissionID)
	}
	if sim.Requests("POST /youtube/verify") != 0 {
		t.Error("verification ran after a failed submission")
	}
}
