package provision

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/poll"
)

// Device is the remote capability a Session drives. *device.Client
// implements it.
type Device interface {
	GetStatus(ctx context.Context, addr device.Address) (*device.Status, error)
	ScanNetworks(ctx context.Context, addr device.Address) ([]device.AccessPoint, error)
	SubmitWifi(ctx context.Context, addr device.Address, ssid, secret string) error
	VerifyWifi(ctx context.Context, addr device.Address) bool
	SearchChannel(ctx context.Context, addr device.Address, query string) (*device.ChannelCandidate, error)
	SubmitChannel(ctx context.Context, addr device.Address, id string) error
	VerifyChannel(ctx context.Context, addr device.Address, id string) (bool, error)
}

var _ Device = (*device.Client)(nil)

// Options configures a Session.
type Options struct {
	Device Device

	// AccessPointAddress is used while the device hosts its own hotspot.
	AccessPointAddress device.Address
	// StationAddress is used once the device has joined the target network.
	StationAddress device.Address
	// InitialAddress is the address at session start. It defaults to
	// AccessPointAddress.
	InitialAddress device.Address

	// Verification bounds the WiFi and channel verification polls.
	Verification poll.Options
}

// WifiCredential is the network choice and secret entered by the operator.
type WifiCredential struct {
	SSID   string
	Secret string
	Open   bool
	Hidden bool
}

type state struct {
	id   string
	step Step

	wifiVerified    TriState
	channelVerified TriState
	wifiPhase       WifiPhase
	searchPhase     SearchPhase
	submitPhase     SubmitPhase

	scanning    bool
	wifiBusy    bool
	searchBusy  bool
	channelBusy bool

	networks   []device.AccessPoint
	credential *WifiCredential

	query             string
	candidates        []device.ChannelCandidate
	candidateSelected bool
	submissionID      string

	addr    device.Address
	message string
}

// Session is one provisioning run. It is safe for concurrent use.
type Session struct {
	dev  Device
	opts Options

	mu sync.Mutex
	st state

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewSession creates a session at the wifi step.
func NewSession(opts Options) (*Session, error) {
	if opts.Device == nil {
		return nil, errors.New("provision: device is required")
	}

	opts.AccessPointAddress = orDefault(opts.AccessPointAddress, device.DefaultAccessPointAddress)
	opts.StationAddress = orDefault(opts.StationAddress, device.DefaultStationAddress)
	opts.InitialAddress = orDefault(opts.InitialAddress, string(opts.AccessPointAddress))
	if opts.Verification == (poll.Options{}) {
		opts.Verification = poll.DefaultOptions()
	}

	s := &Session{
		dev:  opts.Device,
		opts: opts,
		subs: make(map[int]func(Event)),
	}
	s.st = s.initialState()

	logging.Info("Provisioning session started",
		zap.String("session_id", s.st.id),
		zap.String("address", s.st.addr.String()),
	)
	return s, nil
}

func orDefault(addr device.Address, fallback string) device.Address {
	if n := device.NormalizeAddress(string(addr)); !n.IsZero() {
		return n
	}
	return device.NormalizeAddress(fallback)
}

func (s *Session) initialState() state {
	return state{
		id:   uuid.NewString(),
		step: StepWifi,
		addr: s.opts.InitialAddress,
	}
}

// ID returns the current session identifier. Reset assigns a new one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.id
}

// Options returns the effective options, defaults applied.
func (s *Session) Options() Options {
	return s.opts
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status reads the device status at the current address.
func (s *Session) Status(ctx context.Context) (*device.Status, error) {
	s.mu.Lock()
	addr := s.st.addr
	s.mu.Unlock()
	return s.dev.GetStatus(ctx, addr)
}

// Reset discards all progress and starts a new session at the initial
// address. Operations still running against the old session drop their
// results.
func (s *Session) Reset() {
	s.mu.Lock()
	old := s.st.id
	s.st = s.initialState()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.Info("Provisioning session reset",
		zap.String("previous_session_id", old),
		zap.String("session_id", snap.SessionID),
	)
	s.emit(snap, EventReset)
}

// setAddressLocked switches the current address and reports whether it
// changed.
func (s *Session) setAddressLocked(addr device.Address) bool {
	if s.st.addr == addr {
		return false
	}
	logging.Debug("Device address changed",
		zap.String("session_id", s.st.id),
		zap.String("from", s.st.addr.String()),
		zap.String("to", addr.String()),
	)
	s.st.addr = addr
	return true
}

// resume locks the session and verifies that the operation started under
// id still owns it. The caller must unlock when it returns true.
func (s *Session) resume(id string) bool {
	s.mu.Lock()
	if s.st.id != id {
		s.mu.Unlock()
		return false
	}
	return true
}
