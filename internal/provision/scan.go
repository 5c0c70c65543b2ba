package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
)

// Scan replaces the network list with a fresh scan from the device. A failed
// scan leaves the previous list in place.
func (s *Session) Scan(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.st.scanning {
		s.mu.Unlock()
		return failed(ErrInFlight)
	}
	s.st.scanning = true
	id, addr := s.st.id, s.st.addr
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, "scan", "started", zap.String("address", addr.String()))
	s.emit(snap, EventScanStarted)

	aps, err := s.dev.ScanNetworks(ctx, addr)

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.scanning = false

	if err != nil {
		s.st.message = device.GetShortErrorMessage(err)
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logging.LogProtocolEvent(id, "scan", "failed", zap.Error(err))
		s.emit(snap, EventScanFailed)
		return failed(fmt.Errorf("scan networks: %w", err))
	}

	// The device may not filter its own list.
	s.st.networks = device.FilterSupportedBand(aps)
	s.st.message = fmt.Sprintf("Found %d networks", len(s.st.networks))
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, "scan", "completed", zap.Int("networks", len(snap.Networks)))
	s.emit(snap, EventScanCompleted)
	return succeeded(snap.Message)
}

// SelectNetwork selects a scanned network. Selecting a different network
// discards the credential and verification tied to the previous one;
// selecting the selected network deselects it.
func (s *Session) SelectNetwork(ssid string) error {
	s.mu.Lock()
	if err := s.wifiEditableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	ap, ok := s.findNetworkLocked(ssid)
	if !ok {
		s.mu.Unlock()
		return device.NewValidationError(fmt.Sprintf("network %q is not in the scan results", ssid))
	}

	if c := s.st.credential; c != nil && c.SSID == ssid {
		s.st.credential = nil
	} else {
		s.st.credential = &WifiCredential{SSID: ap.SSID, Open: ap.Open()}
	}
	s.resetWifiLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap, EventSelectionChanged)
	return nil
}

// EnterNetwork selects a network by name, for networks that do not
// broadcast their SSID. Unless it appears in the scan results the network is
// assumed to be secured.
func (s *Session) EnterNetwork(ssid string) error {
	if err := device.ValidateSSID(ssid); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.wifiEditableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	if c := s.st.credential; c != nil && c.SSID == ssid {
		s.mu.Unlock()
		return nil
	}

	cred := &WifiCredential{SSID: ssid, Hidden: true}
	if ap, ok := s.findNetworkLocked(ssid); ok {
		cred.Open = ap.Open()
		cred.Hidden = false
	}
	s.st.credential = cred
	s.resetWifiLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap, EventSelectionChanged)
	return nil
}

// wifiEditableLocked reports why the WiFi credential cannot change right now.
func (s *Session) wifiEditableLocked() error {
	if s.st.step != StepWifi {
		return ErrStepLocked
	}
	if s.st.wifiBusy {
		return ErrInFlight
	}
	return nil
}

// resetWifiLocked forgets any verification tied to the previous credential.
func (s *Session) resetWifiLocked() {
	s.st.wifiVerified = Unknown
	s.st.wifiPhase = WifiIdle
	s.st.message = ""
}

func (s *Session) findNetworkLocked(ssid string) (device.AccessPoint, bool) {
	for _, ap := range s.st.networks {
		if ap.SSID == ssid {
			return ap, true
		}
	}
	return device.AccessPoint{}, false
}

func (s *Session) inRangeLocked(ssid string) bool {
	_, ok := s.findNetworkLocked(ssid)
	return ok
}
