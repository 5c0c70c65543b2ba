package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/poll"
)

const protocolWifi = "wifi"

// SetSecret stores the secret for the selected network.
func (s *Session) SetSecret(secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wifiEditableLocked(); err != nil {
		return err
	}
	if s.st.credential == nil {
		return device.NewValidationError("select a WiFi network first")
	}
	s.st.credential.Secret = secret
	return nil
}

// SubmitWifi sends the credential to the device at its access-point address
// and polls until the device reports the association. On confirmation the
// session switches to the station address. A failed attempt keeps the
// credential so it can be corrected and retried.
func (s *Session) SubmitWifi(ctx context.Context) Outcome {
	s.mu.Lock()
	if err := s.wifiEditableLocked(); err != nil {
		s.mu.Unlock()
		return failed(err)
	}
	cred := s.st.credential
	if cred == nil {
		s.mu.Unlock()
		return failed(device.NewValidationError("select a WiFi network first"))
	}
	if err := validateCredential(*cred); err != nil {
		s.st.message = device.GetShortErrorMessage(err)
		s.mu.Unlock()
		return failed(err)
	}

	id := s.st.id
	ssid, secret := cred.SSID, cred.Secret
	ap, station := s.opts.AccessPointAddress, s.opts.StationAddress

	s.st.wifiBusy = true
	s.st.wifiPhase = WifiSubmitting
	s.st.message = fmt.Sprintf("Sending credentials for %s", ssid)
	events := []EventType{EventWifiSubmitting}
	if s.setAddressLocked(ap) {
		events = append([]EventType{EventAddressChanged}, events...)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolWifi, WifiSubmitting.String(),
		zap.String("ssid", ssid),
		logging.SecretField("secret", secret),
		zap.String("address", ap.String()),
	)
	s.emit(snap, events...)

	if err := s.dev.SubmitWifi(ctx, ap, ssid, secret); err != nil {
		return s.finishWifiSubmitError(id, err)
	}

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.wifiPhase = WifiVerifying
	s.st.message = fmt.Sprintf("Waiting for the device to join %s", ssid)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolWifi, WifiVerifying.String())
	s.emit(snap, EventWifiVerifying)

	res := poll.Until(ctx, s.opts.Verification, func(ctx context.Context) (bool, error) {
		// The device may already have dropped its hotspot by the time it
		// confirms, so ask on both sides of the switch.
		if s.dev.VerifyWifi(ctx, ap) {
			return true, nil
		}
		return station != ap && s.dev.VerifyWifi(ctx, station), nil
	})

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.wifiBusy = false

	if !res.Confirmed {
		s.st.wifiVerified = False
		s.st.wifiPhase = WifiFailed
		err := device.NewVerificationError(fmt.Sprintf("device did not confirm the connection to %s after %d checks", ssid, res.Attempts))
		s.st.message = err.Message
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logging.LogProtocolEvent(id, protocolWifi, WifiFailed.String(),
			zap.Int("attempts", res.Attempts),
			zap.Bool("timed_out", res.TimedOut),
		)
		s.emit(snap, EventWifiFailed)
		return failed(err)
	}

	s.st.wifiVerified = True
	s.st.wifiPhase = WifiVerified
	s.st.message = fmt.Sprintf("Connected to %s", ssid)
	events = []EventType{EventWifiVerified}
	if s.setAddressLocked(station) {
		events = append(events, EventAddressChanged)
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolWifi, WifiVerified.String(),
		zap.Int("attempts", res.Attempts),
		zap.String("address", station.String()),
	)
	s.emit(snap, events...)
	return succeeded(snap.Message)
}

func (s *Session) finishWifiSubmitError(id string, err error) Outcome {
	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.wifiBusy = false
	s.st.wifiPhase = WifiFailed
	s.st.message = device.GetShortErrorMessage(err)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolWifi, WifiFailed.String(), zap.Error(err))
	s.emit(snap, EventWifiFailed)
	return failed(fmt.Errorf("submit wifi: %w", err))
}

func validateCredential(c WifiCredential) error {
	if err := device.ValidateSSID(c.SSID); err != nil {
		return err
	}
	return device.ValidateSecret(c.Secret, c.Open)
}
