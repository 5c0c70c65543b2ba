package provision

import (
	"github.com/muurk/espcfg/internal/logging"
)

// Advance moves to the next step. Leaving the wifi step requires a verified
// WiFi connection and leaving the channel step requires a verified channel;
// otherwise ErrStepLocked is returned. The complete step is final.
func (s *Session) Advance() error {
	s.mu.Lock()
	from := s.st.step
	snap := s.snapshotLocked()

	switch {
	case from == StepComplete:
		s.mu.Unlock()
		return ErrSessionComplete
	case !snap.CanAdvance():
		s.mu.Unlock()
		return ErrStepLocked
	}

	events := []EventType{EventStepChanged}
	if from == StepWifi {
		s.st.step = StepChannel
		s.st.message = ""
	} else {
		s.st.step = StepComplete
		s.st.message = "Provisioning complete"
		events = append(events, EventCompleted)
	}
	id, to := s.st.id, s.st.step
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogTransition(id, from.String(), to.String())
	s.emit(snap, events...)
	return nil
}

// Back returns from the channel step to the wifi step. Trust is not carried
// across the step exit: WiFi verification goes back to Unknown and the
// credential is cleared, so the connection has to be verified again.
func (s *Session) Back() error {
	s.mu.Lock()
	switch s.st.step {
	case StepComplete:
		s.mu.Unlock()
		return ErrSessionComplete
	case StepWifi:
		s.mu.Unlock()
		return ErrStepLocked
	}
	if s.st.searchBusy || s.st.channelBusy {
		s.mu.Unlock()
		return ErrInFlight
	}

	s.st.step = StepWifi
	s.st.credential = nil
	s.resetWifiLocked()
	id := s.st.id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogTransition(id, StepChannel.String(), StepWifi.String())
	s.emit(snap, EventStepChanged, EventSelectionChanged)
	return nil
}
