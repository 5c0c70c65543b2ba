package provision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/poll"
)

const protocolChannel = "channel"

// SetQuery updates the channel search text. Changing the text while a
// candidate is selected deselects it and clears the submission identifier,
// so the text and the submitted identity never diverge.
func (s *Session) SetQuery(text string) error {
	s.mu.Lock()
	if s.st.channelBusy {
		s.mu.Unlock()
		return ErrInFlight
	}
	if text == s.st.query {
		s.mu.Unlock()
		return nil
	}
	s.st.query = text

	if !s.st.candidateSelected {
		s.mu.Unlock()
		return nil
	}
	s.st.candidateSelected = false
	s.setSubmissionLocked("")
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap, EventSelectionChanged)
	return nil
}

// SearchChannel resolves the current query against the device catalog.
// Blank queries are rejected without contacting the device.
func (s *Session) SearchChannel(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.st.searchBusy {
		s.mu.Unlock()
		return failed(ErrInFlight)
	}
	if err := device.ValidateQuery(s.st.query); err != nil {
		s.st.message = device.GetShortErrorMessage(err)
		s.mu.Unlock()
		return failed(err)
	}

	id, addr := s.st.id, s.st.addr
	query := strings.TrimSpace(s.st.query)
	s.st.searchBusy = true
	s.st.searchPhase = Searching
	s.st.message = fmt.Sprintf("Searching for %q", query)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolChannel, Searching.String(), zap.String("query", query))
	s.emit(snap, EventChannelSearching)

	cand, err := s.dev.SearchChannel(ctx, addr, query)

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.searchBusy = false

	// The text was edited while the device searched. Its answer belongs to
	// the old text and must not become selectable under the new one.
	if strings.TrimSpace(s.st.query) != query {
		s.st.searchPhase = SearchIdle
		s.st.candidates = nil
		if s.st.candidateSelected {
			s.st.candidateSelected = false
			s.setSubmissionLocked("")
		}
		s.st.message = ErrQueryChanged.Message
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logging.LogProtocolEvent(id, protocolChannel, "stale",
			zap.String("query", query),
			zap.String("current_query", snap.Query),
		)
		s.emit(snap, EventSelectionChanged)
		return failed(ErrQueryChanged)
	}

	var event EventType
	var out Outcome
	switch {
	case err != nil:
		s.st.searchPhase = SearchFailed
		s.st.message = device.GetShortErrorMessage(err)
		event = EventChannelSearchFailed
		out = failed(fmt.Errorf("search channel: %w", err))

	case cand == nil:
		s.st.searchPhase = SearchNotFound
		s.st.candidates = nil
		s.st.candidateSelected = false
		s.st.message = fmt.Sprintf("No channel matches %q", query)
		event = EventChannelNotFound
		out = succeeded(s.st.message)

	default:
		if s.st.candidateSelected && (len(s.st.candidates) == 0 || s.st.candidates[0].ID != cand.ID) {
			s.st.candidateSelected = false
			s.setSubmissionLocked("")
		}
		s.st.searchPhase = SearchResolved
		s.st.candidates = []device.ChannelCandidate{*cand}
		s.st.message = fmt.Sprintf("Found %s", cand.Title)
		event = EventChannelResolved
		out = succeeded(s.st.message)
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolChannel, snap.SearchPhase.String(), zap.Int("candidates", len(snap.Candidates)))
	s.emit(snap, event)
	return out
}

// SelectCandidate selects the resolved candidate and copies its identifier
// into the submission field. Selecting it again deselects it.
func (s *Session) SelectCandidate() error {
	s.mu.Lock()
	if s.st.channelBusy {
		s.mu.Unlock()
		return ErrInFlight
	}
	if len(s.st.candidates) == 0 {
		s.mu.Unlock()
		return device.NewValidationError("search for a channel first")
	}

	cand := s.st.candidates[0]
	if s.st.candidateSelected {
		s.st.candidateSelected = false
		if s.st.submissionID == cand.ID {
			s.setSubmissionLocked("")
		}
	} else {
		s.st.candidateSelected = true
		s.setSubmissionLocked(cand.ID)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap, EventSelectionChanged)
	return nil
}

// SetChannelID sets the submission identifier directly. An identifier that
// differs from the selected candidate deselects it.
func (s *Session) SetChannelID(id string) error {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	if s.st.channelBusy {
		s.mu.Unlock()
		return ErrInFlight
	}
	if s.st.candidateSelected && s.st.candidates[0].ID != id {
		s.st.candidateSelected = false
	}
	s.setSubmissionLocked(id)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap, EventSelectionChanged)
	return nil
}

// SubmitChannel sends the submission identifier to the device and polls
// until the device reports it as its tracked channel. The submission field
// is never modified, so a failed attempt can be retried as is.
func (s *Session) SubmitChannel(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.st.channelBusy {
		s.mu.Unlock()
		return failed(ErrInFlight)
	}
	channelID := s.st.submissionID
	if err := device.ValidateChannelID(channelID); err != nil {
		s.st.message = device.GetShortErrorMessage(err)
		s.mu.Unlock()
		return failed(err)
	}

	id, addr := s.st.id, s.st.addr
	s.st.channelBusy = true
	s.st.submitPhase = ChannelSubmitting
	s.st.message = fmt.Sprintf("Sending channel %s", channelID)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolChannel, ChannelSubmitting.String(),
		zap.String("channel_id", channelID),
		zap.String("address", addr.String()),
	)
	s.emit(snap, EventChannelSubmitting)

	if err := s.dev.SubmitChannel(ctx, addr, channelID); err != nil {
		if !s.resume(id) {
			return failed(ErrSessionReset)
		}
		s.st.channelBusy = false
		s.st.submitPhase = ChannelFailed
		s.st.message = device.GetShortErrorMessage(err)
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logging.LogProtocolEvent(id, protocolChannel, ChannelFailed.String(), zap.Error(err))
		s.emit(snap, EventChannelFailed)
		return failed(fmt.Errorf("submit channel: %w", err))
	}

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.submitPhase = ChannelVerifying
	s.st.message = "Waiting for the device to confirm the channel"
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolChannel, ChannelVerifying.String())
	s.emit(snap, EventChannelVerifying)

	answered := false
	res := poll.Until(ctx, s.opts.Verification, func(ctx context.Context) (bool, error) {
		ok, err := s.dev.VerifyChannel(ctx, addr, channelID)
		if err == nil {
			answered = true
		}
		return ok, err
	})

	if !s.resume(id) {
		return failed(ErrSessionReset)
	}
	s.st.channelBusy = false

	if res.Confirmed {
		s.st.channelVerified = True
		s.st.submitPhase = ChannelVerified
		s.st.message = fmt.Sprintf("Device is tracking %s", channelID)
		snap = s.snapshotLocked()
		s.mu.Unlock()

		logging.LogProtocolEvent(id, protocolChannel, ChannelVerified.String(), zap.Int("attempts", res.Attempts))
		s.emit(snap, EventChannelVerified)
		return succeeded(snap.Message)
	}

	s.st.channelVerified = False
	s.st.submitPhase = ChannelFailed

	// Only a device that actually answered can be said to have rejected the
	// channel; otherwise it was never reached.
	var err error
	if answered {
		err = device.NewVerificationError(fmt.Sprintf("device does not report %s as its channel", channelID))
	} else if res.LastErr != nil {
		err = fmt.Errorf("verify channel: %w", res.LastErr)
	} else {
		err = device.NewNetworkError("channel verification timed out", addr, context.DeadlineExceeded)
	}
	s.st.message = device.GetShortErrorMessage(err)
	snap = s.snapshotLocked()
	s.mu.Unlock()

	logging.LogProtocolEvent(id, protocolChannel, ChannelFailed.String(),
		zap.Int("attempts", res.Attempts),
		zap.Bool("answered", answered),
		zap.Bool("timed_out", res.TimedOut),
	)
	s.emit(snap, EventChannelFailed)
	return failed(err)
}

// setSubmissionLocked changes the submission identifier. Verification of a
// previous identifier does not carry over to a new one.
func (s *Session) setSubmissionLocked(id string) {
	if id == s.st.submissionID {
		return
	}
	s.st.submissionID = id
	s.st.channelVerified = Unknown
	s.st.submitPhase = Unsubmitted
}
