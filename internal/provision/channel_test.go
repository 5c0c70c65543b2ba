package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/muurk/espcfg/internal/device"
)

func channelSession(t *testing.T) (*Session, *fakeDevice) {
	t.Helper()
	f := newFakeDevice()
	c := mkbhd
	f.candidate = &c
	return verifiedWifiSession(t, f), f
}

func TestSearchChannel_Mkbhd(t *testing.T) {
	s, f := channelSession(t)

	_ = s.SetQuery("mkbhd")
	out := s.SearchChannel(context.Background())
	if !out.Success {
		t.Fatalf("SearchChannel() = %+v", out)
	}

	snap := s.Snapshot()
	if snap.SearchPhase != SearchResolved {
		t.Errorf("SearchPhase = %v, want resolved", snap.SearchPhase)
	}
	if diff := cmp.Diff([]device.ChannelCandidate{mkbhd}, snap.Candidates); diff != "" {
		t.Errorf("Candidates mismatch (-want +got):\n%s", diff)
	}
	if f.lastQuery != "mkbhd" {
		t.Errorf("device query = %q", f.lastQuery)
	}

	if err := s.SelectCandidate(); err != nil {
		t.Fatalf("SelectCandidate() error = %v", err)
	}
	snap = s.Snapshot()
	if snap.SubmissionID != "UCBJycsmduvYEL83R_U4JriQ" {
		t.Errorf("SubmissionID = %q", snap.SubmissionID)
	}
	if snap.SelectedCandidate == nil || snap.SelectedCandidate.ID != mkbhd.ID {
		t.Errorf("SelectedCandidate = %+v", snap.SelectedCandidate)
	}

	// Editing the text must not leave a stale identity behind.
	_ = s.SetQuery("mkbhd2")
	snap = s.Snapshot()
	if snap.SelectedCandidate != nil || snap.SubmissionID != "" {
		t.Errorf("editing the query kept the selection: %+v", snap)
	}
}

func TestSetQuery_SameTextKeepsSelection(t *testing.T) {
	s, _ := channelSession(t)
	_ = s.SetQuery("mkbhd")
	s.SearchChannel(context.Background())
	_ = s.SelectCandidate()

	_ = s.SetQuery("mkbhd")
	if s.Snapshot().SubmissionID != mkbhd.ID {
		t.Error("unchanged query cleared the selection")
	}
}

func TestSelectCandidate_Toggle(t *testing.T) {
	s, _ := channelSession(t)
	_ = s.SetQuery("mkbhd")
	s.SearchChannel(context.Background())

	_ = s.SelectCandidate()
	_ = s.SelectCandidate()

	snap := s.Snapshot()
	if snap.SelectedCandidate != nil || snap.SubmissionID != "" {
		t.Errorf("second SelectCandidate() should deselect: %+v", snap)
	}
}

func TestSelectCandidate_RequiresResult(t *testing.T) {
	s, _ := channelSession(t)
	if err := s.SelectCandidate(); !device.IsValidationError(err) {
		t.Errorf("SelectCandidate() error = %v, want validation error", err)
	}
}

func TestSearchChannel_BlankQuerySkipsDevice(t *testing.T) {
	s, f := channelSession(t)
	before := len(f.Calls())

	for _, q := range []string{"", "   "} {
		_ = s.SetQuery(q)
		out := s.SearchChannel(context.Background())
		if out.Success || out.Kind != device.KindValidation {
			t.Errorf("SearchChannel(%q) = %+v, want validation failure", q, out)
		}
		if msg := s.Snapshot().Message; msg == "" || msg != out.Message {
			t.Errorf("Message = %q, want the outcome message %q", msg, out.Message)
		}
	}
	if got := len(f.Calls()); got != before {
		t.Errorf("device was called %d times", got-before)
	}
}

func TestSearchChannel_NotFound(t *testing.T) {
	s, f := channelSession(t)
	_ = s.SetQuery("mkbhd")
	s.SearchChannel(context.Background())

	f.mu.Lock()
	f.candidate = nil
	f.mu.Unlock()
	_ = s.SetQuery("nobody")
	out := s.SearchChannel(context.Background())

	if !out.Success {
		t.Errorf("SearchChannel() = %+v, want a completed search", out)
	}
	snap := s.Snapshot()
	if snap.SearchPhase != SearchNotFound || len(snap.Candidates) != 0 {
		t.Errorf("snapshot = %v / %+v, want not found with no candidates", snap.SearchPhase, snap.Candidates)
	}
}

func TestSearchChannel_Failure(t *testing.T) {
	s, f := channelSession(t)
	f.searchErr = device.NewHTTPError(testStation, 500, "boom")
	_ = s.SetQuery("mkbhd")

	out := s.SearchChannel(context.Background())
	if out.Success || out.Kind != device.KindCommunication {
		t.Errorf("SearchChannel() = %+v, want communication failure", out)
	}
	if phase := s.Snapshot().SearchPhase; phase != SearchFailed {
		t.Errorf("SearchPhase = %v, want failed", phase)
	}
}

func TestSetChannelID_DeselectsOnMismatch(t *testing.T) {
	s, _ := channelSession(t)
	_ = s.SetQuery("mkbhd")
	s.SearchChannel(context.Background())
	_ = s.SelectCandidate()

	_ = s.SetChannelID(" UC999 ")
	snap := s.Snapshot()
	if snap.SubmissionID != "UC999" {
		t.Errorf("SubmissionID = %q, want UC999", snap.SubmissionID)
	}
	if snap.SelectedCandidate != nil {
		t.Error("candidate still selected after typing a different id")
	}
}

func TestSubmitChannel_Verified(t *testing.T) {
	s, f := channelSession(t)
	_ = s.SetChannelID(mkbhd.ID)

	out := s.SubmitChannel(context.Background())
	if !out.Success {
		t.Fatalf("SubmitChannel() = %+v", out)
	}
	snap := s.Snapshot()
	if snap.SubmitPhase != ChannelVerified || snap.ChannelVerified != True {
		t.Errorf("phase = %v, verified = %v", snap.SubmitPhase, snap.ChannelVerified)
	}

	// Channel calls go to the station address once WiFi is verified.
	calls := f.Calls()
	if last := calls[len(calls)-1]; last != "verify_channel "+string(testStation) {
		t.Errorf("last call = %q", last)
	}
}

func TestSubmitChannel_Mismatch(t *testing.T) {
	s, f := channelSession(t)
	f.verifyChannel = func(string) (bool, error) { return false, nil }
	_ = s.SetChannelID(mkbhd.ID)

	out := s.SubmitChannel(context.Background())
	if out.Success || out.Kind != device.KindVerificationFailed {
		t.Fatalf("SubmitChannel() = %+v, want verification failure", out)
	}
	snap := s.Snapshot()
	if snap.SubmitPhase != ChannelFailed || snap.ChannelVerified != False {
		t.Errorf("phase = %v, verified = %v", snap.SubmitPhase, snap.ChannelVerified)
	}
}

func TestSubmitChannel_VerifyUnreachable(t *testing.T) {
	s, f := channelSession(t)
	f.verifyChannel = func(string) (bool, error) {
		return false, device.NewNetworkError("POST /youtube/verify failed", testStation, context.DeadlineExceeded)
	}
	_ = s.SetChannelID(mkbhd.ID)

	out := s.SubmitChannel(context.Background())
	if out.Kind != device.KindCommunication {
		t.Errorf("SubmitChannel() = %+v, want communication failure", out)
	}
	if got := s.Snapshot().ChannelVerified; got != False {
		t.Errorf("ChannelVerified = %v, want false", got)
	}
}

func TestSubmitChannel_TransportFailureKeepsSubmission(t *testing.T) {
	s, f := channelSession(t)
	f.submitChannelErr = device.NewNetworkError("POST /youtube failed", testStation, context.DeadlineExceeded)
	_ = s.SetChannelID(mkbhd.ID)

	out := s.SubmitChannel(context.Background())
	if out.Success || out.Kind != device.KindCommunication {
		t.Fatalf("SubmitChannel() = %+v, want communication failure", out)
	}
	if !device.IsTimeout(out.Err) {
		t.Errorf("Err = %v, want timeout", out.Err)
	}

	snap := s.Snapshot()
	if snap.SubmitPhase != ChannelFailed {
		t.Errorf("SubmitPhase = %v, want failed", snap.SubmitPhase)
	}
	if snap.SubmissionID != mkbhd.ID {
		t.Errorf("SubmissionID = %q, want it unchanged for retry", snap.SubmissionID)
	}
	if snap.ChannelVerified != Unknown {
		t.Errorf("ChannelVerified = %v, want unknown", snap.ChannelVerified)
	}
}

func TestSubmitChannel_Validation(t *testing.T) {
	s, f := channelSession(t)
	before := len(f.Calls())

	out := s.SubmitChannel(context.Background())
	if out.Kind != device.KindValidation {
		t.Errorf("SubmitChannel() = %+v, want validation failure", out)
	}
	if msg := s.Snapshot().Message; msg == "" || msg != out.Message {
		t.Errorf("Message = %q, want the outcome message %q", msg, out.Message)
	}
	if len(f.Calls()) != before {
		t.Error("device called without a channel id")
	}
}

func TestSubmitChannel_RejectsOverlap(t *testing.T) {
	s, f := channelSession(t)
	gate := f.block("submit_channel")
	_ = s.SetChannelID(mkbhd.ID)

	done := make(chan Outcome)
	go func() { done <- s.SubmitChannel(context.Background()) }()
	waitEntered(t, f, "submit_channel")

	if out := s.SubmitChannel(context.Background()); !errors.Is(out.Err, ErrInFlight) {
		t.Errorf("second SubmitChannel() = %+v, want ErrInFlight", out)
	}
	if err := s.SetChannelID("UC999"); !errors.Is(err, ErrInFlight) {
		t.Errorf("SetChannelID() during submission error = %v, want ErrInFlight", err)
	}
	if err := s.SetQuery("other"); !errors.Is(err, ErrInFlight) {
		t.Errorf("SetQuery() during submission error = %v, want ErrInFlight", err)
	}

	close(gate)
	if out := <-done; !out.Success {
		t.Errorf("first SubmitChannel() = %+v", out)
	}
}

func TestSearchChannel_QueryEditedDuringSearch(t *testing.T) {
	s, f := channelSession(t)
	_ = s.SetQuery("mkbhd")
	gate := f.block("search")

	done := make(chan Outcome, 1)
	go func() { done <- s.SearchChannel(context.Background()) }()
	waitEntered(t, f, "search")

	if err := s.SetQuery("linus"); err != nil {
		t.Fatalf("SetQuery() during search error = %v", err)
	}
	close(gate)

	out := <-done
	if out.Success || !errors.Is(out.Err, ErrQueryChanged) || out.Kind != device.KindValidation {
		t.Errorf("SearchChannel() = %+v, want ErrQueryChanged", out)
	}

	snap := s.Snapshot()
	if snap.Query != "linus" {
		t.Errorf("Query = %q, want linus", snap.Query)
	}
	if snap.SearchPhase != SearchIdle {
		t.Errorf("SearchPhase = %v, want idle", snap.SearchPhase)
	}
	if len(snap.Candidates) != 0 {
		t.Errorf("Candidates = %+v, want none", snap.Candidates)
	}
	if err := s.SelectCandidate(); !device.IsValidationError(err) {
		t.Errorf("SelectCandidate() error = %v, want validation error", err)
	}
	if snap = s.Snapshot(); snap.SubmissionID != "" || snap.SelectedCandidate != nil {
		t.Errorf("stale result reached the submission: id=%q selected=%+v", snap.SubmissionID, snap.SelectedCandidate)
	}
}

func TestSearchChannel_NewIdentityClearsSubmission(t *testing.T) {
	s, f := channelSession(t)
	_ = s.SetQuery("mkbhd")
	s.SearchChannel(context.Background())
	_ = s.SelectCandidate()

	f.mu.Lock()
	f.candidate = &device.ChannelCandidate{ID: "UCother", Title: "Someone Else"}
	f.mu.Unlock()

	if out := s.SearchChannel(context.Background()); !out.Success {
		t.Fatalf("SearchChannel() = %+v", out)
	}
	snap := s.Snapshot()
	if snap.SelectedCandidate != nil {
		t.Errorf("SelectedCandidate = %+v, want none", snap.SelectedCandidate)
	}
	if snap.SubmissionID != "" {
		t.Errorf("SubmissionID = %q, want empty", snap.SubmissionID)
	}
}
