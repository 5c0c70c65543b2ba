package provision

import "fmt"

// TriState is a verification result that distinguishes "not attempted"
// from "attempted and failed".
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

func (t TriState) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case True:
		return "true"
	case False:
		return "false"
	default:
		return fmt.Sprintf("TriState(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler
func (t TriState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Step is a wizard step.
type Step int

const (
	StepWifi Step = iota
	StepChannel
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepWifi:
		return "wifi"
	case StepChannel:
		return "channel"
	case StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// WifiPhase is the phase of the current WiFi attempt.
type WifiPhase int

const (
	WifiIdle WifiPhase = iota
	WifiSubmitting
	WifiVerifying
	WifiVerified
	WifiFailed
)

func (p WifiPhase) String() string {
	switch p {
	case WifiIdle:
		return "idle"
	case WifiSubmitting:
		return "submitting"
	case WifiVerifying:
		return "verifying"
	case WifiVerified:
		return "verified"
	case WifiFailed:
		return "failed"
	default:
		return fmt.Sprintf("WifiPhase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p WifiPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SearchPhase is the phase of the channel search.
type SearchPhase int

const (
	SearchIdle SearchPhase = iota
	Searching
	SearchResolved
	SearchNotFound
	SearchFailed
)

func (p SearchPhase) String() string {
	switch p {
	case SearchIdle:
		return "idle"
	case Searching:
		return "searching"
	case SearchResolved:
		return "resolved"
	case SearchNotFound:
		return "not_found"
	case SearchFailed:
		return "failed"
	default:
		return fmt.Sprintf("SearchPhase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p SearchPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SubmitPhase is the phase of the channel submission.
type SubmitPhase int

const (
	Unsubmitted SubmitPhase = iota
	ChannelSubmitting
	ChannelVerifying
	ChannelVerified
	ChannelFailed
)

func (p SubmitPhase) String() string {
	switch p {
	case Unsubmitted:
		return "unsubmitted"
	case ChannelSubmitting:
		return "submitting"
	case ChannelVerifying:
		return "verifying"
	case ChannelVerified:
		return "verified"
	case ChannelFailed:
		return "failed"
	default:
		return fmt.Sprintf("SubmitPhase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p SubmitPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
