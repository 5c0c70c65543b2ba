package provision

import (
	"github.com/muurk/espcfg/internal/device"
)

// Snapshot is an immutable view of the session, sufficient for a front-end
// to render without reaching into protocol internals.
type Snapshot struct {
	SessionID string `json:"session_id"`
	Step      Step   `json:"step"`

	WifiVerified    TriState    `json:"wifi_verified"`
	ChannelVerified TriState    `json:"channel_verified"`
	WifiPhase       WifiPhase   `json:"wifi_phase"`
	SearchPhase     SearchPhase `json:"search_phase"`
	SubmitPhase     SubmitPhase `json:"submit_phase"`

	Loading     bool `json:"loading"`
	Scanning    bool `json:"scanning"`
	WifiBusy    bool `json:"wifi_busy"`
	SearchBusy  bool `json:"search_busy"`
	ChannelBusy bool `json:"channel_busy"`

	Networks        []device.AccessPoint `json:"networks"`
	SelectedSSID    string               `json:"selected_ssid,omitempty"`
	SelectedOpen    bool                 `json:"selected_open"`
	SelectedHidden  bool                 `json:"selected_hidden"`
	SelectedInRange bool                 `json:"selected_in_range"`
	HasSecret       bool                 `json:"has_secret"`

	Query             string                    `json:"query"`
	Candidates        []device.ChannelCandidate `json:"candidates"`
	SelectedCandidate *device.ChannelCandidate  `json:"selected_candidate,omitempty"`
	SubmissionID      string                    `json:"submission_id"`

	Address device.Address `json:"address"`
	Message string         `json:"message,omitempty"`
}

func (s *Session) snapshotLocked() Snapshot {
	st := &s.st
	snap := Snapshot{
		SessionID:       st.id,
		Step:            st.step,
		WifiVerified:    st.wifiVerified,
		ChannelVerified: st.channelVerified,
		WifiPhase:       st.wifiPhase,
		SearchPhase:     st.searchPhase,
		SubmitPhase:     st.submitPhase,
		Loading:         st.scanning || st.wifiBusy || st.searchBusy || st.channelBusy,
		Scanning:        st.scanning,
		WifiBusy:        st.wifiBusy,
		SearchBusy:      st.searchBusy,
		ChannelBusy:     st.channelBusy,
		Networks:        append([]device.AccessPoint(nil), st.networks...),
		Query:           st.query,
		Candidates:      append([]device.ChannelCandidate(nil), st.candidates...),
		SubmissionID:    st.submissionID,
		Address:         st.addr,
		Message:         st.message,
	}

	if c := st.credential; c != nil {
		snap.SelectedSSID = c.SSID
		snap.SelectedOpen = c.Open
		snap.SelectedHidden = c.Hidden
		snap.HasSecret = c.Secret != ""
		snap.SelectedInRange = s.inRangeLocked(c.SSID)
	}

	if st.candidateSelected && len(st.candidates) > 0 {
		c := st.candidates[0]
		snap.SelectedCandidate = &c
	}
	return snap
}

// Network returns the scanned network named ssid.
func (snap Snapshot) Network(ssid string) (device.AccessPoint, bool) {
	for _, ap := range snap.Networks {
		if ap.SSID == ssid {
			return ap, true
		}
	}
	return device.AccessPoint{}, false
}

// CanAdvance reports whether Advance would succeed from the current step.
func (snap Snapshot) CanAdvance() bool {
	switch snap.Step {
	case StepWifi:
		return snap.WifiPhase == WifiVerified && snap.WifiVerified == True
	case StepChannel:
		return snap.SubmitPhase == ChannelVerified && snap.ChannelVerified == True
	default:
		return false
	}
}
