package provision

// EventType names a session state change.
type EventType string

const (
	EventScanStarted   EventType = "scan_started"
	EventScanCompleted EventType = "scan_completed"
	EventScanFailed    EventType = "scan_failed"

	EventSelectionChanged EventType = "selection_changed"

	EventWifiSubmitting EventType = "wifi_submitting"
	EventWifiVerifying  EventType = "wifi_verifying"
	EventWifiVerified   EventType = "wifi_verified"
	EventWifiFailed     EventType = "wifi_failed"

	EventAddressChanged EventType = "address_changed"

	EventChannelSearching    EventType = "channel_searching"
	EventChannelResolved     EventType = "channel_resolved"
	EventChannelNotFound     EventType = "channel_not_found"
	EventChannelSearchFailed EventType = "channel_search_failed"

	EventChannelSubmitting EventType = "channel_submitting"
	EventChannelVerifying  EventType = "channel_verifying"
	EventChannelVerified   EventType = "channel_verified"
	EventChannelFailed     EventType = "channel_failed"

	EventStepChanged EventType = "step_changed"
	EventCompleted   EventType = "completed"
	EventReset       EventType = "reset"
)

// Event is delivered to subscribers after a state change.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. fn is called synchronously, outside the session lock, and
// may call back into the session.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Session) emit(snap Snapshot, types ...EventType) {
	s.subsMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, t := range types {
		for _, fn := range fns {
			fn(Event{Type: t, Snapshot: snap})
		}
	}
}
