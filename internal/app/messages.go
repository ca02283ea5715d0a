package app

import "github.com/jwulff/codesage/internal/transport"

// TransportEventMsg wraps one event from the session transport.
type TransportEventMsg struct {
	Event transport.Event
}

// TransportClosedMsg is sent when the transport's event stream ends.
type TransportClosedMsg struct{}

// TimerTickMsg advances the session timer by one tick.
type TimerTickMsg struct{}

// UtteranceMsg carries a finished spoken utterance to send as a chat message.
type UtteranceMsg struct {
	Text string
}

// SpeechClosedMsg is sent when the utterance stream ends.
type SpeechClosedMsg struct{}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
