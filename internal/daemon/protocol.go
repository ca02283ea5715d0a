// Package daemon speaks the steno-daemon NDJSON protocol over a Unix socket. The
// daemon does on-device speech recognition; codesage uses it as its voice input.
package daemon

// Event names the client subscribes to.
const (
	EventPartial = "partial"
	EventSegment = "segment"
	EventStatus  = "status"
	EventError   = "error"
)

// Command is sent from a client to the daemon.
type Command struct {
	Cmd    string   `json:"cmd"`
	Locale string   `json:"locale,omitempty"`
	Device string   `json:"device,omitempty"`
	Events []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId,omitempty"`
	Recording *bool  `json:"recording,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event          string `json:"event"`
	Text           string `json:"text,omitempty"`
	Source         string `json:"source,omitempty"`
	SequenceNumber *int   `json:"sequenceNumber,omitempty"`
	Message        string `json:"message,omitempty"`
	Transient      *bool  `json:"transient,omitempty"`
	Recording      *bool  `json:"recording,omitempty"`
}
