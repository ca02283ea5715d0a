// Package speech adapts voice input and output to the interview session. Input is a
// stream of partial and final transcript events folded into whole utterances; output
// speaks assistant replies.
package speech

import (
	"context"
	"time"
)

// DefaultQuietPeriod is how long a final transcript must go without further partials
// before it counts as a finished utterance.
const DefaultQuietPeriod = 2 * time.Second

// Event is one recognition result.
type Event struct {
	Text  string
	Final bool
}

// Listener produces recognition events until ctx ends or the source fails. The
// returned channel is closed when listening stops.
type Listener interface {
	Listen(ctx context.Context) (<-chan Event, error)
}

// Speaker voices text without blocking the caller.
type Speaker interface {
	Speak(text string)
}
