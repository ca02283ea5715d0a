package speech

import (
	"context"
	"strings"
	"time"
)

// Collector folds recognition events into utterances. A final result opens a quiet
// window; partials arriving inside it push the window out, and further finals are
// appended. When the window closes the accumulated text is one utterance.
type Collector struct {
	quiet    time.Duration
	pending  []string
	deadline time.Time
}

// NewCollector creates a collector. A non-positive quiet uses DefaultQuietPeriod.
func NewCollector(quiet time.Duration) *Collector {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Collector{quiet: quiet}
}

// Observe records ev as seen at now.
func (c *Collector) Observe(ev Event, now time.Time) {
	text := strings.TrimSpace(ev.Text)
	if ev.Final {
		if text == "" {
			return
		}
		c.pending = append(c.pending, text)
		c.deadline = now.Add(c.quiet)
		return
	}
	if len(c.pending) > 0 {
		c.deadline = now.Add(c.quiet)
	}
}

// Deadline returns when the pending utterance completes, and false when nothing is
// pending.
func (c *Collector) Deadline() (time.Time, bool) {
	return c.deadline, len(c.pending) > 0
}

// Flush returns the completed utterance if the quiet window has closed by now.
func (c *Collector) Flush(now time.Time) (string, bool) {
	if len(c.pending) == 0 || now.Before(c.deadline) {
		return "", false
	}
	text := strings.Join(c.pending, " ")
	c.pending = nil
	c.deadline = time.Time{}
	return text, true
}

// Utterances listens on l and sends each completed utterance to the returned channel,
// which is closed when listening ends.
func Utterances(ctx context.Context, l Listener, quiet time.Duration) (<-chan string, error) {
	events, err := l.Listen(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		c := NewCollector(quiet)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		defer timer.Stop()

		emit := func(now time.Time) bool {
			text, ok := c.Flush(now)
			if !ok {
				return true
			}
			select {
			case out <- text:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					// The source ended; whatever was said still counts.
					if _, pending := c.Deadline(); pending {
						emit(time.Now().Add(c.quiet))
					}
					return
				}
				c.Observe(ev, time.Now())
				if deadline, pending := c.Deadline(); pending {
					timer.Reset(time.Until(deadline))
				}
			case now := <-timer.C:
				if !emit(now) {
					return
				}
				if deadline, pending := c.Deadline(); pending {
					timer.Reset(time.Until(deadline))
				}
			}
		}
	}()
	return out, nil
}
