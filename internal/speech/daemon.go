package speech

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwulff/codesage/internal/daemon"
)

// DaemonListener streams recognition events from a steno speech daemon.
type DaemonListener struct {
	SocketPath string
	Logger     *slog.Logger
}

// Listen connects and subscribes. Partials map to non-final events and segments to
// final ones; other daemon events are ignored.
func (d DaemonListener) Listen(ctx context.Context) (<-chan Event, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := d.SocketPath
	if path == "" {
		path = daemon.SocketPath()
	}

	client, err := daemon.Connect(path)
	if err != nil {
		return nil, err
	}
	if err := client.Subscribe(daemon.EventPartial, daemon.EventSegment, daemon.EventError); err != nil {
		client.Close()
		return nil, fmt.Errorf("speech daemon: %w", err)
	}

	out := make(chan Event)
	stop := context.AfterFunc(ctx, func() { client.Close() })
	go func() {
		defer close(out)
		defer stop()
		defer client.Close()

		for {
			ev, err := client.ReadEvent()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("speech daemon stream ended", "error", err)
				}
				return
			}

			var next Event
			switch ev.Event {
			case daemon.EventPartial:
				next = Event{Text: ev.Text}
			case daemon.EventSegment:
				next = Event{Text: ev.Text, Final: true}
			case daemon.EventError:
				logger.Warn("speech daemon error", "message", ev.Message)
				continue
			default:
				continue
			}

			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
