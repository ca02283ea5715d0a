package session

import (
	"context"
	"time"

	"github.com/jwulff/codesage/internal/transport"
)

// Loop owns a Machine on a single goroutine. Local actions, timer ticks, and transport
// events are applied one at a time, in the order the loop receives them.
type Loop struct {
	m        *Machine
	events   <-chan transport.Event
	actions  chan func(*Machine)
	done     chan struct{}
	tick     <-chan time.Time
	stopTick func()
	onChange func(Snapshot)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTicks replaces the one-second ticker, mainly for tests.
func WithTicks(ticks <-chan time.Time) LoopOption {
	return func(l *Loop) { l.tick = ticks }
}

// OnChange is called with a fresh snapshot after every applied action, tick, or event.
func OnChange(f func(Snapshot)) LoopOption {
	return func(l *Loop) { l.onChange = f }
}

// NewLoop creates a loop for m fed by events.
func NewLoop(m *Machine, events <-chan transport.Event, opts ...LoopOption) *Loop {
	l := &Loop{
		m:       m,
		events:  events,
		actions: make(chan func(*Machine)),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tick == nil {
		ticker := time.NewTicker(TickInterval)
		l.tick = ticker.C
		l.stopTick = ticker.Stop
	}
	return l
}

// Do hands f to the loop and waits until the loop accepts it.
func (l *Loop) Do(ctx context.Context, f func(*Machine)) error {
	select {
	case l.actions <- f:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies work until ctx ends, then tears the machine down.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.m.Close()
	if l.stopTick != nil {
		defer l.stopTick()
	}

	events := l.events
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.actions:
			f(l.m)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.m.HandleEvent(ev)
		case <-l.tick:
			l.m.Tick()
		}
		if l.onChange != nil {
			l.onChange(l.m.Snapshot())
		}
	}
}
