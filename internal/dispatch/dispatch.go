// Package dispatch routes inbound envelopes to one handler per kind.
package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/jwulff/codesage/internal/wire"
)

// Handler consumes one inbound message.
type Handler func(wire.Inbound) error

// Dispatcher is a handler table keyed by envelope kind. It is not safe for concurrent
// use; the owning event loop registers handlers and dispatches from one goroutine.
type Dispatcher struct {
	handlers map[wire.Kind]Handler
	logger   *slog.Logger
}

// New creates an empty Dispatcher. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[wire.Kind]Handler),
		logger:   logger,
	}
}

// On registers h for kind, replacing any previous handler.
func (d *Dispatcher) On(kind wire.Kind, h Handler) {
	d.handlers[kind] = h
}

// Off removes the handler for kind.
func (d *Dispatcher) Off(kind wire.Kind) {
	delete(d.handlers, kind)
}

// Handles reports whether a handler is registered for kind.
func (d *Dispatcher) Handles(kind wire.Kind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Dispatch invokes the handler for msg. Handler errors and panics are logged and
// returned; they never affect later dispatches. An unhandled kind is logged and ignored.
func (d *Dispatcher) Dispatch(msg wire.Inbound) (err error) {
	if msg == nil {
		return nil
	}
	h, ok := d.handlers[msg.Kind()]
	if !ok {
		d.logger.Debug("no handler for inbound message", "type", msg.Kind())
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", msg.Kind(), r)
			d.logger.Error("inbound handler panicked", "type", msg.Kind(), "panic", r)
		}
	}()

	if err := h(msg); err != nil {
		d.logger.Warn("inbound handler failed", "type", msg.Kind(), "error", err)
		return fmt.Errorf("handle %s: %w", msg.Kind(), err)
	}
	return nil
}
