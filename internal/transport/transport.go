// Package transport maintains one live duplex connection per interview session,
// reconnecting with linear backoff and delivering inbound envelopes and state changes
// through a single ordered event channel.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jwulff/codesage/internal/wire"
)

// State is the connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	// ErrNotConnected is returned by Send when no connection is open.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrSendBufferFull is returned by Send when the writer is backed up.
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Config controls addressing and the reconnect schedule.
type Config struct {
	// URL is the base endpoint; the session id is appended as the final path segment.
	URL          string
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	// MaxAttempts bounds consecutive reconnects. Zero uses the default; negative
	// disables reconnecting.
	MaxAttempts  int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

// DefaultConfig returns the stock reconnect schedule: 2s, 4s, 6s, 8s, 10s, then give up.
func DefaultConfig() Config {
	return Config{
		URL:          "ws://localhost:8000/ws",
		BaseDelay:    2 * time.Second,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  5,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// Event is either an inbound message (Message != nil) or a state change.
type Event struct {
	Message wire.Inbound
	State   State
	// Attempt and Delay describe a scheduled reconnect; zero when none was scheduled.
	Attempt int
	Delay   time.Duration
	// GaveUp is set on the final disconnected event once attempts are exhausted.
	GaveUp bool
}

// IsMessage reports whether the event carries an inbound envelope.
func (e Event) IsMessage() bool { return e.Message != nil }

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithDialer replaces the websocket dialer.
func WithDialer(d DialFunc) Option {
	return func(t *Transport) { t.dial = d }
}

// WithAfterFunc replaces time.AfterFunc for reconnect scheduling.
func WithAfterFunc(f func(time.Duration, func()) Stopper) Option {
	return func(t *Transport) { t.afterFunc = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithClock sets the clock used to stamp outbound envelopes.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) { t.now = now }
}

// Transport owns at most one live connection at a time.
type Transport struct {
	cfg       Config
	dial      DialFunc
	afterFunc func(time.Duration, func()) Stopper
	now       func() time.Time
	logger    *slog.Logger
	box       *mailbox

	mu        sync.Mutex
	state     State
	sessionID string
	attempts  int
	// gen increments on every explicit Connect/Disconnect. Goroutines started for an
	// older generation drop their results.
	gen    uint64
	conn   Conn
	out    chan []byte
	cancel context.CancelFunc
	retry  Stopper
	closed bool
}

// New creates a disconnected Transport.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:  cfg.withDefaults(),
		dial: DialWebSocket,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.box = newMailbox()
	return t
}

// Events returns the ordered event stream. It is closed by Close.
func (t *Transport) Events() <-chan Event {
	return t.box.out
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Attempts returns the number of reconnect attempts since the last successful open.
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Connect opens a connection for sessionID, closing any existing one first and
// resetting the attempt counter.
func (t *Transport) Connect(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.conn != nil || t.cancel != nil || t.retry != nil {
		t.logger.Info("replacing existing connection", "session_id", t.sessionID)
	}
	t.teardownLocked()
	t.gen++
	t.sessionID = sessionID
	t.attempts = 0
	t.openLocked()
}

// Disconnect closes the connection and cancels any pending reconnect. Safe to repeat.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.teardownLocked()
	t.attempts = 0
	if t.state != StateDisconnected {
		t.setStateLocked(StateDisconnected, Event{})
	}
}

// Close disconnects and ends the event stream. Connect after Close does nothing.
func (t *Transport) Close() {
	t.Disconnect()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.box.close()
}

// Send encodes msg and queues it for the writer. Messages are dropped, never buffered
// for later, while no connection is open.
func (t *Transport) Send(msg wire.Outbound) error {
	data, err := wire.Encode(msg, t.now())
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateConnected || t.out == nil {
		t.logger.Warn("dropping outbound message, not connected",
			"type", msg.Kind(), "state", t.state.String())
		return ErrNotConnected
	}
	select {
	case t.out <- data:
		return nil
	default:
		t.logger.Warn("dropping outbound message, send buffer full", "type", msg.Kind())
		return ErrSendBufferFull
	}
}

func (t *Transport) openLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.retry = nil
	t.setStateLocked(StateConnecting, Event{})
	go t.run(ctx, t.gen, t.sessionID)
}

func (t *Transport) teardownLocked() {
	if t.retry != nil {
		t.retry.Stop()
		t.retry = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.out = nil
}

func (t *Transport) setStateLocked(s State, ev Event) {
	t.state = s
	ev.State = s
	t.box.push(ev)
}

func (t *Transport) run(ctx context.Context, gen uint64, sessionID string) {
	endpoint := Endpoint(t.cfg.URL, sessionID)

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	conn, err := t.dial(dialCtx, endpoint)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warn("dial failed", "url", endpoint, "error", err)
		}
		t.lost(gen, err)
		return
	}

	t.mu.Lock()
	if gen != t.gen || ctx.Err() != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	out := make(chan []byte, t.cfg.SendBuffer)
	t.conn = conn
	t.out = out
	t.attempts = 0
	t.setStateLocked(StateConnected, Event{})
	t.mu.Unlock()

	t.logger.Info("connected", "session_id", sessionID, "url", endpoint)

	go t.writeLoop(ctx, conn, out)
	t.readLoop(ctx, gen, conn)
}

func (t *Transport) readLoop(ctx context.Context, gen uint64, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			t.lost(gen, err)
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			t.logger.Warn("discarding inbound payload", "error", err, "bytes", len(data))
			continue
		}

		t.mu.Lock()
		if gen == t.gen {
			t.box.push(Event{Message: msg, State: t.state})
		}
		t.mu.Unlock()
	}
}

func (t *Transport) writeLoop(ctx context.Context, conn Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			wctx, cancel := context.WithTimeout(ctx, t.cfg.WriteTimeout)
			err := conn.Write(wctx, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					t.logger.Warn("write failed", "error", err)
				}
				// Closing makes the reader observe the loss and drive reconnection.
				_ = conn.Close()
				return
			}
		}
	}
}

// lost handles an unexpected close for generation gen.
func (t *Transport) lost(gen uint64, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.closed {
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.out = nil

	if t.attempts >= t.cfg.MaxAttempts {
		t.logger.Warn("giving up reconnecting",
			"session_id", t.sessionID, "attempts", t.attempts, "error", cause)
		t.setStateLocked(StateDisconnected, Event{GaveUp: true})
		return
	}

	t.attempts++
	delay := Backoff(t.cfg.BaseDelay, t.cfg.MaxDelay, t.attempts)
	t.logger.Info("connection lost, reconnect scheduled",
		"session_id", t.sessionID, "attempt", t.attempts, "delay", delay, "error", cause)
	t.setStateLocked(StateDisconnected, Event{Attempt: t.attempts, Delay: delay})
	t.retry = t.afterFunc(delay, func() { t.reconnect(gen) })
}

func (t *Transport) reconnect(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.closed {
		return
	}
	t.openLocked()
}

// Endpoint joins the base URL and the escaped session id.
func Endpoint(base, sessionID string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(sessionID)
}
