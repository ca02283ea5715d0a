package transport

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// readLimit caps a single inbound frame. Analysis payloads carry captured program output.
const readLimit = 4 << 20

// Conn is one physical duplex connection.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a Conn to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// DialWebSocket opens a websocket connection.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.SetReadLimit(readLimit)
	return &wsConn{c: c}, nil
}

// wsConn adapts websocket.Conn to Conn.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

// Close starts the close handshake without waiting for the peer, so teardown never
// stalls the caller.
func (w *wsConn) Close() error {
	go func() {
		_ = w.c.Close(websocket.StatusNormalClosure, "client disconnect")
	}()
	return nil
}
