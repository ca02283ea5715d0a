package daemon

import (
	"os"
	"testing"
)

// TestLiveDaemonSubscribe subscribes to a running daemon's speech events.
// Skipped if the daemon socket doesn't exist.
func TestLiveDaemonSubscribe(t *testing.T) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("daemon not running (no socket at", sockPath, ")")
	}

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(EventPartial, EventSegment); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}
