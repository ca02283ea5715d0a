package db

import (
	"fmt"
	"os"
	"testing"

	"github.com/jwulff/codesage/internal/config"
)

// TestLiveDatabase opens the real archive and prints the latest session.
// Skipped if the archive doesn't exist.
func TestLiveDatabase(t *testing.T) {
	dbPath := config.DefaultDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("archive not found at", dbPath)
	}

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess == nil {
		fmt.Println("No sessions in archive")
		return
	}

	fmt.Printf("Latest session: id=%s candidate=%s status=%s created=%s\n",
		sess.ID, sess.CandidateName, sess.Status, sess.CreatedAt.Format("2006-01-02 15:04:05"))

	msgs, err := store.Messages(sess.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	fmt.Printf("Transcript entries: %d\n", len(msgs))
	for _, m := range msgs {
		fmt.Printf("  %d. [%s] %s\n", m.Seq, m.Role, m.Content)
	}
}
