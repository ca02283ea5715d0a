package db

import (
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwulff/codesage/internal/domain"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive", "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testInterview(id string, created time.Time) domain.Interview {
	return domain.Interview{
		ID:            id,
		CandidateName: "Ada",
		Difficulty:    domain.DifficultyMedium,
		Category:      "arrays",
		Status:        domain.StatusCreated,
		Questions:     []domain.Question{{ID: "q1"}, {ID: "q2"}},
		CreatedAt:     created,
	}
}

func TestUpsertSession(t *testing.T) {
	store := createTestStore(t)
	created := time.Unix(1700000000, 0)
	iv := testInterview("iv-1", created)

	if err := store.UpsertSession(iv); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	started := created.Add(time.Minute)
	iv.Status = domain.StatusInProgress
	iv.StartedAt = &started
	if err := store.UpsertSession(iv); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	sess, err := store.Session("iv-1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess == nil {
		t.Fatal("Session returned nil")
	}
	if sess.Status != "in_progress" {
		t.Errorf("Status = %q, want %q", sess.Status, "in_progress")
	}
	if sess.QuestionCount != 2 {
		t.Errorf("QuestionCount = %d, want 2", sess.QuestionCount)
	}
	if sess.CandidateName != "Ada" {
		t.Errorf("CandidateName = %q, want %q", sess.CandidateName, "Ada")
	}
	if !sess.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", sess.CreatedAt, created)
	}
	if sess.StartedAt == nil || sess.StartedAt.Unix() != started.Unix() {
		t.Errorf("StartedAt = %v, want %v", sess.StartedAt, started)
	}
	if sess.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", sess.CompletedAt)
	}
}

func TestSessionMissing(t *testing.T) {
	store := createTestStore(t)

	sess, err := store.Session("nope")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess != nil {
		t.Errorf("Session = %+v, want nil", sess)
	}

	latest, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest != nil {
		t.Errorf("LatestSession = %+v, want nil", latest)
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	store := createTestStore(t)
	base := time.Unix(1700000000, 0)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.UpsertSession(testInterview(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("UpsertSession(%s): %v", id, err)
		}
	}

	all, err := store.Sessions(0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d sessions, want 3", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("order = %s,%s,%s, want c,b,a", all[0].ID, all[1].ID, all[2].ID)
	}

	two, err := store.Sessions(2)
	if err != nil {
		t.Fatalf("Sessions(2): %v", err)
	}
	if len(two) != 2 {
		t.Errorf("got %d sessions, want 2", len(two))
	}

	latest, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest == nil || latest.ID != "c" {
		t.Errorf("LatestSession = %+v, want c", latest)
	}
}

func TestMessagesKeepOrder(t *testing.T) {
	store := createTestStore(t)
	at := time.Unix(1700000000, 0)
	entries := []domain.Message{
		{ID: "m1", Role: domain.RoleUser, Content: "how do I start?", Timestamp: at},
		{ID: "m2", Role: domain.RoleAssistant, Content: "Hint 1: use a map", Timestamp: at},
		{ID: "m3", Role: domain.RoleUser, Content: "thanks", Timestamp: at},
	}
	for _, m := range entries {
		if err := store.AppendMessage("iv-1", m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	// Another session's entries are numbered separately.
	if err := store.AppendMessage("iv-2", domain.Message{ID: "x1", Role: domain.RoleUser, Content: "hi", Timestamp: at}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	msgs, err := store.Messages("iv-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.ID != entries[i].ID {
			t.Errorf("msgs[%d].ID = %q, want %q", i, m.ID, entries[i].ID)
		}
		if m.Seq != i+1 {
			t.Errorf("msgs[%d].Seq = %d, want %d", i, m.Seq, i+1)
		}
	}
	if msgs[1].Role != "assistant" {
		t.Errorf("msgs[1].Role = %q, want assistant", msgs[1].Role)
	}

	other, err := store.Messages("iv-2")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(other) != 1 || other[0].Seq != 1 {
		t.Errorf("iv-2 messages = %+v, want one entry with seq 1", other)
	}
}

func TestReportReplaced(t *testing.T) {
	store := createTestStore(t)

	r, err := store.Report("iv-1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r != nil {
		t.Fatalf("Report = %+v, want nil", r)
	}

	if err := store.SaveReport("iv-1", json.RawMessage(`{"score":50}`)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := store.SaveReport("iv-1", json.RawMessage(`{"score":80}`)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	r, err = store.Report("iv-1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r == nil {
		t.Fatal("Report returned nil")
	}
	if string(r.Content) != `{"score":80}` {
		t.Errorf("Content = %s, want %s", r.Content, `{"score":80}`)
	}
}

func TestRecorder(t *testing.T) {
	store := createTestStore(t)
	rec := NewRecorder(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	iv := testInterview("iv-1", time.Unix(1700000000, 0))
	rec.StatusChanged(iv)
	rec.TranscriptAppended("iv-1", domain.Message{ID: "m1", Role: domain.RoleAssistant, Content: "hello", Timestamp: time.Unix(1700000001, 0)})
	rec.ReportReceived("iv-1", json.RawMessage(`{"overall":"good"}`))
	rec.Close()
	// Second close is a no-op, later writes are dropped.
	rec.Close()
	rec.TranscriptAppended("iv-1", domain.Message{ID: "m2", Role: domain.RoleUser, Content: "late"})

	sess, err := store.Session("iv-1")
	if err != nil || sess == nil {
		t.Fatalf("Session = %v, %v", sess, err)
	}
	msgs, err := store.Messages("iv-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("messages = %+v, want one entry \"hello\"", msgs)
	}
	r, err := store.Report("iv-1")
	if err != nil || r == nil {
		t.Fatalf("Report = %v, %v", r, err)
	}
	if string(r.Content) != `{"overall":"good"}` {
		t.Errorf("Content = %s", r.Content)
	}
}
