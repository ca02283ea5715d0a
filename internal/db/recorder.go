package db

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jwulff/codesage/internal/domain"
)

const recorderQueue = 256

// Recorder archives session changes on a background goroutine so the session
// owner never waits on disk. Failed or dropped writes are logged only.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	jobs   chan func(*Store) error
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts a recorder writing to store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		jobs:   make(chan func(*Store) error, recorderQueue),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// StatusChanged archives the interview header.
func (r *Recorder) StatusChanged(iv domain.Interview) {
	r.enqueue("upsert session", func(s *Store) error { return s.UpsertSession(iv) })
}

// TranscriptAppended archives one transcript entry.
func (r *Recorder) TranscriptAppended(sessionID string, msg domain.Message) {
	r.enqueue("append message", func(s *Store) error { return s.AppendMessage(sessionID, msg) })
}

// ReportReceived archives a performance report.
func (r *Recorder) ReportReceived(sessionID string, report json.RawMessage) {
	body := append(json.RawMessage(nil), report...)
	r.enqueue("save report", func(s *Store) error { return s.SaveReport(sessionID, body) })
}

// Close flushes queued writes and stops the recorder. It does not close the store.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) enqueue(op string, job func(*Store) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("archive closed, dropping write", "op", op)
		return
	}
	select {
	case r.jobs <- job:
	default:
		r.logger.Warn("archive queue full, dropping write", "op", op)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for job := range r.jobs {
		if err := job(r.store); err != nil {
			r.logger.Error("archive write failed", "error", err)
		}
	}
}
