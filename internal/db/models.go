// Package db archives interview sessions, their transcripts, and performance reports
// in a local SQLite database.
package db

import (
	"encoding/json"
	"time"
)

// Session is one archived interview.
type Session struct {
	ID            string
	CandidateName string
	Difficulty    string
	Category      string
	Status        string
	QuestionCount int
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is one archived transcript entry. Seq orders entries within a session.
type Message struct {
	ID        string
	SessionID string
	Seq       int
	Role      string
	Content   string
	CreatedAt time.Time
}

// Report is the latest performance report received for a session.
type Report struct {
	SessionID  string
	Content    json.RawMessage
	ReceivedAt time.Time
}
