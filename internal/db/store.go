package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwulff/codesage/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		candidateName TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		questionCount INTEGER NOT NULL DEFAULT 0,
		startedAt REAL,
		completedAt REAL,
		createdAt REAL NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sessionId TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		createdAt REAL NOT NULL,
		UNIQUE(sessionId, seq)
	);

	CREATE TABLE IF NOT EXISTS reports (
		sessionId TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		receivedAt REAL NOT NULL
	);
`

// Store provides access to the interview archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path with WAL.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertSession records the interview's current header fields.
func (s *Store) UpsertSession(iv domain.Interview) error {
	now := unixFromTime(time.Now())
	created := now
	if !iv.CreatedAt.IsZero() {
		created = unixFromTime(iv.CreatedAt)
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, candidateName, difficulty, category, status, questionCount,
			startedAt, completedAt, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			candidateName = excluded.candidateName,
			difficulty = excluded.difficulty,
			category = excluded.category,
			status = excluded.status,
			questionCount = excluded.questionCount,
			startedAt = COALESCE(sessions.startedAt, excluded.startedAt),
			completedAt = excluded.completedAt,
			updatedAt = excluded.updatedAt
	`, iv.ID, iv.CandidateName, string(iv.Difficulty), iv.Category, string(iv.Status),
		len(iv.Questions), nullableUnix(iv.StartedAt), nullableUnix(iv.CompletedAt), created, now)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// AppendMessage adds a transcript entry after the session's existing ones.
func (s *Store) AppendMessage(sessionID string, msg domain.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, sessionId, seq, role, content, createdAt)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM messages WHERE sessionId = ?
	`, msg.ID, sessionID, string(msg.Role), msg.Content, unixFromTime(msg.Timestamp), sessionID)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// SaveReport stores report as the session's latest performance report.
func (s *Store) SaveReport(sessionID string, report json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO reports (sessionId, content, receivedAt) VALUES (?, ?, ?)
		ON CONFLICT(sessionId) DO UPDATE SET content = excluded.content, receivedAt = excluded.receivedAt
	`, sessionID, string(report), unixFromTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

const sessionColumns = `id, candidateName, difficulty, category, status, questionCount,
	startedAt, completedAt, createdAt, updatedAt`

// Sessions returns up to limit sessions, newest first. A non-positive limit means all.
func (s *Store) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM sessions
		ORDER BY createdAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// Session returns one session, or nil if it is not archived.
func (s *Store) Session(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// LatestSession returns the most recently created session, if any.
func (s *Store) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions
		ORDER BY createdAt DESC LIMIT 1`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// Messages returns a session's transcript in order.
func (s *Store) Messages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, sessionId, seq, role, content, createdAt
		FROM messages
		WHERE sessionId = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var createdAt float64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = timeFromUnix(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Report returns a session's latest report, or nil if none arrived.
func (s *Store) Report(sessionID string) (*Report, error) {
	var r Report
	var content string
	var receivedAt float64
	err := s.db.QueryRow(`SELECT sessionId, content, receivedAt FROM reports WHERE sessionId = ?`,
		sessionID).Scan(&r.SessionID, &content, &receivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.Content = json.RawMessage(content)
	r.ReceivedAt = timeFromUnix(receivedAt)
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var createdAt, updatedAt float64
	var startedAt, completedAt sql.NullFloat64

	if err := row.Scan(&sess.ID, &sess.CandidateName, &sess.Difficulty, &sess.Category,
		&sess.Status, &sess.QuestionCount, &startedAt, &completedAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.CreatedAt = timeFromUnix(createdAt)
	sess.UpdatedAt = timeFromUnix(updatedAt)
	if startedAt.Valid {
		t := timeFromUnix(startedAt.Float64)
		sess.StartedAt = &t
	}
	if completedAt.Valid {
		t := timeFromUnix(completedAt.Float64)
		sess.CompletedAt = &t
	}
	return &sess, nil
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return unixFromTime(*t)
}
