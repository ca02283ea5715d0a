package session

import (
	"encoding/json"
	"time"

	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/transport"
	"github.com/jwulff/codesage/internal/wire"
)

// Snapshot is a copy of everything a renderer shows. Mutating it does not affect the
// machine.
type Snapshot struct {
	Interview     domain.Interview
	QuestionIndex int
	Question      *domain.Question
	Code          string
	Language      string
	Analyzing     bool
	Analysis      *wire.AnalysisResult
	HintLevel     int
	Transcript    []domain.Message
	Report        json.RawMessage
	Elapsed       time.Duration
	Connection    transport.State
	// ReconnectAttempt is the last scheduled reconnect attempt, 0 once connected.
	ReconnectAttempt int
	// Offline is set once reconnection gave up; only Reconnect clears it.
	Offline bool
}

// QuestionCount returns the number of questions in the interview.
func (s Snapshot) QuestionCount() int { return len(s.Interview.Questions) }

// Snapshot copies the observable state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Interview:        m.Interview(),
		QuestionIndex:    m.current,
		Code:             m.code,
		Language:         m.language,
		Analyzing:        m.analyzing,
		HintLevel:        m.hintLevel,
		Transcript:       append([]domain.Message(nil), m.transcript...),
		Elapsed:          m.timer.Elapsed(),
		Connection:       m.conn,
		ReconnectAttempt: m.reconnects,
		Offline:          m.gaveUp,
	}
	if q := m.Question(); q != nil {
		qc := *q
		s.Question = &qc
	}
	if m.analysis != nil {
		a := *m.analysis
		s.Analysis = &a
	}
	if m.report != nil {
		s.Report = append(json.RawMessage(nil), m.report...)
	}
	return s
}
