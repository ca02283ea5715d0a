// Package session owns the client-side view of one interview: status, question
// navigation, hint progression, the analysis snapshot, the timer, and the transcript.
//
// A Machine is not safe for concurrent use. Exactly one goroutine owns it (the TUI
// update loop or a Loop) and feeds it local actions, timer ticks, and transport events
// one at a time.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/codesage/internal/dispatch"
	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/transport"
	"github.com/jwulff/codesage/internal/wire"
)

// MaxHintLevel is the highest hint level a question discloses.
const MaxHintLevel = 3

// DefaultLanguage is the submission language until the candidate picks another.
const DefaultLanguage = "python"

// Transport is the connection the machine drives. *transport.Transport satisfies it.
type Transport interface {
	Connect(sessionID string)
	Send(msg wire.Outbound) error
	Disconnect()
}

// Speaker voices assistant transcript entries.
type Speaker interface {
	Speak(text string)
}

// Observer is told about durable session changes. Calls happen on the owning
// goroutine, so implementations must not block.
type Observer interface {
	StatusChanged(iv domain.Interview)
	TranscriptAppended(sessionID string, msg domain.Message)
	ReportReceived(sessionID string, report json.RawMessage)
}

// Option configures a Machine.
type Option func(*Machine)

// WithSpeaker voices every assistant entry through s.
func WithSpeaker(s Speaker) Option {
	return func(m *Machine) { m.speaker = s }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithClock sets the clock used for transcript timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator replaces the transcript entry id source.
func WithIDGenerator(next func() string) Option {
	return func(m *Machine) { m.nextID = next }
}

// WithLanguage sets the initial submission language.
func WithLanguage(lang string) Option {
	return func(m *Machine) {
		if lang != "" {
			m.language = lang
		}
	}
}

// Machine is the session state machine.
type Machine struct {
	iv      domain.Interview
	current int

	code      string
	language  string
	analyzing bool
	analysis  *wire.AnalysisResult
	hintLevel int

	transcript []domain.Message
	report     json.RawMessage

	conn       transport.State
	reconnects int
	gaveUp     bool

	timer      Timer
	transport  Transport
	dispatcher *dispatch.Dispatcher
	speaker    Speaker
	observers  []Observer
	logger     *slog.Logger
	now        func() time.Time
	nextID     func() string
}

// NewMachine creates a machine for iv. The inbound handler set is bound here, once.
func NewMachine(iv domain.Interview, tr Transport, opts ...Option) *Machine {
	m := &Machine{
		iv:        iv,
		language:  DefaultLanguage,
		transport: tr,
		logger:    slog.Default(),
		now:       time.Now,
		nextID:    newMessageID,
	}
	if iv.Status == "" {
		m.iv.Status = domain.StatusCreated
	}
	if iv.CurrentQuestion > 0 && iv.CurrentQuestion < len(iv.Questions) {
		m.current = iv.CurrentQuestion
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("session_id", iv.ID)

	m.dispatcher = dispatch.New(m.logger)
	m.dispatcher.On(wire.KindCodeAnalysis, m.onCodeAnalysis)
	m.dispatcher.On(wire.KindChatMessage, m.onChatMessage)
	m.dispatcher.On(wire.KindHintResponse, m.onHintResponse)
	m.dispatcher.On(wire.KindFollowUpQuestion, m.onFollowUpQuestion)
	m.dispatcher.On(wire.KindPerformanceReport, m.onPerformanceReport)
	return m
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ID returns the session id.
func (m *Machine) ID() string { return m.iv.ID }

// Status returns the lifecycle status.
func (m *Machine) Status() domain.Status { return m.iv.Status }

// Start performs created → in_progress: it records startedAt, starts the timer, and
// connects the transport. Any other starting status leaves the machine untouched.
func (m *Machine) Start(at time.Time) error {
	if m.iv.Status != domain.StatusCreated {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.iv.Status)
	}
	started := at
	m.iv.StartedAt = &started
	m.iv.Status = domain.StatusInProgress
	m.timer.Start(0)
	m.transport.Connect(m.iv.ID)
	m.logger.Info("session started")
	m.notifyStatus()
	return nil
}

// Resume attaches to an interview that was already in progress before this machine
// existed: the timer starts from the recorded startedAt and the transport connects.
func (m *Machine) Resume(at time.Time) error {
	if m.iv.Status != domain.StatusInProgress || m.timer.Running() {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, m.iv.Status)
	}
	var offset time.Duration
	if m.iv.StartedAt != nil {
		offset = at.Sub(*m.iv.StartedAt)
	}
	m.timer.Start(offset)
	m.transport.Connect(m.iv.ID)
	m.logger.Info("session resumed", "elapsed", m.timer.Elapsed())
	m.notifyStatus()
	return nil
}

// Complete performs in_progress → completed. The connection stays open so a requested
// report can still arrive.
func (m *Machine) Complete(at time.Time) error {
	if m.iv.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, m.iv.Status)
	}
	done := at
	m.iv.CompletedAt = &done
	m.iv.Status = domain.StatusCompleted
	m.timer.Stop()
	m.logger.Info("session completed", "elapsed", m.timer.Elapsed())
	m.notifyStatus()
	return nil
}

// Cancel abandons a session that has not reached a terminal status.
func (m *Machine) Cancel() error {
	if m.iv.Status.Terminal() {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, m.iv.Status)
	}
	m.iv.Status = domain.StatusCancelled
	m.timer.Stop()
	m.transport.Disconnect()
	m.logger.Info("session cancelled")
	m.notifyStatus()
	return nil
}

// Close tears the session down: the timer stops for good and the transport
// disconnects. Status is left as is.
func (m *Machine) Close() {
	m.timer.Stop()
	m.transport.Disconnect()
}

// Reconnect reopens the connection after reconnection was exhausted, resetting the
// attempt counter.
func (m *Machine) Reconnect() error {
	if m.iv.Status.Terminal() || m.iv.Status == domain.StatusCreated {
		return fmt.Errorf("%w: reconnect while %s", ErrInvalidTransition, m.iv.Status)
	}
	m.gaveUp = false
	m.transport.Connect(m.iv.ID)
	return nil
}

// Tick advances the timer by one tick while the session is in progress.
func (m *Machine) Tick() {
	if m.iv.Status == domain.StatusInProgress {
		m.timer.Tick()
	}
}

// SetCode replaces the editor contents.
func (m *Machine) SetCode(code string) { m.code = code }

// SetLanguage changes the submission language.
func (m *Machine) SetLanguage(lang string) {
	if lang != "" {
		m.language = lang
	}
}

// SubmitCode asks the service to analyze the current code. The analyzing flag stays
// set until a code analysis arrives or the question or code is reset.
func (m *Machine) SubmitCode() error {
	if strings.TrimSpace(m.code) == "" {
		return ErrEmptyCode
	}
	m.analyzing = true
	return m.send(wire.AnalyzeCode{
		Code:               m.code,
		Language:           m.language,
		ProblemDescription: m.description(),
	})
}

// ResetCode clears the code, the analysis snapshot, and the hint level.
func (m *Machine) ResetCode() {
	m.clearQuestionContext()
}

// SendMessage appends the candidate's text to the transcript, then sends it.
func (m *Machine) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	m.appendEntry(domain.RoleUser, text)
	return m.send(wire.SendMessage{Message: text})
}

// RequestHint asks for the next hint level. The local level only moves when the
// service answers.
func (m *Machine) RequestHint() error {
	if m.hintLevel >= MaxHintLevel {
		return ErrMaxHints
	}
	q := m.Question()
	if q == nil {
		return ErrNoQuestion
	}
	return m.send(wire.RequestHint{
		QuestionID:  q.ID,
		HintLevel:   m.hintLevel + 1,
		CurrentCode: m.code,
	})
}

// RequestFollowUp asks for a follow-up question about the current code and analysis.
func (m *Machine) RequestFollowUp() error {
	return m.send(wire.RequestFollowUp{
		Code:               m.code,
		Analysis:           m.analysis,
		ProblemDescription: m.description(),
	})
}

// GenerateReport asks for the performance report.
func (m *Machine) GenerateReport() error {
	return m.send(wire.GenerateReport{})
}

// Next moves to the following question.
func (m *Machine) Next() error { return m.SelectQuestion(m.current + 1) }

// Previous moves to the preceding question.
func (m *Machine) Previous() error { return m.SelectQuestion(m.current - 1) }

// SelectQuestion moves to question i and clears the per-question context. Nothing is
// sent; pending responses for the old question still apply when they arrive.
func (m *Machine) SelectQuestion(i int) error {
	if i < 0 || i >= len(m.iv.Questions) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(m.iv.Questions))
	}
	m.current = i
	m.iv.CurrentQuestion = i
	m.clearQuestionContext()
	return nil
}

// Question returns the current question, or nil when the interview has none.
func (m *Machine) Question() *domain.Question {
	if m.current < 0 || m.current >= len(m.iv.Questions) {
		return nil
	}
	return &m.iv.Questions[m.current]
}

// HandleEvent applies one transport event.
func (m *Machine) HandleEvent(ev transport.Event) {
	if ev.IsMessage() {
		_ = m.dispatcher.Dispatch(ev.Message)
		return
	}
	m.conn = ev.State
	switch {
	case ev.State == transport.StateConnected:
		m.reconnects = 0
		m.gaveUp = false
	case ev.GaveUp:
		m.gaveUp = true
	case ev.Attempt > 0:
		m.reconnects = ev.Attempt
	}
}

// Interview returns a copy of the interview record as the machine currently sees it.
func (m *Machine) Interview() domain.Interview {
	iv := m.iv
	iv.Questions = append([]domain.Question(nil), m.iv.Questions...)
	return iv
}

func (m *Machine) send(msg wire.Outbound) error {
	if err := m.transport.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}
	return nil
}

func (m *Machine) description() string {
	if q := m.Question(); q != nil {
		return q.Description
	}
	return ""
}

func (m *Machine) clearQuestionContext() {
	m.code = ""
	m.analysis = nil
	m.analyzing = false
	m.hintLevel = 0
}

func (m *Machine) appendEntry(role domain.Role, content string) {
	msg := domain.Message{
		ID:        m.nextID(),
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
	}
	m.transcript = append(m.transcript, msg)
	for _, o := range m.observers {
		o.TranscriptAppended(m.iv.ID, msg)
	}
	if role == domain.RoleAssistant && m.speaker != nil {
		m.speaker.Speak(content)
	}
}

func (m *Machine) notifyStatus() {
	iv := m.Interview()
	for _, o := range m.observers {
		o.StatusChanged(iv)
	}
}

func (m *Machine) onCodeAnalysis(in wire.Inbound) error {
	msg := in.(wire.CodeAnalysis)
	analysis := msg.Analysis
	m.analysis = &analysis
	m.analyzing = false
	m.appendEntry(domain.RoleAssistant, msg.AIResponse)
	return nil
}

func (m *Machine) onChatMessage(in wire.Inbound) error {
	m.appendEntry(domain.RoleAssistant, in.(wire.ChatMessage).AIResponse)
	return nil
}

// onHintResponse trusts the level the service reports. A duplicate or stale response
// never lowers the level.
func (m *Machine) onHintResponse(in wire.Inbound) error {
	msg := in.(wire.HintResponse)
	m.appendEntry(domain.RoleAssistant, fmt.Sprintf("Hint %d: %s", msg.HintLevel, msg.Hint))

	level := min(max(msg.HintLevel, 0), MaxHintLevel)
	if level > m.hintLevel {
		m.hintLevel = level
	}
	return nil
}

func (m *Machine) onFollowUpQuestion(in wire.Inbound) error {
	m.appendEntry(domain.RoleAssistant, in.(wire.FollowUpQuestion).Question)
	return nil
}

func (m *Machine) onPerformanceReport(in wire.Inbound) error {
	report := in.(wire.PerformanceReport).Report
	m.report = append(json.RawMessage(nil), report...)
	for _, o := range m.observers {
		o.ReportReceived(m.iv.ID, m.report)
	}
	return nil
}
