package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/session"
	"github.com/jwulff/codesage/internal/speech"
	"github.com/jwulff/codesage/internal/transport"
	"github.com/jwulff/codesage/internal/wire"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type fakeTransport struct {
	connects    int
	disconnects int
	sent        []wire.Outbound
	sendErr     error
}

func (f *fakeTransport) Connect(string) { f.connects++ }
func (f *fakeTransport) Disconnect()    { f.disconnects++ }

func (f *fakeTransport) Send(msg wire.Outbound) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

type nopSpeaker struct{}

func (nopSpeaker) Speak(string) {}

func newTestModel(t *testing.T, opts ...Option) (Model, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	n := 0
	iv := domain.Interview{
		ID:            "iv-1",
		CandidateName: "Ada",
		Difficulty:    domain.DifficultyEasy,
		Category:      "arrays",
		Status:        domain.StatusCreated,
		Questions: []domain.Question{
			{ID: "q1", Title: "Two Sum", Description: "Find two numbers that add to target."},
			{ID: "q2", Title: "Valid Parentheses", Description: "Check bracket balance."},
		},
	}
	machine := session.NewMachine(iv, tr,
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithIDGenerator(func() string { n++; return fmt.Sprintf("m%d", n) }),
	)
	if err := machine.Start(time.Now()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return New(machine, nil, opts...), tr
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)
	if m.focusedPanel != FocusEditor {
		t.Error("new model should focus the editor")
	}
	if !m.transcriptLive {
		t.Error("new model should be in live mode")
	}
	if got, want := m.editor.Value(), starterCode["python"]; got != want {
		t.Errorf("editor = %q, want python starter", got)
	}
	if m.snap.Code != starterCode["python"] {
		t.Errorf("machine code = %q, want python starter", m.snap.Code)
	}
}

func TestTransportEventUpdatesSnapshot(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := applyUpdate(m, TransportEventMsg{Event: transport.Event{State: transport.StateConnected}})
	if m.snap.Connection != transport.StateConnected {
		t.Errorf("Connection = %v, want connected", m.snap.Connection)
	}
	if cmd != nil {
		t.Error("no event channel, so no follow-up read expected")
	}

	m, _ = applyUpdate(m, TransportEventMsg{Event: transport.Event{Message: wire.ChatMessage{AIResponse: "Try a hash map."}}})
	if len(m.snap.Transcript) != 1 {
		t.Fatalf("transcript = %d entries, want 1", len(m.snap.Transcript))
	}
	if m.snap.Transcript[0].Content != "Try a hash map." {
		t.Errorf("content = %q", m.snap.Transcript[0].Content)
	}
}

func TestTransportEventsArePumped(t *testing.T) {
	tr := &fakeTransport{}
	events := make(chan transport.Event, 1)
	machine := session.NewMachine(domain.Interview{ID: "iv-1", Status: domain.StatusCreated}, tr)
	m := New(machine, events)

	events <- transport.Event{State: transport.StateConnecting}
	msg := waitForTransportEvent(m.events)()
	ev, ok := msg.(TransportEventMsg)
	if !ok {
		t.Fatalf("msg = %T, want TransportEventMsg", msg)
	}
	if ev.Event.State != transport.StateConnecting {
		t.Errorf("State = %v, want connecting", ev.Event.State)
	}

	close(events)
	if _, ok := waitForTransportEvent(m.events)().(TransportClosedMsg); !ok {
		t.Error("closed channel should yield TransportClosedMsg")
	}
}

func TestTimerTick(t *testing.T) {
	m, _ := newTestModel(t)
	m, cmd := applyUpdate(m, TimerTickMsg{})
	m, _ = applyUpdate(m, TimerTickMsg{})

	if m.snap.Elapsed != 2*time.Second {
		t.Errorf("Elapsed = %v, want 2s", m.snap.Elapsed)
	}
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestChatEnterSendsMessage(t *testing.T) {
	m, tr := newTestModel(t)
	m, _ = applyUpdate(m, key(tea.KeyTab))
	if m.focusedPanel != FocusChat {
		t.Fatalf("focus = %v, want chat", m.focusedPanel)
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("what about duplicates?")})
	m, _ = applyUpdate(m, key(tea.KeyEnter))

	if len(tr.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(tr.sent))
	}
	if got := tr.sent[0].(wire.SendMessage).Message; got != "what about duplicates?" {
		t.Errorf("message = %q", got)
	}
	if m.chat.Value() != "" {
		t.Errorf("chat = %q, want cleared", m.chat.Value())
	}
	if len(m.snap.Transcript) != 1 || m.snap.Transcript[0].Role != domain.RoleUser {
		t.Errorf("transcript = %+v, want one user entry", m.snap.Transcript)
	}
}

func TestSubmitCode(t *testing.T) {
	m, tr := newTestModel(t)
	m.editor.SetValue("def solution(): return 42")

	m, _ = applyUpdate(m, key(tea.KeyCtrlS))

	if len(tr.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(tr.sent))
	}
	req := tr.sent[0].(wire.AnalyzeCode)
	if req.Code != "def solution(): return 42" {
		t.Errorf("code = %q", req.Code)
	}
	if req.Language != "python" {
		t.Errorf("language = %q, want python", req.Language)
	}
	if !m.snap.Analyzing {
		t.Error("should be analyzing after submit")
	}
}

func TestSubmitEmptyCodeShowsError(t *testing.T) {
	m, tr := newTestModel(t)
	m.editor.SetValue("   ")

	m, cmd := applyUpdate(m, key(tea.KeyCtrlS))

	if len(tr.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(tr.sent))
	}
	if m.errorMessage != "write some code before submitting" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if cmd == nil {
		t.Error("error should schedule its own clearing")
	}

	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Errorf("errorMessage = %q, want cleared", m.errorMessage)
	}
}

func TestSendWhileDisconnectedShowsError(t *testing.T) {
	m, tr := newTestModel(t)
	tr.sendErr = transport.ErrNotConnected

	m, _ = applyUpdate(m, key(tea.KeyCtrlT))

	if m.errorMessage != "not connected, message not sent" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestHintRequest(t *testing.T) {
	m, tr := newTestModel(t)

	m, _ = applyUpdate(m, key(tea.KeyCtrlT))
	if len(tr.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(tr.sent))
	}
	req := tr.sent[0].(wire.RequestHint)
	if req.QuestionID != "q1" || req.HintLevel != 1 {
		t.Errorf("request = %+v, want q1 level 1", req)
	}
	if m.snap.HintLevel != 0 {
		t.Errorf("HintLevel = %d, want 0 until the reply", m.snap.HintLevel)
	}

	m, _ = applyUpdate(m, TransportEventMsg{Event: transport.Event{Message: wire.HintResponse{Hint: "Sort first.", HintLevel: 1}}})
	if m.snap.HintLevel != 1 {
		t.Errorf("HintLevel = %d, want 1", m.snap.HintLevel)
	}
}

func TestLanguageCycle(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = applyUpdate(m, key(tea.KeyCtrlL))
	if m.snap.Language != "javascript" {
		t.Errorf("Language = %q, want javascript", m.snap.Language)
	}
	if m.editor.Value() != starterCode["javascript"] {
		t.Errorf("editor = %q, want javascript starter", m.editor.Value())
	}

	// Written code survives a language change.
	m.editor.SetValue("console.log(1)")
	m, _ = applyUpdate(m, key(tea.KeyCtrlL))
	if m.snap.Language != "java" {
		t.Errorf("Language = %q, want java", m.snap.Language)
	}
	if m.editor.Value() != "console.log(1)" {
		t.Errorf("editor = %q, want unchanged", m.editor.Value())
	}
}

func TestQuestionNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	m.editor.SetValue("x = 1")

	m, _ = applyUpdate(m, key(tea.KeyPgDown))
	if m.snap.QuestionIndex != 1 {
		t.Errorf("QuestionIndex = %d, want 1", m.snap.QuestionIndex)
	}
	if m.editor.Value() != starterCode["python"] {
		t.Errorf("editor = %q, want starter after navigation", m.editor.Value())
	}

	m, _ = applyUpdate(m, key(tea.KeyPgDown))
	if m.snap.QuestionIndex != 1 {
		t.Errorf("QuestionIndex = %d, want 1 at the end", m.snap.QuestionIndex)
	}
	if m.errorMessage == "" {
		t.Error("moving past the last question should show an error")
	}

	m, _ = applyUpdate(m, key(tea.KeyPgUp))
	if m.snap.QuestionIndex != 0 {
		t.Errorf("QuestionIndex = %d, want 0", m.snap.QuestionIndex)
	}
}

func TestCompleteRequestsReport(t *testing.T) {
	m, tr := newTestModel(t)

	m, _ = applyUpdate(m, key(tea.KeyCtrlX))
	if m.snap.Interview.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want completed", m.snap.Interview.Status)
	}
	if len(tr.sent) != 1 || tr.sent[0].Kind() != wire.KindGenerateReport {
		t.Errorf("sent = %+v, want one generate_report", tr.sent)
	}
	if !m.showReport {
		t.Error("report panel should be shown")
	}
}

func TestUtteranceSendsChat(t *testing.T) {
	m, tr := newTestModel(t)

	m, _ = applyUpdate(m, UtteranceMsg{Text: "can I use recursion"})
	if len(tr.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(tr.sent))
	}
	if got := tr.sent[0].(wire.SendMessage).Message; got != "can I use recursion" {
		t.Errorf("message = %q", got)
	}
}

func TestUtterancesArePumped(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "hello"
	msg := waitForUtterance(ch)()
	if u, ok := msg.(UtteranceMsg); !ok || u.Text != "hello" {
		t.Errorf("msg = %#v, want UtteranceMsg hello", msg)
	}
	close(ch)
	if _, ok := waitForUtterance(ch)().(SpeechClosedMsg); !ok {
		t.Error("closed channel should yield SpeechClosedMsg")
	}
	if waitForUtterance(nil) != nil {
		t.Error("nil channel should yield no command")
	}
}

func TestVoiceToggle(t *testing.T) {
	voice := speech.NewToggle(nopSpeaker{}, false)
	m, _ := newTestModel(t, WithVoice(voice))

	m, _ = applyUpdate(m, key(tea.KeyF2))
	if !voice.Muted() {
		t.Error("F2 should mute")
	}
	applyUpdate(m, key(tea.KeyF2))
	if voice.Muted() {
		t.Error("second F2 should unmute")
	}
}

func TestQuitClosesSession(t *testing.T) {
	m, tr := newTestModel(t)

	_, cmd := applyUpdate(m, key(tea.KeyCtrlC))
	if tr.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", tr.disconnects)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestTranscriptScroll(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 24})
	for i := 0; i < 40; i++ {
		m, _ = applyUpdate(m, TransportEventMsg{Event: transport.Event{
			Message: wire.ChatMessage{AIResponse: fmt.Sprintf("reply %d", i)},
		}})
	}

	m.setFocus(FocusTranscript)
	m, _ = applyUpdate(m, key(tea.KeyUp))
	if m.transcriptLive {
		t.Error("scrolling up should leave live mode")
	}
	for i := 0; i < 5; i++ {
		m, _ = applyUpdate(m, key(tea.KeyDown))
	}
	if !m.transcriptLive {
		t.Error("scrolling to the bottom should return to live mode")
	}
}

func TestViewRenders(t *testing.T) {
	m, _ := newTestModel(t)
	if m.View() != "Initializing..." {
		t.Error("view should wait for a window size")
	}

	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = applyUpdate(m, TransportEventMsg{Event: transport.Event{Message: wire.CodeAnalysis{
		Analysis: wire.AnalysisResult{
			Syntax:       wire.SyntaxResult{Valid: true},
			Runtime:      wire.RuntimeResult{Success: true, ExecutionTime: 0.01},
			Complexity:   wire.ComplexityResult{TimeComplexity: "O(n)", SpaceComplexity: "O(n)"},
			Quality:      wire.QualityResult{Score: 85, Grade: "A"},
			OverallScore: 88,
		},
		AIResponse: "Looks good.",
	}}})

	view := m.View()
	for _, want := range []string{"CODESAGE", "Ada", "00:00", "Q 1 of 2", "hints 0/3", "Two Sum", "PERFORMANCE", "O(n)", "Looks good."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRuntimeErrorFitsPanel(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = applyUpdate(m, TransportEventMsg{Event: transport.Event{Message: wire.CodeAnalysis{
		Analysis: wire.AnalysisResult{
			Syntax: wire.SyntaxResult{Valid: true},
			Runtime: wire.RuntimeResult{
				Error: "Traceback (most recent call last): File \"main.py\", line 3, in two_sum\n" +
					"    return nums[len(nums)]\nIndexError: list index out of range",
			},
		},
	}}})

	const width = 30
	lines := m.performanceLines(width)
	if len(lines) != 6 {
		t.Fatalf("performance panel has %d lines, want 6", len(lines))
	}
	runtime := lines[3]
	if !strings.Contains(runtime, "Runtime") || !strings.Contains(runtime, "✗ Traceback") || !strings.Contains(runtime, "…") {
		t.Errorf("runtime line = %q", runtime)
	}
	for i, line := range lines {
		if strings.Contains(line, "\n") {
			t.Errorf("line %d spans rows: %q", i, line)
		}
		if w := lipgloss.Width(line); w > width {
			t.Errorf("line %d width = %d, want <= %d", i, w, width)
		}
	}
	if strings.Contains(runtime, "IndexError") {
		t.Error("runtime line should show only the first line of the error")
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("send: %w", transport.ErrSendBufferFull), "connection is backed up, message not sent"},
		{session.ErrMaxHints, "all 3 hints used"},
		{session.ErrNoQuestion, "no question selected"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := describeError(tt.err); got != tt.want {
			t.Errorf("describeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
