package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/jwulff/codesage/internal/session"
	"github.com/jwulff/codesage/internal/speech"
	"github.com/jwulff/codesage/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusEditor PanelFocus = iota
	FocusChat
	FocusTranscript
)

// Languages the editor cycles through, with a starter template for each.
var Languages = []string{"python", "javascript", "java", "cpp"}

var starterCode = map[string]string{
	"python": "def solution():\n    # Write your solution here\n    pass",
	"javascript": "function solution() {\n    // Write your solution here\n}",
	"java": "public class Solution {\n    public static void main(String[] args) {\n" +
		"        // Write your solution here\n    }\n}",
	"cpp": "#include <iostream>\nusing namespace std;\n\nint main() {\n" +
		"    // Write your solution here\n    return 0;\n}",
}

// Model is the root bubbletea model for the interview TUI. It is the only owner of
// the session machine while the program runs.
type Model struct {
	machine    *session.Machine
	events     <-chan transport.Event
	utterances <-chan string
	voice      *speech.Toggle

	editor textarea.Model
	chat   textinput.Model

	snap session.Snapshot

	// UI state
	focusedPanel     PanelFocus
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool
	showReport       bool

	// Errors
	errorMessage   string
	errorTransient bool
}

// Option configures a Model.
type Option func(*Model)

// WithUtterances feeds spoken utterances into the chat.
func WithUtterances(ch <-chan string) Option {
	return func(m *Model) { m.utterances = ch }
}

// WithVoice lets the user mute spoken replies.
func WithVoice(t *speech.Toggle) Option {
	return func(m *Model) { m.voice = t }
}

// New creates a Model hosting machine, fed by the transport's events.
func New(machine *session.Machine, events <-chan transport.Event, opts ...Option) Model {
	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.Placeholder = "Write your solution here"

	chat := textinput.New()
	chat.Placeholder = "Ask the interviewer..."
	chat.Prompt = "> "

	m := Model{
		machine:        machine,
		events:         events,
		editor:         editor,
		chat:           chat,
		transcriptLive: true,
		focusedPanel:   FocusEditor,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.snap = machine.Snapshot()
	if m.snap.Code == "" {
		m.resetEditor()
	} else {
		m.editor.SetValue(m.snap.Code)
	}
	m.editor.Focus()
	return m
}

// Init starts the transport, timer, and speech pumps.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForTransportEvent(m.events),
		timerTickCmd(),
		waitForUtterance(m.utterances),
		textarea.Blink,
	)
}

// waitForTransportEvent delivers the next transport event into Update.
func waitForTransportEvent(events <-chan transport.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return TransportClosedMsg{}
		}
		return TransportEventMsg{Event: ev}
	}
}

// waitForUtterance delivers the next spoken utterance into Update.
func waitForUtterance(utterances <-chan string) tea.Cmd {
	if utterances == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-utterances
		if !ok {
			return SpeechClosedMsg{}
		}
		return UtteranceMsg{Text: text}
	}
}

func timerTickCmd() tea.Cmd {
	return tea.Tick(session.TickInterval, func(time.Time) tea.Msg {
		return TimerTickMsg{}
	})
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case TransportEventMsg:
		m.machine.HandleEvent(msg.Event)
		m.refresh()
		return m, waitForTransportEvent(m.events)

	case TransportClosedMsg:
		m.events = nil
		return m, nil

	case TimerTickMsg:
		m.machine.Tick()
		m.refresh()
		return m, timerTickCmd()

	case UtteranceMsg:
		cmd := m.act(m.machine.SendMessage(msg.Text))
		return m, tea.Batch(cmd, waitForUtterance(m.utterances))

	case SpeechClosedMsg:
		m.utterances = nil
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m.forward(msg)
}

// handleKey processes key presses. Session actions work from any panel; everything
// else goes to the focused input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit:
		m.machine.Close()
		return m, tea.Quit

	case KeyTab:
		m.setFocus((m.focusedPanel + 1) % 3)
		return m, nil

	case KeyShiftTab:
		m.setFocus((m.focusedPanel + 2) % 3)
		return m, nil

	case KeySubmit:
		m.syncCode()
		return m, m.act(m.machine.SubmitCode())

	case KeyHint:
		m.syncCode()
		return m, m.act(m.machine.RequestHint())

	case KeyFollowUp:
		m.syncCode()
		return m, m.act(m.machine.RequestFollowUp())

	case KeyReport:
		m.showReport = true
		return m, m.act(m.machine.GenerateReport())

	case KeyResetCode:
		m.machine.ResetCode()
		m.resetEditor()
		m.refresh()
		return m, nil

	case KeyLanguage:
		m.cycleLanguage()
		return m, nil

	case KeyNext:
		return m, m.moveQuestion(m.machine.Next())

	case KeyPrevious:
		return m, m.moveQuestion(m.machine.Previous())

	case KeyComplete:
		if err := m.machine.Complete(time.Now()); err != nil {
			return m, m.act(err)
		}
		m.showReport = true
		return m, m.act(m.machine.GenerateReport())

	case KeyCancel:
		return m, m.act(m.machine.Cancel())

	case KeyReconnect:
		return m, m.act(m.machine.Reconnect())

	case KeyToggleVoice:
		if m.voice != nil {
			m.voice.Flip()
		}
		return m, nil

	case KeyToggleReport:
		m.showReport = !m.showReport
		return m, nil
	}

	switch m.focusedPanel {
	case FocusChat:
		if msg.String() == KeyEnter {
			text := m.chat.Value()
			m.chat.Reset()
			return m, m.act(m.machine.SendMessage(text))
		}
	case FocusTranscript:
		switch msg.String() {
		case KeyUp:
			m.transcriptLive = false
			if m.transcriptScroll > 0 {
				m.transcriptScroll--
			}
			return m, nil
		case KeyDown:
			maxScroll := m.maxTranscriptScroll()
			m.transcriptScroll++
			if m.transcriptScroll >= maxScroll {
				m.transcriptScroll = maxScroll
				m.transcriptLive = true
			}
			return m, nil
		}
		return m, nil
	}

	return m.forward(msg)
}

// forward hands msg to the focused input component.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focusedPanel {
	case FocusEditor:
		m.editor, cmd = m.editor.Update(msg)
		m.syncCode()
	case FocusChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return m, cmd
}

// act refreshes the snapshot after a local action and surfaces its error, if any.
func (m *Model) act(err error) tea.Cmd {
	m.refresh()
	if err == nil {
		return nil
	}
	m.errorMessage = describeError(err)
	m.errorTransient = true
	return clearTransientErrorCmd()
}

func (m *Model) moveQuestion(err error) tea.Cmd {
	if err == nil {
		m.resetEditor()
	}
	return m.act(err)
}

func (m *Model) refresh() {
	m.snap = m.machine.Snapshot()
	if m.transcriptLive {
		m.scrollToBottom()
	}
}

func (m *Model) syncCode() {
	m.machine.SetCode(m.editor.Value())
}

// resetEditor puts the starter template for the current language in the editor.
func (m *Model) resetEditor() {
	code := starterCode[m.machine.Snapshot().Language]
	m.editor.SetValue(code)
	m.machine.SetCode(code)
	m.snap = m.machine.Snapshot()
}

// cycleLanguage switches to the next language, swapping the template in when the
// candidate has not written anything yet.
func (m *Model) cycleLanguage() {
	current := m.machine.Snapshot().Language
	next := Languages[0]
	for i, lang := range Languages {
		if lang == current {
			next = Languages[(i+1)%len(Languages)]
			break
		}
	}
	m.machine.SetLanguage(next)

	code := m.editor.Value()
	if code == "" || code == starterCode[current] {
		m.resetEditor()
	}
	m.refresh()
}

func (m *Model) setFocus(f PanelFocus) {
	m.focusedPanel = f
	m.editor.Blur()
	m.chat.Blur()
	switch f {
	case FocusEditor:
		m.editor.Focus()
	case FocusChat:
		m.chat.Focus()
	}
}

func (m *Model) layout() {
	left := m.leftPanelWidth()
	m.editor.SetWidth(max(10, left-2))
	m.editor.SetHeight(max(3, m.contentHeight()/2-1))
	m.chat.Width = max(10, m.width-4)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, transport.ErrNotConnected):
		return "not connected, message not sent"
	case errors.Is(err, transport.ErrSendBufferFull):
		return "connection is backed up, message not sent"
	case errors.Is(err, session.ErrEmptyCode):
		return "write some code before submitting"
	case errors.Is(err, session.ErrMaxHints):
		return fmt.Sprintf("all %d hints used", session.MaxHintLevel)
	case errors.Is(err, session.ErrNoQuestion):
		return "no question selected"
	case errors.Is(err, session.ErrOutOfRange):
		return "no more questions that way"
	}
	return err.Error()
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := len(m.transcriptLines(m.rightPanelWidth()))
	visible := m.transcriptVisibleLines()
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + chat(1) + error(1) + footer(1) + padding
	reserved := 8
	return max(8, m.height-reserved)
}

func (m Model) transcriptVisibleLines() int {
	return max(3, m.contentHeight()-m.performancePanelHeight()-1)
}

func (m Model) leftPanelWidth() int {
	if m.width == 0 {
		return 50
	}
	return max(30, m.width*55/100)
}

func (m Model) rightPanelWidth() int {
	if m.width == 0 {
		return 40
	}
	return max(20, m.width-m.leftPanelWidth()-3)
}
