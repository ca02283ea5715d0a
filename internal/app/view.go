package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/session"
	"github.com/jwulff/codesage/internal/transport"
	"github.com/jwulff/codesage/internal/ui"
)

const performanceLines = 8

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderChat())

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	iv := m.snap.Interview
	title := ui.TitleStyle.Render("CODESAGE")

	var who string
	if iv.CandidateName != "" {
		who = ui.DimStyle.Render(" — " + iv.CandidateName)
	}
	var level string
	if iv.Difficulty != "" {
		level = ui.DimStyle.Render(fmt.Sprintf(" [%s · %s]", iv.Difficulty, iv.Category))
	}
	return title + who + level
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.snap.Offline:
		dot = ui.OfflineDotStyle.Render("○ OFFLINE") + ui.DimStyle.Render(" (ctrl+o reconnect)")
	case m.snap.Connection == transport.StateConnected:
		dot = ui.ConnectedDotStyle.Render("● LIVE")
	case m.snap.Connection == transport.StateConnecting || m.snap.ReconnectAttempt > 0:
		label := "◌ CONNECTING"
		if m.snap.ReconnectAttempt > 0 {
			label = fmt.Sprintf("◌ RECONNECTING #%d", m.snap.ReconnectAttempt)
		}
		dot = ui.ConnectingDotStyle.Render(label)
	default:
		dot = ui.OfflineDotStyle.Render("○ DISCONNECTED")
	}

	parts := []string{
		dot,
		ui.TimerStyle.Render(session.FormatElapsed(m.snap.Elapsed)),
		ui.StatusStyle.Render(fmt.Sprintf("Q %d of %d", m.snap.QuestionIndex+1, max(m.snap.QuestionCount(), 1))),
		ui.StatusStyle.Render(fmt.Sprintf("hints %d/%d", m.snap.HintLevel, session.MaxHintLevel)),
		ui.StatusStyle.Render(m.snap.Language),
		ui.StatusStyle.Render(string(m.snap.Interview.Status)),
	}
	if m.voice != nil {
		if m.voice.Muted() {
			parts = append(parts, ui.DimStyle.Render("voice off"))
		} else {
			parts = append(parts, ui.SpinnerStyle.Render("voice on"))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderMainContent() string {
	leftW := m.leftPanelWidth()
	rightW := m.rightPanelWidth()
	contentH := m.contentHeight()

	left := m.renderLeftColumn(leftW, contentH)
	right := m.renderRightColumn(rightW, contentH)

	divider := ui.DividerStyle.Render("│")

	var rows []string
	for i := 0; i < contentH; i++ {
		l := strings.Repeat(" ", leftW)
		if i < len(left) {
			l = padRight(left[i], leftW)
		}
		r := ""
		if i < len(right) {
			r = right[i]
		}
		rows = append(rows, l+divider+r)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderLeftColumn(width, height int) []string {
	editorLines := strings.Split(m.editor.View(), "\n")
	questionH := max(2, height-len(editorLines)-1)

	lines := fitLines(m.questionLines(width), questionH)

	header := "EDITOR"
	if m.snap.Analyzing {
		header += ui.SpinnerStyle.Render(" analyzing…")
	}
	lines = append(lines, m.panelTitle(header, m.focusedPanel == FocusEditor))
	lines = append(lines, editorLines...)
	return fitLines(lines, height)
}

func (m Model) questionLines(width int) []string {
	q := m.snap.Question
	if q == nil {
		return []string{
			ui.PanelTitleStyle.Render("QUESTION"),
			ui.DimStyle.Render("  No questions in this interview"),
		}
	}

	textW := max(10, width-2)
	lines := []string{
		ui.PanelTitleStyle.Render(fmt.Sprintf("QUESTION %d/%d", m.snap.QuestionIndex+1, m.snap.QuestionCount())) +
			ui.DimStyle.Render(" "+string(q.Difficulty)),
		ui.TitleStyle.Render(truncateToWidth(q.Title, width)),
	}
	for _, l := range wrapText(q.Description, textW) {
		lines = append(lines, " "+l)
	}
	if q.Constraints != "" {
		for _, l := range wrapText("Constraints: "+q.Constraints, textW) {
			lines = append(lines, ui.DimStyle.Render(" "+l))
		}
	}
	for i, tc := range q.TestCases {
		line := fmt.Sprintf(" Example %d: %s → %s", i+1, compactJSON(tc.Input), compactJSON(tc.Expected))
		lines = append(lines, ui.DimStyle.Render(truncateToWidth(line, width)))
	}
	return lines
}

func (m Model) renderRightColumn(width, height int) []string {
	var lines []string
	if m.showReport && len(m.snap.Report) > 0 {
		lines = fitLines(m.reportLines(width), m.performancePanelHeight())
	} else {
		lines = fitLines(m.performanceLines(width), m.performancePanelHeight())
	}

	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}
	lines = append(lines, m.panelTitle("TRANSCRIPT", m.focusedPanel == FocusTranscript)+badge)

	display := m.transcriptLines(width)
	visible := m.transcriptVisibleLines()
	if len(display) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Ask a question or submit code to begin"))
	} else {
		start := 0
		if m.transcriptLive {
			if len(display) > visible {
				start = len(display) - visible
			}
		} else {
			start = m.transcriptScroll
		}
		start = max(0, min(start, len(display)))
		end := min(start+visible, len(display))
		lines = append(lines, display[start:end]...)
	}
	return fitLines(lines, height)
}

func (m Model) performancePanelHeight() int {
	return performanceLines
}

func (m Model) performanceLines(width int) []string {
	lines := []string{ui.PanelTitleStyle.Render("PERFORMANCE")}
	a := m.snap.Analysis
	if a == nil {
		lines = append(lines, ui.DimStyle.Render("  Submit code (ctrl+s) for analysis"))
		return lines
	}

	lines = append(lines, "  Overall "+ui.ScoreStyle(a.OverallScore).Render(fmt.Sprintf("%.0f", a.OverallScore)))

	if a.Syntax.Valid {
		lines = append(lines, "  Syntax  "+ui.PassStyle.Render("✓ valid"))
	} else {
		lines = append(lines, "  Syntax  "+ui.FailStyle.Render(fmt.Sprintf("✗ %d error(s)", len(a.Syntax.Errors))))
	}

	if a.Runtime.Success {
		lines = append(lines, "  Runtime "+ui.PassStyle.Render(fmt.Sprintf("✓ %.3fs", a.Runtime.ExecutionTime)))
	} else {
		msg := "✗ failed"
		if first, _, _ := strings.Cut(strings.TrimSpace(a.Runtime.Error), "\n"); first != "" {
			msg = "✗ " + strings.TrimSpace(first)
		}
		const label = "  Runtime "
		msg = truncateToWidth(msg, width-lipgloss.Width(label))
		lines = append(lines, label+ui.FailStyle.Render(msg))
	}

	lines = append(lines, fmt.Sprintf("  Time %s  Space %s", orDash(a.Complexity.TimeComplexity), orDash(a.Complexity.SpaceComplexity)))
	lines = append(lines, "  Quality "+ui.ScoreStyle(a.Quality.Score).Render(fmt.Sprintf("%s (%.0f)", orDash(a.Quality.Grade), a.Quality.Score)))
	if a.Performance.Efficiency != "" {
		lines = append(lines, truncateToWidth("  Efficiency "+a.Performance.Efficiency, width))
	}
	return lines
}

func (m Model) reportLines(width int) []string {
	lines := []string{ui.PanelTitleStyle.Render("REPORT") + ui.DimStyle.Render(" (f3 hide)")}
	var buf bytes.Buffer
	if err := json.Indent(&buf, m.snap.Report, "  ", "  "); err != nil {
		return append(lines, truncateToWidth("  "+string(m.snap.Report), width))
	}
	for _, l := range strings.Split("  "+buf.String(), "\n") {
		lines = append(lines, truncateToWidth(l, width))
	}
	return lines
}

// transcriptLines renders the transcript as wrapped display lines.
func (m Model) transcriptLines(width int) []string {
	// Prefix: "[HH:MM:SS] Sage: " = 17 chars visible
	prefixWidth := 17
	textWidth := max(10, width-prefixWidth-1)
	indent := strings.Repeat(" ", prefixWidth)

	var lines []string
	for _, e := range m.snap.Transcript {
		ts := ui.TimestampStyle.Render(e.Timestamp.Format("[15:04:05]"))
		var who string
		if e.Role == domain.RoleUser {
			who = ui.CandidateLabelStyle.Render(" You:  ")
		} else {
			who = ui.AssistantLabelStyle.Render(" Sage: ")
		}
		wrapped := wrapText(e.Content, textWidth)
		lines = append(lines, ts+who+wrapped[0])
		for _, wl := range wrapped[1:] {
			lines = append(lines, indent+wl)
		}
	}
	return lines
}

func (m Model) renderChat() string {
	return m.panelTitle("CHAT ", m.focusedPanel == FocusChat) + m.chat.View()
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"^s", " Run"},
		{"^t", " Hint"},
		{"^y", " Follow-up"},
		{"^r", " Reset"},
		{"^l", " Lang"},
		{"PgUp/PgDn", " Question"},
		{"^g", " Report"},
		{"^x", " Finish"},
		{"Tab", " Focus"},
	}
	if m.voice != nil {
		keys = append(keys, struct{ key, desc string }{"F2", " Voice"})
	}
	keys = append(keys, struct{ key, desc string }{"^c", " Quit"})

	var parts []string
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k.key)+ui.FooterDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) panelTitle(title string, active bool) string {
	if active {
		return ui.PanelTitleActiveStyle.Render(title)
	}
	return ui.PanelTitleStyle.Render(title)
}

// Helpers

func fitLines(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 && width > 1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
