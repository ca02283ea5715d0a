package speech

import (
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
)

// CommandSpeaker speaks by running an external text-to-speech command with the text as
// its final argument. Each call starts the command and returns immediately.
type CommandSpeaker struct {
	Command []string
	Logger  *slog.Logger
}

// NewCommandSpeaker parses a command line such as "say -r 180".
func NewCommandSpeaker(commandLine string, logger *slog.Logger) *CommandSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSpeaker{Command: strings.Fields(commandLine), Logger: logger}
}

// Speak starts the command. Failures are logged and otherwise ignored.
func (s *CommandSpeaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || len(s.Command) == 0 {
		return
	}
	args := append(append([]string(nil), s.Command[1:]...), text)
	cmd := exec.Command(s.Command[0], args...)
	if err := cmd.Start(); err != nil {
		s.Logger.Warn("speak failed", "command", s.Command[0], "error", err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			s.Logger.Debug("speak command exited", "command", s.Command[0], "error", err)
		}
	}()
}

// Toggle wraps a Speaker with a mute switch. The zero value of muted is unmuted.
type Toggle struct {
	next  Speaker
	muted atomic.Bool
}

// NewToggle wraps next.
func NewToggle(next Speaker, muted bool) *Toggle {
	t := &Toggle{next: next}
	t.muted.Store(muted)
	return t
}

// Speak forwards text unless muted.
func (t *Toggle) Speak(text string) {
	if t.next == nil || t.muted.Load() {
		return
	}
	t.next.Speak(text)
}

// SetMuted mutes or unmutes.
func (t *Toggle) SetMuted(muted bool) { t.muted.Store(muted) }

// Muted reports the mute state.
func (t *Toggle) Muted() bool { return t.muted.Load() }

// Flip toggles mute and returns the new state.
func (t *Toggle) Flip() bool {
	for {
		old := t.muted.Load()
		if t.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
