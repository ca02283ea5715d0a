package speech

import (
	"io"
	"log/slog"
	"testing"
)

type recordingSpeaker struct{ said []string }

func (r *recordingSpeaker) Speak(text string) { r.said = append(r.said, text) }

func TestToggle(t *testing.T) {
	rec := &recordingSpeaker{}
	tg := NewToggle(rec, false)

	tg.Speak("one")
	if !tg.Flip() {
		t.Error("Flip = false, want muted")
	}
	tg.Speak("two")
	tg.SetMuted(false)
	tg.Speak("three")

	if len(rec.said) != 2 || rec.said[0] != "one" || rec.said[1] != "three" {
		t.Errorf("said = %v, want [one three]", rec.said)
	}
}

func TestCommandSpeakerMissingBinary(t *testing.T) {
	s := NewCommandSpeaker("codesage-no-such-tts-binary", slog.New(slog.NewTextHandler(io.Discard, nil)))
	// Must not panic or block.
	s.Speak("hello")
}

func TestCommandSpeakerParsesArgs(t *testing.T) {
	s := NewCommandSpeaker("say -r 180", nil)
	if len(s.Command) != 3 || s.Command[0] != "say" || s.Command[2] != "180" {
		t.Errorf("Command = %v", s.Command)
	}
}
