package daemon

import (
	"encoding/json"
	"testing"
)

func TestSubscribeCommandShape(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: "subscribe", Events: []string{EventPartial, EventSegment}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"cmd":"subscribe","events":["partial","segment"]}`
	if string(data) != want {
		t.Errorf("command = %s, want %s", data, want)
	}
}

func TestEventUnmarshalSegment(t *testing.T) {
	raw := `{"event":"segment","text":"use a hash map","source":"microphone","sequenceNumber":4}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != EventSegment {
		t.Errorf("event = %q, want %q", ev.Event, EventSegment)
	}
	if ev.Text != "use a hash map" {
		t.Errorf("text = %q", ev.Text)
	}
	if ev.SequenceNumber == nil || *ev.SequenceNumber != 4 {
		t.Errorf("sequenceNumber = %v, want 4", ev.SequenceNumber)
	}
}

func TestEventIgnoresUnknownFields(t *testing.T) {
	raw := `{"event":"level","mic":0.4,"sys":0.1}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != "level" {
		t.Errorf("event = %q, want level", ev.Event)
	}
}
