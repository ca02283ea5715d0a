package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func TestEncodeAnalyzeCode(t *testing.T) {
	data, err := Encode(AnalyzeCode{
		Code:               "print(1)",
		Language:           "python",
		ProblemDescription: "Print one.",
	}, testTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("encoded frame is not JSON: %v (%s)", err, data)
	}
	want := map[string]string{
		"type":                "analyze_code",
		"code":                "print(1)",
		"language":            "python",
		"problem_description": "Print one.",
		"timestamp":           "2026-03-01T12:30:00Z",
	}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("%s = %v, want %q", k, raw[k], v)
		}
	}
	if len(raw) != len(want) {
		t.Errorf("fields = %d, want %d (%s)", len(raw), len(want), data)
	}
}

func TestEncodeRequestHint(t *testing.T) {
	data, err := Encode(RequestHint{QuestionID: "e1", HintLevel: 2, CurrentCode: "x = 1"}, testTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got struct {
		Type        string `json:"type"`
		QuestionID  string `json:"question_id"`
		HintLevel   int    `json:"hint_level"`
		CurrentCode string `json:"current_code"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "request_hint" || got.QuestionID != "e1" || got.HintLevel != 2 || got.CurrentCode != "x = 1" {
		t.Errorf("request_hint = %+v", got)
	}
}

func TestEncodeGenerateReportHasOnlyHeader(t *testing.T) {
	data, err := Encode(GenerateReport{}, testTime)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, data)
	}
	if raw["type"] != "generate_report" {
		t.Errorf("type = %v, want generate_report", raw["type"])
	}
	if len(raw) != 2 {
		t.Errorf("fields = %v, want type and timestamp only", raw)
	}
}

func TestDecodeInboundKinds(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, msg Inbound)
	}{
		{
			name:  "code analysis",
			frame: `{"type":"code_analysis","analysis":{"syntax":{"valid":true,"errors":[]},"runtime":{"success":true,"execution_time":0.02,"output":"1\n","error":"","return_code":0},"complexity":{"time_complexity":"O(1)","space_complexity":"O(1)"},"quality":{"score":90,"grade":"A","issues":[]},"overall_score":92},"ai_response":"Looks correct"}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(CodeAnalysis)
				if !ok {
					t.Fatalf("msg = %T, want CodeAnalysis", msg)
				}
				if m.AIResponse != "Looks correct" {
					t.Errorf("ai_response = %q", m.AIResponse)
				}
				if !m.Analysis.Syntax.Valid || m.Analysis.Quality.Grade != "A" || m.Analysis.OverallScore != 92 {
					t.Errorf("analysis = %+v", m.Analysis)
				}
				if m.Analysis.Runtime.Output != "1\n" {
					t.Errorf("runtime output = %q", m.Analysis.Runtime.Output)
				}
			},
		},
		{
			name:  "chat message",
			frame: `{"type":"chat_message","ai_response":"Tell me more."}`,
			check: func(t *testing.T, msg Inbound) {
				if m, ok := msg.(ChatMessage); !ok || m.AIResponse != "Tell me more." {
					t.Errorf("msg = %#v", msg)
				}
			},
		},
		{
			name:  "hint response",
			frame: `{"type":"hint_response","hint":"Use a map.","hint_level":2}`,
			check: func(t *testing.T, msg Inbound) {
				if m, ok := msg.(HintResponse); !ok || m.HintLevel != 2 || m.Hint != "Use a map." {
					t.Errorf("msg = %#v", msg)
				}
			},
		},
		{
			name:  "follow up",
			frame: `{"type":"follow_up_question","question":"What if the input is sorted?"}`,
			check: func(t *testing.T, msg Inbound) {
				if m, ok := msg.(FollowUpQuestion); !ok || m.Question != "What if the input is sorted?" {
					t.Errorf("msg = %#v", msg)
				}
			},
		},
		{
			name:  "performance report keeps raw payload",
			frame: `{"type":"performance_report","report":{"overall":"strong"}}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(PerformanceReport)
				if !ok {
					t.Fatalf("msg = %T", msg)
				}
				if string(m.Report) != `{"overall":"strong"}` {
					t.Errorf("report = %s", m.Report)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tc.check(t, msg)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	frames := map[string]string{
		"not json":         `hello`,
		"missing type":     `{"ai_response":"hi"}`,
		"numeric type":     `{"type":7}`,
		"wrong field type": `{"type":"hint_response","hint":"x","hint_level":"two"}`,
		"truncated":        `{"type":"chat_message","ai_response":"hi"`,
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"type":"analyze_code","code":"x"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestEncodeReply(t *testing.T) {
	data, err := EncodeReply(HintResponse{Hint: "Use a stack.", HintLevel: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"hint_response","hint":"Use a stack.","hint_level":2}`
	if string(data) != want {
		t.Errorf("got = %s, want %s", data, want)
	}

	// A reply round-trips through the client decoder.
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := msg.(HintResponse); got.HintLevel != 2 {
		t.Errorf("HintLevel = %d, want 2", got.HintLevel)
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		frame string
		want  Kind
	}{
		{`{"type":"analyze_code","timestamp":"x","code":"a","language":"go","problem_description":"p"}`, KindAnalyzeCode},
		{`{"type":"send_message","message":"hi"}`, KindSendMessage},
		{`{"type":"request_hint","question_id":"e1","hint_level":1,"current_code":""}`, KindRequestHint},
		{`{"type":"request_follow_up","code":"","analysis":null,"problem_description":""}`, KindRequestFollowUp},
		{`{"type":"generate_report","timestamp":"x"}`, KindGenerateReport},
	}
	for _, tt := range tests {
		msg, err := DecodeRequest([]byte(tt.frame))
		if err != nil {
			t.Errorf("DecodeRequest(%s): %v", tt.frame, err)
			continue
		}
		if msg.Kind() != tt.want {
			t.Errorf("kind = %s, want %s", msg.Kind(), tt.want)
		}
	}

	hint, _ := DecodeRequest([]byte(tests[2].frame))
	if hint.(RequestHint).QuestionID != "e1" {
		t.Errorf("QuestionID = %q, want e1", hint.(RequestHint).QuestionID)
	}

	if _, err := DecodeRequest([]byte(`{"type":"chat_message"}`)); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
	if _, err := DecodeRequest([]byte(`{"type":"send_message","message":5}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}
