// Package wire defines the envelopes exchanged with the interview service over the
// session channel and the codec that turns them into JSON text frames.
package wire

import "encoding/json"

// Kind is the envelope discriminant carried in the "type" field.
type Kind string

// Outbound kinds, client to service.
const (
	KindAnalyzeCode     Kind = "analyze_code"
	KindSendMessage     Kind = "send_message"
	KindRequestHint     Kind = "request_hint"
	KindRequestFollowUp Kind = "request_follow_up"
	KindGenerateReport  Kind = "generate_report"
)

// Inbound kinds, service to client.
const (
	KindCodeAnalysis      Kind = "code_analysis"
	KindChatMessage       Kind = "chat_message"
	KindHintResponse      Kind = "hint_response"
	KindFollowUpQuestion  Kind = "follow_up_question"
	KindPerformanceReport Kind = "performance_report"
)

// Outbound is a message the client sends.
type Outbound interface {
	Kind() Kind
}

// Inbound is a message the client receives.
type Inbound interface {
	Kind() Kind
}

// AnalyzeCode asks the service to evaluate a submission.
type AnalyzeCode struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problem_description"`
}

// SendMessage carries free-form candidate chat.
type SendMessage struct {
	Message string `json:"message"`
}

// RequestHint asks for the hint at HintLevel for a question.
type RequestHint struct {
	QuestionID  string `json:"question_id"`
	HintLevel   int    `json:"hint_level"`
	CurrentCode string `json:"current_code"`
}

// RequestFollowUp asks for a follow-up question about the last submission.
type RequestFollowUp struct {
	Code               string          `json:"code"`
	Analysis           *AnalysisResult `json:"analysis"`
	ProblemDescription string          `json:"problem_description"`
}

// GenerateReport asks for the end-of-interview performance report.
type GenerateReport struct{}

func (AnalyzeCode) Kind() Kind     { return KindAnalyzeCode }
func (SendMessage) Kind() Kind     { return KindSendMessage }
func (RequestHint) Kind() Kind     { return KindRequestHint }
func (RequestFollowUp) Kind() Kind { return KindRequestFollowUp }
func (GenerateReport) Kind() Kind  { return KindGenerateReport }

// CodeAnalysis is the service's evaluation of a submission plus narrative text.
type CodeAnalysis struct {
	Analysis   AnalysisResult `json:"analysis"`
	AIResponse string         `json:"ai_response"`
}

// ChatMessage is a conversational reply.
type ChatMessage struct {
	AIResponse string `json:"ai_response"`
}

// HintResponse carries hint text and the level the service disclosed.
type HintResponse struct {
	Hint      string `json:"hint"`
	HintLevel int    `json:"hint_level"`
}

// FollowUpQuestion is a conversational question from the interviewer.
type FollowUpQuestion struct {
	Question string `json:"question"`
}

// PerformanceReport is opaque to the client and handed to the report consumer as-is.
type PerformanceReport struct {
	Report json.RawMessage `json:"report"`
}

func (CodeAnalysis) Kind() Kind      { return KindCodeAnalysis }
func (ChatMessage) Kind() Kind       { return KindChatMessage }
func (HintResponse) Kind() Kind      { return KindHintResponse }
func (FollowUpQuestion) Kind() Kind  { return KindFollowUpQuestion }
func (PerformanceReport) Kind() Kind { return KindPerformanceReport }
