package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/jwulff/codesage/internal/domain"
	"github.com/jwulff/codesage/internal/wire"
)

const maxHintLevel = 3

// activity is what a session did on the realtime channel, for its report.
type activity struct {
	scores   []float64
	hints    []int
	messages int
}

func (s *Server) serveSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := s.logger.With("interview_id", id)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("close websocket", "error", closeErr)
		}
	}()
	logger.Info("session connected")

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			logger.Info("session disconnected", "reason", err)
			return
		}

		req, err := wire.DecodeRequest(data)
		if err != nil {
			logger.Warn("discarding malformed request", "error", err)
			continue
		}

		reply, err := wire.EncodeReply(s.reply(id, req))
		if err != nil {
			logger.Error("encode reply", "kind", req.Kind(), "error", err)
			continue
		}
		if err := ws.Write(ctx, websocket.MessageText, reply); err != nil {
			logger.Info("session write failed", "error", err)
			return
		}
	}
}

// reply answers one request. Every request kind gets exactly one reply.
func (s *Server) reply(id string, req wire.Outbound) wire.Inbound {
	s.mu.Lock()
	act, ok := s.activity[id]
	if !ok {
		act = &activity{}
		s.activity[id] = act
	}
	s.mu.Unlock()

	switch req := req.(type) {
	case wire.AnalyzeCode:
		res := analyze(req.Code, req.Language)
		s.mu.Lock()
		act.scores = append(act.scores, res.OverallScore)
		s.mu.Unlock()
		return wire.CodeAnalysis{Analysis: res, AIResponse: reviewComment(res)}

	case wire.SendMessage:
		s.mu.Lock()
		act.messages++
		s.mu.Unlock()
		return wire.ChatMessage{AIResponse: fmt.Sprintf(
			"You said: %q. Walk me through how you would approach it, and what the time complexity would be.",
			req.Message)}

	case wire.RequestHint:
		level := min(max(req.HintLevel, 1), maxHintLevel)
		s.mu.Lock()
		act.hints = append(act.hints, level)
		s.mu.Unlock()
		return wire.HintResponse{Hint: s.hint(id, req.QuestionID, level), HintLevel: level}

	case wire.RequestFollowUp:
		return wire.FollowUpQuestion{Question: followUp(req.Analysis)}

	case wire.GenerateReport:
		return wire.PerformanceReport{Report: s.report(id)}
	}
	return wire.ChatMessage{AIResponse: "I did not catch that."}
}

// hint returns the question's stored hint for level, falling back to general advice
// once the stored hints run out.
func (s *Server) hint(interviewID, questionID string, level int) string {
	q, ok := s.question(interviewID, questionID)
	if ok && level-1 < len(q.Hints) {
		return q.Hints[level-1]
	}
	if ok && q.ExpectedComplexity != "" {
		return "Aim for " + q.ExpectedComplexity + "."
	}
	return "Start from a brute-force solution, then look for repeated work you can remove."
}

func (s *Server) question(interviewID, questionID string) (domain.Question, bool) {
	if iv, ok := s.lookup(interviewID); ok {
		for _, q := range iv.Questions {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return s.bank.Find(questionID)
}

type report struct {
	InterviewID    string  `json:"interview_id"`
	CandidateName  string  `json:"candidate_name,omitempty"`
	Questions      int     `json:"questions"`
	CodeSubmission int     `json:"code_submissions"`
	HintsUsed      int     `json:"hints_used"`
	Messages       int     `json:"messages"`
	AverageScore   float64 `json:"average_score"`
	Summary        string  `json:"summary"`
}

func (s *Server) report(id string) json.RawMessage {
	iv, _ := s.lookup(id)

	s.mu.Lock()
	act := s.activity[id]
	rep := report{
		InterviewID:    id,
		CandidateName:  iv.CandidateName,
		Questions:      len(iv.Questions),
		CodeSubmission: len(act.scores),
		HintsUsed:      len(act.hints),
		Messages:       act.messages,
	}
	var total float64
	for _, sc := range act.scores {
		total += sc
	}
	s.mu.Unlock()

	if rep.CodeSubmission > 0 {
		rep.AverageScore = total / float64(rep.CodeSubmission)
	}
	switch {
	case rep.CodeSubmission == 0:
		rep.Summary = "No code was submitted."
	case rep.AverageScore >= 80:
		rep.Summary = "Strong problem solving with clean solutions."
	case rep.AverageScore >= 60:
		rep.Summary = "Working solutions; focus on efficiency and code quality."
	default:
		rep.Summary = "Solutions need work on correctness before optimization."
	}

	data, _ := json.Marshal(rep)
	return data
}

func reviewComment(res wire.AnalysisResult) string {
	var b strings.Builder
	if !res.Syntax.Valid {
		b.WriteString("Your code has a syntax problem: ")
		b.WriteString(strings.Join(res.Syntax.Errors, "; "))
		b.WriteString(". Fix that first.")
		return b.String()
	}
	fmt.Fprintf(&b, "Your solution runs in %s time and %s space.", res.Complexity.TimeComplexity, res.Complexity.SpaceComplexity)
	if res.Complexity.TimeComplexity == "O(n^2)" {
		b.WriteString(" Can you avoid the nested loop?")
	}
	if len(res.Quality.Issues) > 0 {
		b.WriteString(" Note: ")
		b.WriteString(strings.Join(res.Quality.Issues, "; "))
		b.WriteString(".")
	}
	return b.String()
}

func followUp(a *wire.AnalysisResult) string {
	switch {
	case a == nil:
		return "Before you code: what edge cases would you test first?"
	case a.Complexity.TimeComplexity == "O(n^2)":
		return "Your solution is quadratic. Which data structure would let you drop a loop?"
	default:
		return "How would your solution change if the input did not fit in memory?"
	}
}
