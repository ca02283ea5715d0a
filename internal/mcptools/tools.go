// Package mcptools serves the local interview archive to MCP clients.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/codesage/internal/db"
)

const defaultListLimit = 20

// Archive is the read side of the session archive.
type Archive interface {
	Sessions(limit int) ([]db.Session, error)
	Session(id string) (*db.Session, error)
	Messages(sessionID string) ([]db.Message, error)
	Report(sessionID string) (*db.Report, error)
}

// NewServer builds an MCP server exposing list_sessions, get_transcript, and
// get_report over archive.
func NewServer(archive Archive, version string) *server.MCPServer {
	s := server.NewMCPServer("codesage", version, server.WithToolCapabilities(false))
	t := &tools{archive: archive}

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List archived interview sessions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum sessions to return (default 20).")),
	), t.listSessions)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get the ordered transcript of one interview session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Interview session id.")),
	), t.getTranscript)

	s.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Get the latest performance report of one interview session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Interview session id.")),
	), t.getReport)

	return s
}

// ServeStdio serves the archive on stdin/stdout until the client disconnects.
func ServeStdio(archive Archive, version string) error {
	return server.ServeStdio(NewServer(archive, version))
}

type tools struct {
	archive Archive
}

type sessionView struct {
	ID            string     `json:"id"`
	CandidateName string     `json:"candidate_name"`
	Difficulty    string     `json:"difficulty"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	Questions     int        `json:"questions"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type messageView struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (t *tools) listSessions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	sessions, err := t.archive.Sessions(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions: %v", err)), nil
	}

	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionView(s))
	}
	return jsonResult(out)
}

func (t *tools) getTranscript(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := t.archive.Session(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load session: %v", err)), nil
	}
	if sess == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no archived session %q", id)), nil
	}

	msgs, err := t.archive.Messages(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load transcript: %v", err)), nil
	}
	entries := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, messageView{Seq: m.Seq, Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt})
	}

	return jsonResult(struct {
		Session    sessionView   `json:"session"`
		Transcript []messageView `json:"transcript"`
	}{toSessionView(*sess), entries})
}

func (t *tools) getReport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := t.archive.Report(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load report: %v", err)), nil
	}
	if rep == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no report for session %q", id)), nil
	}
	return mcp.NewToolResultText(string(rep.Content)), nil
}

func toSessionView(s db.Session) sessionView {
	return sessionView{
		ID:            s.ID,
		CandidateName: s.CandidateName,
		Difficulty:    s.Difficulty,
		Category:      s.Category,
		Status:        s.Status,
		Questions:     s.QuestionCount,
		CreatedAt:     s.CreatedAt,
		StartedAt:     s.StartedAt,
		CompletedAt:   s.CompletedAt,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
