// Package api is the request/response client for interview records.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwulff/codesage/internal/domain"
)

// ErrOperationFailed is the generic failure every call reports. Callers match it with
// errors.Is; *Error carries the detail.
var ErrOperationFailed = errors.New("api: operation failed")

// Error describes one failed call.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches ErrOperationFailed.
func (e *Error) Is(target error) bool { return target == ErrOperationFailed }

func (e *Error) Unwrap() error { return e.Err }

// CreateRequest is the body of a create call.
type CreateRequest struct {
	CandidateName string            `json:"candidate_name"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Category      string            `json:"category"`
}

// envelope is the service's response wrapper.
type envelope struct {
	Success    bool               `json:"success"`
	Interview  *domain.Interview  `json:"interview,omitempty"`
	Interviews []domain.Interview `json:"interviews,omitempty"`
	Message    string             `json:"message,omitempty"`
	Detail     string             `json:"detail,omitempty"`
}

// Client talks to the interview service. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Create creates an interview and returns it with its questions.
func (c *Client) Create(ctx context.Context, req CreateRequest) (domain.Interview, error) {
	if req.Category == "" {
		req.Category = "all"
	}
	env, err := c.do(ctx, "create interview", http.MethodPost, "/api/interviews", req)
	if err != nil {
		return domain.Interview{}, err
	}
	if env.Interview == nil {
		return domain.Interview{}, &Error{Op: "create interview", Message: "response has no interview"}
	}
	return *env.Interview, nil
}

// Get fetches one interview.
func (c *Client) Get(ctx context.Context, id string) (domain.Interview, error) {
	env, err := c.do(ctx, "get interview", http.MethodGet, "/api/interviews/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Interview{}, err
	}
	if env.Interview == nil {
		return domain.Interview{}, &Error{Op: "get interview", Message: "response has no interview"}
	}
	return *env.Interview, nil
}

// Start marks an interview as started.
func (c *Client) Start(ctx context.Context, id string) error {
	_, err := c.do(ctx, "start interview", http.MethodPost, "/api/interviews/"+url.PathEscape(id)+"/start", nil)
	return err
}

// List returns all interviews the service knows.
func (c *Client) List(ctx context.Context) ([]domain.Interview, error) {
	env, err := c.do(ctx, "list interviews", http.MethodGet, "/api/interviews", nil)
	if err != nil {
		return nil, err
	}
	return env.Interviews, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("interview service unreachable", "op", op, "error", err)
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode >= 300 || decodeErr != nil || !env.Success {
		msg := env.Detail
		if msg == "" {
			msg = env.Message
		}
		apiErr := &Error{Op: op, Status: resp.StatusCode, Message: msg, Err: decodeErr}
		c.logger.Warn("interview service call failed", "op", op, "status", resp.StatusCode, "error", apiErr)
		return nil, apiErr
	}
	return &env, nil
}
