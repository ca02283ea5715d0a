// Package devserver is a local stand-in for the interview service. It serves the
// interview REST endpoints from an in-memory store and answers the realtime channel
// with canned, deterministic replies.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jwulff/codesage/internal/domain"
)

// DefaultMaxQuestions caps the questions drawn per interview.
const DefaultMaxQuestions = 5

// Server holds interviews in memory.
type Server struct {
	bank         *Bank
	maxQuestions int
	logger       *slog.Logger
	now          func() time.Time
	shuffle      func(n int, swap func(i, j int))

	mu         sync.Mutex
	interviews map[string]*domain.Interview
	order      []string
	activity   map[string]*activity
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxQuestions caps questions per interview.
func WithMaxQuestions(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxQuestions = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithShuffle replaces the question shuffle; nil keeps bank order.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(s *Server) { s.shuffle = shuffle }
}

// New creates a server over the embedded question bank.
func New(opts ...Option) (*Server, error) {
	bank, err := LoadBank()
	if err != nil {
		return nil, err
	}
	s := &Server{
		bank:         bank,
		maxQuestions: DefaultMaxQuestions,
		logger:       slog.Default(),
		now:          time.Now,
		shuffle:      rand.Shuffle,
		interviews:   make(map[string]*domain.Interview),
		activity:     make(map[string]*activity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes returns the HTTP handler for the REST and realtime endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(s.requestLogger)

	r.Route("/api/interviews", func(r chi.Router) {
		r.Post("/", s.createInterview)
		r.Get("/", s.listInterviews)
		r.Get("/{id}", s.getInterview)
		r.Post("/{id}/start", s.startInterview)
	})

	r.Get("/ws/{id}", s.serveSession)

	return r
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("dev server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type createRequest struct {
	CandidateName string `json:"candidate_name"`
	Difficulty    string `json:"difficulty"`
	Category      string `json:"category"`
}

func (s *Server) createInterview(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.CandidateName = strings.TrimSpace(req.CandidateName)
	if req.CandidateName == "" {
		writeError(w, http.StatusUnprocessableEntity, "candidate_name is required")
		return
	}
	difficulty, ok := domain.ParseDifficulty(req.Difficulty)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "difficulty must be easy, medium, or hard")
		return
	}
	if req.Category == "" {
		req.Category = "all"
	}

	iv := &domain.Interview{
		ID:            uuid.NewString(),
		CandidateName: req.CandidateName,
		Difficulty:    difficulty,
		Category:      req.Category,
		Questions:     s.bank.Pick(difficulty, req.Category, s.maxQuestions, s.shuffle),
		Status:        domain.StatusCreated,
		CreatedAt:     s.now(),
	}
	if iv.Questions == nil {
		iv.Questions = []domain.Question{}
	}

	s.mu.Lock()
	s.interviews[iv.ID] = iv
	s.order = append(s.order, iv.ID)
	out := *iv
	s.mu.Unlock()

	s.logger.Info("interview created", "interview_id", iv.ID, "questions", len(iv.Questions))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "interview": out})
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "interview": iv})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	iv, ok := s.interviews[id]
	if ok {
		iv.Status = domain.StatusInProgress
		if iv.StartedAt == nil {
			started := s.now()
			iv.StartedAt = &started
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Interview started"})
}

func (s *Server) listInterviews(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := make([]domain.Interview, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, *s.interviews[id])
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "interviews": list})
}

func (s *Server) lookup(id string) (domain.Interview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.interviews[id]
	if !ok {
		return domain.Interview{}, false
	}
	return *iv, true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"success": false, "detail": detail})
}
