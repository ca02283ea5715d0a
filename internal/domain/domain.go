// Package domain holds the interview records shared by the session machine, the API
// client, the local archive, and the dev service.
package domain

import (
	"encoding/json"
	"time"
)

// Status is an interview's lifecycle position.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Difficulty grades a question or an interview.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a user-supplied difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// Interview is one candidate's attempt at an ordered set of questions.
type Interview struct {
	ID              string     `json:"id"`
	CandidateName   string     `json:"candidate_name"`
	Difficulty      Difficulty `json:"difficulty"`
	Category        string     `json:"category"`
	Questions       []Question `json:"questions"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CurrentQuestion int        `json:"current_question"`
}

// Question is immutable once loaded.
type Question struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Difficulty         Difficulty `json:"difficulty"`
	Category           string     `json:"category"`
	TestCases          []TestCase `json:"test_cases"`
	Constraints        string     `json:"constraints"`
	Hints              []string   `json:"hints"`
	ExpectedComplexity string     `json:"expected_complexity,omitempty"`
}

// TestCase pairs an input with its expected output. Both are free-form JSON.
type TestCase struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
}

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Entries are never mutated after insertion.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
