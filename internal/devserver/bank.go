package devserver

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jwulff/codesage/internal/domain"
)

//go:embed questions.json
var questionsJSON []byte

// Bank is the fixed set of practice questions interviews draw from.
type Bank struct {
	questions []domain.Question
}

// LoadBank parses the embedded question set.
func LoadBank() (*Bank, error) {
	var qs []domain.Question
	if err := json.Unmarshal(questionsJSON, &qs); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return &Bank{questions: qs}, nil
}

// Pick returns up to n questions of difficulty d, filtered by category unless it is
// "all" or empty, in the order shuffle leaves them. An unknown difficulty draws from
// medium.
func (b *Bank) Pick(d domain.Difficulty, category string, n int, shuffle func(n int, swap func(i, j int))) []domain.Question {
	if _, ok := domain.ParseDifficulty(string(d)); !ok {
		d = domain.DifficultyMedium
	}

	var picked []domain.Question
	for _, q := range b.questions {
		if q.Difficulty != d {
			continue
		}
		if category != "" && category != "all" && q.Category != category {
			continue
		}
		picked = append(picked, q)
	}

	if shuffle != nil {
		shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	}
	if n > 0 && len(picked) > n {
		picked = picked[:n]
	}
	return picked
}

// Find looks a question up by id.
func (b *Bank) Find(id string) (domain.Question, bool) {
	for _, q := range b.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}
