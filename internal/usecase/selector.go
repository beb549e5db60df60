package usecase

import (
	"math/rand/v2"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Rand is the uniform source the selector shuffles with. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// QuestionSelector bounds the requested count to the inventory and picks a
// uniformly random, duplicate-free ordering.
type QuestionSelector struct {
	Rand         Rand
	DefaultCount int
}

// NewQuestionSelector uses the process-wide random source when r is nil.
func NewQuestionSelector(r Rand, defaultCount int) QuestionSelector {
	if r == nil {
		r = globalRand{}
	}
	if defaultCount <= 0 {
		defaultCount = 5
	}
	return QuestionSelector{Rand: r, DefaultCount: defaultCount}
}

// EffectiveCount clamps requested (or the default when nil) to [1, available].
func (s QuestionSelector) EffectiveCount(requested *int, available int) int {
	n := s.DefaultCount
	if n <= 0 {
		n = 5
	}
	if requested != nil {
		n = *requested
	}
	if n > available {
		n = available
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Select returns count questions from inventory in shuffled order. The
// inventory slice is not modified.
func (s QuestionSelector) Select(subjectID string, count int, inventory []domain.Question) ([]domain.Question, error) {
	if len(inventory) == 0 {
		return nil, &domain.NoQuestionsAvailableError{SubjectID: subjectID}
	}
	if count < 1 || count > len(inventory) {
		count = s.EffectiveCount(&count, len(inventory))
	}
	r := s.Rand
	if r == nil {
		r = globalRand{}
	}
	pool := make([]domain.Question, len(inventory))
	copy(pool, inventory)
	// Fisher-Yates, stopping once the first count slots are fixed.
	for i := 0; i < count; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count], nil
}

// QuestionIDs lists the ids of qs in order.
func QuestionIDs(qs []domain.Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
