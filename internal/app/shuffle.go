package app

import (
	"math/rand"
	"sync"
	"time"

	"oneshot-quiz/internal/domain"
)

// Shuffler returns a uniform random permutation of n elements.
type Shuffler interface {
	Perm(n int) []int
}

type randShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandShuffler seeds a Fisher-Yates shuffler from the clock.
func NewRandShuffler() Shuffler {
	return &randShuffler{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *randShuffler) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// shuffleQuiz copies the questions in shuffled order, each with shuffled options.
// The source quiz is never modified.
func shuffleQuiz(quiz domain.Quiz, shuffler Shuffler) []domain.Question {
	order := shuffler.Perm(len(quiz.Questions))
	out := make([]domain.Question, len(order))
	for i, idx := range order {
		src := quiz.Questions[idx]
		optOrder := shuffler.Perm(len(src.Options))
		options := make([]string, len(optOrder))
		for k, o := range optOrder {
			options[k] = src.Options[o]
		}
		out[i] = domain.Question{
			ID:      src.ID,
			Prompt:  src.Prompt,
			Options: options,
			Answer:  src.Answer,
		}
	}
	return out
}
