package domain

import (
	"fmt"
	"time"
)

// User is a record of the user directory.
type User struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	HasCompletedQuiz bool   `json:"hasCompletedQuiz"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer" yaml:"answer"`
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks that every question has at least two distinct options and
// that its answer is one of them.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrInvalidQuiz, q.ID)
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuiz, i+1)
		}
		seen := make(map[string]struct{}, len(question.Options))
		for _, opt := range question.Options {
			if opt == "" {
				return fmt.Errorf("%w: question %d has an empty option", ErrInvalidQuiz, i+1)
			}
			if _, dup := seen[opt]; dup {
				return fmt.Errorf("%w: question %d repeats option %q", ErrInvalidQuiz, i+1, opt)
			}
			seen[opt] = struct{}{}
		}
		if _, ok := seen[question.Answer]; !ok {
			return fmt.Errorf("%w: question %d answer is not an option", ErrInvalidQuiz, i+1)
		}
	}
	return nil
}

// FinishReason records what ended a quiz session.
type FinishReason string

const (
	ReasonCompleted FinishReason = "completed"
	ReasonTimeout   FinishReason = "timeout"
	ReasonQuit      FinishReason = "quit"
)

// CompletionEvent is published once per finalized session.
type CompletionEvent struct {
	Username       string       `json:"username"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"totalQuestions"`
	Reason         FinishReason `json:"reason"`
	FinishedAt     time.Time    `json:"finishedAt"`
}
