// Package quizbank reads question banks written in YAML.
package quizbank

import (
	_ "embed"
	"fmt"
	"os"

	"oneshot-quiz/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultBank []byte

// Default returns the bank bundled with the binary.
func Default() (domain.Quiz, error) {
	return Parse(defaultBank)
}

// Load reads a bank from path.
func Load(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := Parse(data)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: %w", path, err)
	}
	return quiz, nil
}

// Parse decodes and validates a YAML bank. Questions without an id get one
// from their position.
func Parse(data []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
	}
	if quiz.ID == "" {
		quiz.ID = "default"
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
