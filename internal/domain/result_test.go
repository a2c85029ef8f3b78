package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultFigures(t *testing.T) {
	// 5 questions, correct answers on questions 1, 2 and 4.
	r := Result{Username: "alice", Score: 3, TotalQuestions: 5, Available: true}

	require.Equal(t, "3", r.DisplayScore())
	require.Equal(t, "5", r.DisplayTotal())
	require.Equal(t, "2", r.Incorrect())
	require.Equal(t, "60.00", r.Percentage())
}

func TestResultPercentageRounding(t *testing.T) {
	cases := []struct {
		score, total int
		want         string
	}{
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{0, 4, "0.00"},
		{4, 4, "100.00"},
		{0, 0, "0.00"},
	}
	for _, c := range cases {
		r := Result{Score: c.score, TotalQuestions: c.total, Available: true}
		require.Equal(t, c.want, r.Percentage(), "score=%d total=%d", c.score, c.total)
	}
}

func TestUnavailableResult(t *testing.T) {
	r := UnavailableResult("alice", 5)

	require.False(t, r.Available)
	require.Equal(t, NotApplicable, r.DisplayScore())
	require.Equal(t, NotApplicable, r.Incorrect())
	require.Equal(t, NotApplicable, r.Percentage())
	require.Equal(t, "5", r.DisplayTotal())
}

func TestQuizValidate(t *testing.T) {
	valid := Quiz{ID: "q", Questions: []Question{{Prompt: "p", Options: []string{"a", "b"}, Answer: "a"}}}
	require.NoError(t, valid.Validate())

	require.ErrorIs(t, Quiz{ID: "empty"}.Validate(), ErrInvalidQuiz)

	dup := Quiz{ID: "q", Questions: []Question{{Prompt: "p", Options: []string{"a", "a"}, Answer: "a"}}}
	require.ErrorIs(t, dup.Validate(), ErrInvalidQuiz)

	single := Quiz{ID: "q", Questions: []Question{{Prompt: "p", Options: []string{"a"}, Answer: "a"}}}
	require.ErrorIs(t, single.Validate(), ErrInvalidQuiz)
}
