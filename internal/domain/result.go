package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// NotApplicable is rendered in place of any figure of an unavailable result.
const NotApplicable = "N/A"

// Result is handed from a finished session to the results view.
// Available is false for users who had already completed the quiz.
type Result struct {
	Username       string `json:"username"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Available      bool   `json:"available"`
}

// UnavailableResult is the sentinel handed to users re-entering a completed quiz.
func UnavailableResult(username string, totalQuestions int) Result {
	return Result{Username: username, TotalQuestions: totalQuestions}
}

// DisplayScore returns the number of correct answers or N/A.
func (r Result) DisplayScore() string {
	if !r.Available {
		return NotApplicable
	}
	return strconv.Itoa(r.Score)
}

// DisplayTotal returns the question count. It stays visible for the sentinel.
func (r Result) DisplayTotal() string {
	return strconv.Itoa(r.TotalQuestions)
}

// Incorrect returns total minus score or N/A.
func (r Result) Incorrect() string {
	if !r.Available {
		return NotApplicable
	}
	return strconv.Itoa(r.TotalQuestions - r.Score)
}

// Percentage returns 100*score/total rounded to two decimals, e.g. "60.00".
func (r Result) Percentage() string {
	if !r.Available {
		return NotApplicable
	}
	if r.TotalQuestions <= 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(int64(r.Score)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(r.TotalQuestions)), 2).
		StringFixed(2)
}
