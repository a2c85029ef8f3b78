package domain

import "errors"

var (
	// ErrSessionNotFound is returned when the user has no active quiz session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished is returned for actions on a session that already ended.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates malformed quiz content.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrOptionNotFound indicates a selected option is not offered by the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoSelection is returned when confirming a question without selecting an option.
	ErrNoSelection = errors.New("no option selected")

	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("username and password are required")

	// ErrResultNotFound is returned when a result handoff token is unknown, expired or used.
	ErrResultNotFound = errors.New("result not found")
	ErrInvalidToken   = errors.New("invalid session token")
)
