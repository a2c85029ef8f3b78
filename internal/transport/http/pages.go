package http

import (
	"errors"
	"net/http"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/logging"
)

const (
	msgRegistered       = "Registration successful! Please log in."
	msgAlreadyCompleted = "You have already completed this quiz and cannot retake it."
	msgQuit             = "Quiz ended. It counts as your attempt."
	msgSelectAnswer     = "Please select an answer."
	msgUsernameTaken    = "Username already exists"
	msgMissingFields    = "Username and password are required"
	msgBadCredentials   = "Invalid username or password"
)

// home greets the visitor. Leaving the quiz view for home tears the active
// session down without counting it as an attempt.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if username, ok := auth.UserFromContext(r.Context()); ok {
		s.quizzes.Abandon(username)
	}
	s.render(w, r, http.StatusOK, "home", pageData{Title: "Home"})
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", pageData{Title: "Register"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	err := s.directory.Register(r.Context(), username, r.PostFormValue("password"))
	if err == nil {
		logging.FromContext(r.Context()).Info("user registered", "user", username)
		s.setFlash(w, "success", msgRegistered)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, message = http.StatusBadRequest, msgMissingFields
	case errors.Is(err, domain.ErrUsernameTaken):
		status, message = http.StatusConflict, msgUsernameTaken
	default:
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, status, "register", pageData{
		Title:    "Register",
		Error:    message,
		Username: username,
		Flash:    &flash{Kind: "error", Message: message},
	})
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Login"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	user, err := s.directory.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, domain.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "login", pageData{
			Title:    "Login",
			Error:    msgBadCredentials,
			Username: username,
			Flash:    &flash{Kind: "error", Message: msgBadCredentials},
		})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSession(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if username, ok := auth.UserFromContext(r.Context()); ok {
		s.quizzes.Abandon(username)
	}
	s.clearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// quiz enters (or resumes) the attempt and renders the current question.
func (s *Server) quiz(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UserFromContext(r.Context())
	entry, err := s.quizzes.Start(r.Context(), username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.clearSession(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if entry.Session == nil {
		s.setFlash(w, "error", msgAlreadyCompleted)
		http.Redirect(w, r, entry.Redirect, http.StatusSeeOther)
		return
	}

	view := entry.Session.Snapshot()
	if view.State != app.StateActive {
		// finalized between lookup and render
		target, _ := s.quizzes.FinishedRedirect(r.Context(), username)
		http.Redirect(w, r, redirectOf(app.Outcome{Redirect: target}), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "quiz", pageData{Title: "Quiz", User: username, Quiz: view})
}

// quizNext selects the submitted option and confirms it.
func (s *Server) quizNext(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UserFromContext(r.Context())
	option := r.PostFormValue("option")
	if option == "" {
		s.setFlash(w, "error", msgSelectAnswer)
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}

	err := s.quizzes.Select(r.Context(), username, option)
	if err == nil {
		outcome, finished, nextErr := s.quizzes.Next(r.Context(), username)
		switch {
		case nextErr == nil && finished:
			http.Redirect(w, r, redirectOf(outcome), http.StatusSeeOther)
			return
		case nextErr == nil:
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		}
		err = nextErr
	}

	switch {
	case errors.Is(err, domain.ErrOptionNotFound), errors.Is(err, domain.ErrNoSelection):
		s.setFlash(w, "error", msgSelectAnswer)
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionFinished):
		// the countdown may have finished the attempt first
		if target, ok := s.quizzes.FinishedRedirect(r.Context(), username); ok {
			http.Redirect(w, r, redirectOf(app.Outcome{Redirect: target}), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) quizQuit(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UserFromContext(r.Context())
	outcome, err := s.quizzes.Quit(r.Context(), username)
	switch {
	case err == nil:
		s.setFlash(w, "info", msgQuit)
		http.Redirect(w, r, redirectOf(outcome), http.StatusSeeOther)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionFinished):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		s.serverError(w, r, err)
	}
}

// results redeems the handoff token; anything else shows the placeholder.
func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UserFromContext(r.Context())
	result, err := s.quizzes.TakeResult(r.Context(), username, r.URL.Query().Get("r"))
	if errors.Is(err, domain.ErrResultNotFound) {
		s.render(w, r, http.StatusOK, "noresults", pageData{Title: "Results"})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "results", pageData{Title: "Results", Result: result})
}

func redirectOf(o app.Outcome) string {
	if o.Redirect == "" {
		return "/"
	}
	return o.Redirect
}
