package app

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"oneshot-quiz/internal/domain"

	"github.com/oklog/ulid/v2"
)

// SessionRepository abstracts where active quiz sessions live (in-memory, Redis-marked, etc).
// Sessions are keyed by username; a user has at most one active session.
type SessionRepository interface {
	GetOrCreate(username string, create func() *Session) (*Session, bool)
	Get(username string) (*Session, bool)
	Remove(username, sessionID string)
	Drain() []*Session
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore carries results to the results view through one-time tokens.
type ResultStore interface {
	Put(ctx context.Context, result domain.Result) (string, error)
	Take(ctx context.Context, token string) (domain.Result, error)
}

// EventPublisher announces finalized sessions to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CompletionEvent) error
}

// QuizOptions tunes a QuizService. Zero values fall back to defaults.
type QuizOptions struct {
	QuizID   string
	Duration time.Duration
	Shuffler Shuffler
	Ticker   TickerFactory
	Events   EventPublisher
	Logger   *slog.Logger
	Clock    func() time.Time
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	users    UserRepository
	results  ResultStore
	events   EventPublisher
	quizID   string
	duration time.Duration
	shuffler Shuffler
	ticker   TickerFactory
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	finished map[string]string // username -> redirect of the last finalized session
}

// Entry is the outcome of entering the quiz view. Session is nil when the user
// has already completed the quiz; Redirect then points at the sentinel result.
type Entry struct {
	Session  *Session
	Redirect string
	Resumed  bool
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, users UserRepository, results ResultStore, opts QuizOptions) *QuizService {
	if opts.QuizID == "" {
		opts.QuizID = "default"
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Shuffler == nil {
		opts.Shuffler = NewRandShuffler()
	}
	if opts.Ticker == nil {
		opts.Ticker = SystemTicker
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &QuizService{
		sessions: store,
		quizzes:  quizzes,
		users:    users,
		results:  results,
		events:   opts.Events,
		quizID:   opts.QuizID,
		duration: opts.Duration,
		shuffler: opts.Shuffler,
		ticker:   opts.Ticker,
		logger:   opts.Logger,
		now:      opts.Clock,
		finished: make(map[string]string),
	}
}

// Start enters the quiz for username. Users who already completed the quiz get
// no session, only a redirect to a result without a score.
func (s *QuizService) Start(ctx context.Context, username string) (Entry, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return Entry{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, s.quizID)
	if err != nil {
		return Entry{}, err
	}

	if user.HasCompletedQuiz {
		redirect, err := s.handoff(ctx, domain.UnavailableResult(username, len(quiz.Questions)))
		if err != nil {
			return Entry{}, err
		}
		return Entry{Redirect: redirect}, nil
	}

	id := ulid.Make().String()
	// Started before it is registered so lookups never see a Loading session.
	session, existed := s.sessions.GetOrCreate(username, func() *Session {
		created := NewSession(id, username, quiz, SessionOptions{
			Duration: s.duration,
			Shuffler: s.shuffler,
			Ticker:   s.ticker,
			Finalize: s.finalizer(username, id),
		})
		created.Start()
		return created
	})
	if !existed {
		s.logger.InfoContext(ctx, "quiz session started", "user", username, "session", session.ID())
	}
	return Entry{Session: session, Resumed: existed}, nil
}

// Current returns the active session of username.
func (s *QuizService) Current(username string) (*Session, bool) {
	return s.sessions.Get(username)
}

// Select records an unconfirmed answer for the current question.
func (s *QuizService) Select(_ context.Context, username, option string) error {
	session, ok := s.sessions.Get(username)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Select(option)
}

// Next confirms the current selection; finished reports that the session ended.
func (s *QuizService) Next(ctx context.Context, username string) (Outcome, bool, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return Outcome{}, false, domain.ErrSessionNotFound
	}
	return session.Next(ctx)
}

// Quit ends the attempt early; it still counts as completed.
func (s *QuizService) Quit(ctx context.Context, username string) (Outcome, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return Outcome{}, domain.ErrSessionNotFound
	}
	return session.Quit(ctx)
}

// Abandon discards the active session without marking the user completed.
func (s *QuizService) Abandon(username string) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return
	}
	if session.Abandon() {
		s.logger.Info("quiz session abandoned", "user", username, "session", session.ID())
	}
	s.sessions.Remove(username, session.ID())
}

// TakeResult redeems a handoff token issued to username.
func (s *QuizService) TakeResult(ctx context.Context, username, token string) (domain.Result, error) {
	if token == "" {
		return domain.Result{}, domain.ErrResultNotFound
	}
	result, err := s.results.Take(ctx, token)
	if err != nil {
		return domain.Result{}, err
	}
	if result.Username != username {
		return domain.Result{}, domain.ErrResultNotFound
	}
	s.mu.Lock()
	delete(s.finished, username)
	s.mu.Unlock()
	return result, nil
}

// FinishedRedirect returns where the user's session sent them after it ended
// on its own, e.g. by timeout while a form was being submitted. A session that
// is still finalizing is waited for. It reports false for an active or
// abandoned session, or when the result was already taken.
func (s *QuizService) FinishedRedirect(ctx context.Context, username string) (string, bool) {
	if session, ok := s.sessions.Get(username); ok {
		if session.Snapshot().State == StateActive {
			return "", false
		}
		select {
		case <-session.Done():
		case <-ctx.Done():
			return "", false
		}
		outcome, _ := session.Outcome()
		if outcome.Abandoned {
			return "", false
		}
		return outcome.Redirect, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	redirect, ok := s.finished[username]
	delete(s.finished, username)
	return redirect, ok
}

// Close abandons every active session, stopping their countdowns.
func (s *QuizService) Close() {
	for _, session := range s.sessions.Drain() {
		session.Abandon()
	}
}

func (s *QuizService) finalizer(username, sessionID string) FinalizeFunc {
	return func(ctx context.Context, result domain.Result, reason domain.FinishReason) string {
		log := s.logger.With("user", username, "session", sessionID, "reason", string(reason))
		defer s.sessions.Remove(username, sessionID)

		if err := s.users.MarkCompleted(ctx, username); err != nil {
			log.ErrorContext(ctx, "mark quiz completed", "err", err)
		}

		redirect := "/"
		if reason != domain.ReasonQuit {
			r, err := s.handoff(ctx, result)
			if err != nil {
				log.ErrorContext(ctx, "store quiz result", "err", err)
				r = "/results"
			}
			redirect = r
		}

		if s.events != nil {
			event := domain.CompletionEvent{
				Username:       username,
				Score:          result.Score,
				TotalQuestions: result.TotalQuestions,
				Reason:         reason,
				FinishedAt:     s.now(),
			}
			if err := s.events.Publish(ctx, event); err != nil {
				log.WarnContext(ctx, "publish completion event", "err", err)
			}
		}

		s.mu.Lock()
		s.finished[username] = redirect
		s.mu.Unlock()

		log.InfoContext(ctx, "quiz session finalized", "score", result.Score, "total", result.TotalQuestions)
		return redirect
	}
}

func (s *QuizService) handoff(ctx context.Context, result domain.Result) (string, error) {
	token, err := s.results.Put(ctx, result)
	if err != nil {
		return "", err
	}
	return "/results?" + url.Values{"r": {token}}.Encode(), nil
}
