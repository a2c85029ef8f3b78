package app

import (
	"context"
	"sync"
	"time"

	"oneshot-quiz/internal/domain"
)

// SessionState is the lifecycle position of a quiz session.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateActive     SessionState = "active"
	StateFinalizing SessionState = "finalizing"
	StateTerminated SessionState = "terminated"
)

// DefaultDuration is the countdown of a quiz attempt.
const DefaultDuration = 120 * time.Second

// finalizeTimeout bounds the side effects of a timer-driven finalization.
const finalizeTimeout = 5 * time.Second

// TickerFactory starts a ticker and returns its channel and stop function.
type TickerFactory func(d time.Duration) (<-chan time.Time, func())

// SystemTicker is the TickerFactory backed by time.NewTicker.
func SystemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// FinalizeFunc performs the side effects of ending a session and returns where
// the user should be sent next.
type FinalizeFunc func(ctx context.Context, result domain.Result, reason domain.FinishReason) string

// Outcome describes a finalized (or abandoned) session.
type Outcome struct {
	Result    domain.Result
	Reason    domain.FinishReason
	Redirect  string
	Abandoned bool
}

// SessionView is a read-only snapshot of a session, safe to render or send to clients.
type SessionView struct {
	SessionID string       `json:"sessionId"`
	State     SessionState `json:"state"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Prompt    string       `json:"prompt"`
	Options   []string     `json:"options"`
	Selected  string       `json:"selected"`
	Remaining int          `json:"remaining"`
	Redirect  string       `json:"redirect,omitempty"`
}

// Last reports whether the view shows the final question.
func (v SessionView) Last() bool {
	return v.Total > 0 && v.Index == v.Total-1
}

// SessionOptions configures a Session. Zero values fall back to defaults.
type SessionOptions struct {
	Duration time.Duration
	Shuffler Shuffler
	Ticker   TickerFactory
	Finalize FinalizeFunc
}

// Session is a single timed attempt at a quiz by one user.
type Session struct {
	id       string
	username string
	quiz     domain.Quiz
	duration time.Duration
	shuffler Shuffler
	ticker   TickerFactory
	finalize FinalizeFunc

	mu          sync.Mutex
	state       SessionState
	questions   []domain.Question
	index       int
	selected    string
	hasSelected bool
	score       int
	remaining   int
	outcome     Outcome
	subscribers map[chan SessionView]struct{}

	stopOnce   sync.Once
	stop       chan struct{}
	terminated chan struct{}
}

// NewSession builds a session in the Loading state. Call Start to shuffle and
// start the countdown.
func NewSession(id, username string, quiz domain.Quiz, opts SessionOptions) *Session {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Shuffler == nil {
		opts.Shuffler = NewRandShuffler()
	}
	if opts.Ticker == nil {
		opts.Ticker = SystemTicker
	}
	return &Session{
		id:          id,
		username:    username,
		quiz:        quiz,
		duration:    opts.Duration,
		shuffler:    opts.Shuffler,
		ticker:      opts.Ticker,
		finalize:    opts.Finalize,
		state:       StateLoading,
		subscribers: make(map[chan SessionView]struct{}),
		stop:        make(chan struct{}),
		terminated:  make(chan struct{}),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Username() string { return s.username }

// Start shuffles the questions and options, starts the countdown and moves
// the session to Active. Starting twice is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return
	}
	s.questions = shuffleQuiz(s.quiz, s.shuffler)
	s.remaining = int(s.duration / time.Second)
	if s.remaining < 1 {
		s.remaining = 1
	}
	ticks, stopTicker := s.ticker(time.Second)
	s.state = StateActive
	s.broadcastLocked()
	s.mu.Unlock()

	go s.countdown(ticks, stopTicker)
}

// Select records the option for the current question, replacing any previous
// unconfirmed selection.
func (s *Session) Select(option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return domain.ErrSessionFinished
	}
	if !contains(s.questions[s.index].Options, option) {
		return domain.ErrOptionNotFound
	}
	s.selected = option
	s.hasSelected = true
	s.broadcastLocked()
	return nil
}

// Next confirms the selection, scores it and advances. It reports true once
// the last question has been confirmed and the session is finalized.
func (s *Session) Next(ctx context.Context) (Outcome, bool, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return Outcome{}, false, domain.ErrSessionFinished
	}
	if !s.hasSelected {
		s.mu.Unlock()
		return Outcome{}, false, domain.ErrNoSelection
	}
	if s.selected == s.questions[s.index].Answer {
		s.score++
	}
	s.selected = ""
	s.hasSelected = false
	s.index++
	if s.index < len(s.questions) {
		s.broadcastLocked()
		s.mu.Unlock()
		return Outcome{}, false, nil
	}
	result := s.beginFinalizeLocked()
	s.mu.Unlock()
	return s.complete(ctx, result, domain.ReasonCompleted), true, nil
}

// Quit finalizes the session early. The attempt still counts as completed.
func (s *Session) Quit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return Outcome{}, domain.ErrSessionFinished
	}
	result := s.beginFinalizeLocked()
	s.mu.Unlock()
	return s.complete(ctx, result, domain.ReasonQuit), nil
}

// Abandon tears the session down without finalizing it: the countdown stops,
// the completion flag is left alone and no result is produced.
func (s *Session) Abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFinalizing || s.state == StateTerminated {
		return false
	}
	s.stopCountdown()
	s.state = StateTerminated
	s.outcome = Outcome{Abandoned: true, Redirect: "/"}
	s.broadcastLocked()
	close(s.terminated)
	return true
}

// Outcome returns the final outcome once the session is terminated.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state == StateTerminated
}

// Done is closed when the session reaches Terminated.
func (s *Session) Done() <-chan struct{} {
	return s.terminated
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a view on every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan SessionView, func()) {
	ch := make(chan SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// ch is empty, so the send cannot block; later broadcasts queue behind it.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) countdown(ticks <-chan time.Time, stopTicker func()) {
	defer stopTicker()
	for {
		select {
		case <-s.stop:
			return
		case <-ticks:
			if s.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown and finalizes on zero. It reports whether the
// countdown should stop.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return true
	}
	s.remaining--
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}
	s.remaining = 0
	result := s.beginFinalizeLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	s.complete(ctx, result, domain.ReasonTimeout)
	return true
}

// beginFinalizeLocked moves an Active session to Finalizing and stops the
// countdown. Caller holds s.mu and has checked the state.
func (s *Session) beginFinalizeLocked() domain.Result {
	s.state = StateFinalizing
	s.stopCountdown()
	s.broadcastLocked()
	return domain.Result{
		Username:       s.username,
		Score:          s.score,
		TotalQuestions: len(s.questions),
		Available:      true,
	}
}

// complete runs the finalizer outside the lock and terminates the session.
func (s *Session) complete(ctx context.Context, result domain.Result, reason domain.FinishReason) Outcome {
	redirect := "/"
	if s.finalize != nil {
		redirect = s.finalize(ctx, result, reason)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = Outcome{Result: result, Reason: reason, Redirect: redirect}
	s.state = StateTerminated
	s.broadcastLocked()
	close(s.terminated)
	return s.outcome
}

func (s *Session) stopCountdown() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) broadcastLocked() {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// drop the oldest queued view so slow readers never block the session
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) snapshotLocked() SessionView {
	view := SessionView{
		SessionID: s.id,
		State:     s.state,
		Index:     s.index,
		Total:     len(s.questions),
		Remaining: s.remaining,
		Redirect:  s.outcome.Redirect,
	}
	if s.state == StateActive && s.index < len(s.questions) {
		q := s.questions[s.index]
		view.Prompt = q.Prompt
		view.Options = append([]string(nil), q.Options...)
		view.Selected = s.selected
	}
	return view
}

func contains(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
