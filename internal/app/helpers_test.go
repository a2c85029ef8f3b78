package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/infra/memory"
)

// manualTicker hands the test control over every countdown tick.
type manualTicker struct {
	ch       chan time.Time
	stopOnce sync.Once
	stopped  chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) factory(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() { m.stopOnce.Do(func() { close(m.stopped) }) }
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown did not accept tick")
	}
}

func (m *manualTicker) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case <-m.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown was not stopped")
	}
}

// identityShuffler keeps bank order so tests know the correct answers.
type identityShuffler struct{}

func (identityShuffler) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type countingPublisher struct {
	mu     sync.Mutex
	events []domain.CompletionEvent
}

func (p *countingPublisher) Publish(_ context.Context, event domain.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type testEnv struct {
	service   *app.QuizService
	directory *app.Directory
	users     *memory.UserRepository
	ticker    *manualTicker
	events    *countingPublisher
}

func newTestEnv(t *testing.T, duration time.Duration) *testEnv {
	t.Helper()
	users := memory.NewUserRepository()
	ticker := newManualTicker()
	events := &countingPublisher{}
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"default": fiveQuestionQuiz(),
	}), time.Minute)

	service := app.NewQuizService(memory.NewSessionStore(), quizzes, users, memory.NewResultStore(time.Minute), app.QuizOptions{
		Duration: duration,
		Shuffler: identityShuffler{},
		Ticker:   ticker.factory,
		Events:   events,
	})
	t.Cleanup(service.Close)

	directory := app.NewDirectory(users, auth.PlainScheme{})
	if err := directory.Register(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &testEnv{service: service, directory: directory, users: users, ticker: ticker, events: events}
}

func fiveQuestionQuiz() domain.Quiz {
	q := func(id, answer string) domain.Question {
		return domain.Question{
			ID:      id,
			Prompt:  "Question " + id,
			Options: []string{"a", "b", "c", "d"},
			Answer:  answer,
		}
	}
	return domain.Quiz{
		ID:        "default",
		Questions: []domain.Question{q("q1", "a"), q("q2", "b"), q("q3", "c"), q("q4", "d"), q("q5", "a")},
	}
}

func answer(t *testing.T, env *testEnv, option string) (app.Outcome, bool) {
	t.Helper()
	ctx := context.Background()
	if err := env.service.Select(ctx, "alice", option); err != nil {
		t.Fatalf("select %s: %v", option, err)
	}
	outcome, finished, err := env.service.Next(ctx, "alice")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	return outcome, finished
}

func completed(t *testing.T, env *testEnv) bool {
	t.Helper()
	user, err := env.users.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return user.HasCompletedQuiz
}
