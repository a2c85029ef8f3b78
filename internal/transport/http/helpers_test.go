package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/infra/memory"
)

type orderedShuffler struct{}

func (orderedShuffler) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type harness struct {
	server  *httptest.Server
	client  *http.Client
	jar     *cookiejar.Jar
	quizzes *app.QuizService
	users   *memory.UserRepository
	ticks   chan time.Time
}

func newHarness(t *testing.T, duration time.Duration, limit RateLimitConfig) *harness {
	t.Helper()
	users := memory.NewUserRepository()
	ticks := make(chan time.Time)
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"default": sampleQuiz(),
	}), time.Minute)
	quizzes := app.NewQuizService(memory.NewSessionStore(), quizRepo, users, memory.NewResultStore(time.Minute), app.QuizOptions{
		Duration: duration,
		Shuffler: orderedShuffler{},
		Ticker: func(time.Duration) (<-chan time.Time, func()) {
			return ticks, func() {}
		},
	})
	t.Cleanup(quizzes.Close)

	srv, err := NewServer(app.NewDirectory(users, auth.PlainScheme{}), quizzes, auth.NewTokens("test-secret", time.Hour), Options{
		AuthLimit: limit,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	server := httptest.NewServer(srv.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{server: server, client: client, jar: jar, quizzes: quizzes, users: users, ticks: ticks}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

// login registers username with password "secret" and logs in.
func (h *harness) login(t *testing.T, username string) {
	t.Helper()
	creds := url.Values{"username": {username}, "password": {"secret"}}
	if resp, _ := h.post(t, "/register", creds); resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp, _ := h.post(t, "/login", creds)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("login status = %d location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	select {
	case h.ticks <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown did not accept tick")
	}
}

func (h *harness) completed(t *testing.T, username string) bool {
	t.Helper()
	user, err := h.users.Get(context.Background(), username)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return user.HasCompletedQuiz
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func expectRedirect(t *testing.T, resp *http.Response, prefix string) string {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, prefix) {
		t.Fatalf("location = %q, want prefix %q", loc, prefix)
	}
	return loc
}

// sampleQuiz has answers a, b, c, d, a in bank order.
func sampleQuiz() domain.Quiz {
	q := func(id, answer string) domain.Question {
		return domain.Question{
			ID:      id,
			Prompt:  "Prompt " + id,
			Options: []string{"a", "b", "c", "d"},
			Answer:  answer,
		}
	}
	return domain.Quiz{
		ID:        "default",
		Title:     "Sample",
		Questions: []domain.Question{q("q1", "a"), q("q2", "b"), q("q3", "c"), q("q4", "d"), q("q5", "a")},
	}
}
