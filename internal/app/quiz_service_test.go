package app_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"oneshot-quiz/internal/domain"
)

func TestCompletingQuizScoresAndHandsOffResult(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)

	entry, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if entry.Session == nil || entry.Resumed {
		t.Fatalf("expected a fresh session, got %+v", entry)
	}

	// Correct on questions 1, 2 and 4.
	for _, opt := range []string{"a", "b", "a", "d"} {
		if _, finished := answer(t, env, opt); finished {
			t.Fatalf("finished too early")
		}
	}
	outcome, finished := answer(t, env, "b")
	if !finished {
		t.Fatalf("expected last answer to finish the quiz")
	}
	if outcome.Reason != domain.ReasonCompleted || outcome.Result.Score != 3 || outcome.Result.TotalQuestions != 5 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !completed(t, env) {
		t.Fatalf("expected completion flag set")
	}
	env.ticker.waitStopped(t)

	result, err := env.service.TakeResult(ctx, "alice", tokenFrom(t, outcome.Redirect))
	if err != nil {
		t.Fatalf("take result: %v", err)
	}
	if result.Incorrect() != "2" || result.Percentage() != "60.00" {
		t.Fatalf("unexpected figures incorrect=%s pct=%s", result.Incorrect(), result.Percentage())
	}
	if env.events.count() != 1 {
		t.Fatalf("expected one completion event, got %d", env.events.count())
	}
}

func TestCompletedUserCannotRetake(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)
	if err := env.directory.MarkCompleted(ctx, "alice"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	entry, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if entry.Session != nil {
		t.Fatalf("completed user must not get a session")
	}
	if _, ok := env.service.Current("alice"); ok {
		t.Fatalf("no session state may be created for a completed user")
	}

	result, err := env.service.TakeResult(ctx, "alice", tokenFrom(t, entry.Redirect))
	if err != nil {
		t.Fatalf("take result: %v", err)
	}
	if result.Available || result.DisplayScore() != domain.NotApplicable {
		t.Fatalf("expected N/A result, got %+v", result)
	}
	if result.TotalQuestions != 5 {
		t.Fatalf("expected total questions carried, got %d", result.TotalQuestions)
	}
}

func TestTimeoutFinalizesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2*time.Second)

	entry, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answer(t, env, "a") // correct

	env.ticker.tick(t)
	env.ticker.tick(t)

	select {
	case <-entry.Session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not finalize on timeout")
	}
	outcome, ok := entry.Session.Outcome()
	if !ok || outcome.Reason != domain.ReasonTimeout || outcome.Result.Score != 1 {
		t.Fatalf("unexpected timeout outcome %+v", outcome)
	}
	if !strings.HasPrefix(outcome.Redirect, "/results?") {
		t.Fatalf("timeout should route to results, got %q", outcome.Redirect)
	}
	if !completed(t, env) {
		t.Fatalf("expected completion flag after timeout")
	}
	if env.events.count() != 1 {
		t.Fatalf("expected exactly one finalization, got %d", env.events.count())
	}

	if _, _, err := env.service.Next(ctx, "alice"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected finished session to be gone, got %v", err)
	}
}

func TestQuitMarksCompletedAndRoutesHome(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)

	if _, err := env.service.Start(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	answer(t, env, "a")
	answer(t, env, "b")

	outcome, err := env.service.Quit(ctx, "alice")
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if outcome.Redirect != "/" || outcome.Reason != domain.ReasonQuit {
		t.Fatalf("quit should route home, got %+v", outcome)
	}
	if !completed(t, env) {
		t.Fatalf("quitting must still mark the quiz completed")
	}
	env.ticker.waitStopped(t)

	entry, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if entry.Session != nil {
		t.Fatalf("quitter must not get a second attempt")
	}
}

func TestStartResumesActiveSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)

	first, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answer(t, env, "a")

	second, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if !second.Resumed || second.Session != first.Session {
		t.Fatalf("expected the active session to be resumed")
	}
	if view := second.Session.Snapshot(); view.Index != 1 {
		t.Fatalf("expected progress kept, index=%d", view.Index)
	}
}

func TestAbandonLeavesUserEligible(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)

	first, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	env.service.Abandon("alice")
	env.ticker.waitStopped(t)

	if completed(t, env) {
		t.Fatalf("abandon must not set the completion flag")
	}
	if outcome, ok := first.Session.Outcome(); !ok || !outcome.Abandoned {
		t.Fatalf("expected abandoned outcome, got %+v", outcome)
	}

	second, err := env.service.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second.Session == nil || second.Session == first.Session {
		t.Fatalf("expected a new session after abandon")
	}
}

func TestSessionInputValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)

	if _, _, err := env.service.Next(ctx, "alice"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no session, got %v", err)
	}
	if _, err := env.service.Start(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := env.service.Next(ctx, "alice"); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected selection required, got %v", err)
	}
	if err := env.service.Select(ctx, "alice", "z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected unknown option, got %v", err)
	}

	// Selection is overwritable before confirmation.
	if err := env.service.Select(ctx, "alice", "c"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := env.service.Select(ctx, "alice", "a"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	session, _ := env.service.Current("alice")
	if got := session.Snapshot().Selected; got != "a" {
		t.Fatalf("expected latest selection a, got %q", got)
	}
}

func TestStartUnknownUser(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	if _, err := env.service.Start(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected unknown user, got %v", err)
	}
}

func TestTakeResultChecksOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Minute)
	if _, err := env.service.Start(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	outcome, err := env.service.Quit(ctx, "alice")
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if outcome.Redirect != "/" {
		t.Fatalf("unexpected redirect %q", outcome.Redirect)
	}
	if _, err := env.service.TakeResult(ctx, "alice", ""); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected missing token to yield no data, got %v", err)
	}
	if _, err := env.service.TakeResult(ctx, "bob", "bogus"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected unknown token to yield no data, got %v", err)
	}
}

func tokenFrom(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("parse redirect %q: %v", redirect, err)
	}
	token := u.Query().Get("r")
	if u.Path != "/results" || token == "" {
		t.Fatalf("expected results redirect with token, got %q", redirect)
	}
	return token
}
