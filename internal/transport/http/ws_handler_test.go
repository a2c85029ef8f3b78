package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"oneshot-quiz/internal/app"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	dialer := websocket.Dialer{Jar: h.jar, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(u, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketCountdownFinishes(t *testing.T) {
	h := newHarness(t, 2*time.Second, AuthLimit)
	h.login(t, "alice")
	if resp, _ := h.get(t, "/quiz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz status = %d", resp.StatusCode)
	}
	conn := dialWS(t, h)

	typ, payload := readNext(t, conn)
	if typ != "state" || payload["remaining"].(float64) != 2 {
		t.Fatalf("expected initial state with 2s left, got %s %v", typ, payload)
	}

	h.tick(t)
	typ, payload = readNext(t, conn)
	if typ != "tick" || payload["remaining"].(float64) != 1 {
		t.Fatalf("expected tick with 1s left, got %s %v", typ, payload)
	}

	h.tick(t)
	for {
		typ, payload = readNext(t, conn)
		if typ == "finished" {
			break
		}
	}
	redirect, _ := payload["redirect"].(string)
	if !strings.HasPrefix(redirect, "/results?r=") {
		t.Fatalf("redirect = %q", redirect)
	}
	if !h.completed(t, "alice") {
		t.Fatalf("timeout should mark the user completed")
	}
}

func TestWebSocketSelectAndNext(t *testing.T) {
	h := newHarness(t, time.Minute, AuthLimit)
	h.login(t, "alice")
	h.get(t, "/quiz")
	conn := dialWS(t, h)
	readNext(t, conn)

	send(t, conn, map[string]any{"type": "select", "payload": map[string]any{"option": "b"}})
	typ, payload := readNext(t, conn)
	if typ != "state" || payload["selected"] != "b" {
		t.Fatalf("expected state with selection, got %s %v", typ, payload)
	}

	send(t, conn, map[string]any{"type": "next"})
	typ, payload = readNext(t, conn)
	if typ != "state" || payload["index"].(float64) != 1 {
		t.Fatalf("expected second question, got %s %v", typ, payload)
	}

	send(t, conn, map[string]any{"type": "select", "payload": map[string]any{"option": "nope"}})
	typ, payload = readNext(t, conn)
	if typ != "error" || payload["message"] == "" {
		t.Fatalf("expected error, got %s %v", typ, payload)
	}

	send(t, conn, map[string]any{"type": "quit"})
	for {
		typ, payload = readNext(t, conn)
		if typ == "finished" {
			break
		}
	}
	if payload["redirect"] != "/" {
		t.Fatalf("quit should route home, got %v", payload["redirect"])
	}
}

func TestWebSocketWithoutSession(t *testing.T) {
	h := newHarness(t, time.Minute, AuthLimit)
	h.login(t, "alice")
	conn := dialWS(t, h)

	if typ, _ := readNext(t, conn); typ != "error" {
		t.Fatalf("expected error, got %s", typ)
	}
	typ, payload := readNext(t, conn)
	if typ != "finished" || payload["redirect"] != "/quiz" {
		t.Fatalf("expected redirect to /quiz, got %s %v", typ, payload)
	}
}

func TestViewMessage(t *testing.T) {
	prev := app.SessionView{State: app.StateActive, Index: 1, Remaining: 10}
	next := prev
	next.Remaining = 9
	if msg := viewMessage(&prev, next); msg.Type != "tick" {
		t.Fatalf("countdown-only change should be a tick, got %s", msg.Type)
	}
	next.Selected = "a"
	if msg := viewMessage(&prev, next); msg.Type != "state" {
		t.Fatalf("selection change should be a state, got %s", msg.Type)
	}
	if msg := viewMessage(nil, prev); msg.Type != "state" {
		t.Fatalf("first view should be a state, got %s", msg.Type)
	}
	done := app.SessionView{State: app.StateTerminated}
	msg := viewMessage(&prev, done)
	if msg.Type != "finished" || msg.Payload.(finishedPayload).Redirect != "/" {
		t.Fatalf("terminated view should finish home, got %+v", msg)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}
