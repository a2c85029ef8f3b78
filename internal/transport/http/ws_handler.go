package http

import (
	"encoding/json"
	"net/http"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/logging"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type finishedPayload struct {
	Redirect string `json:"redirect"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

// serveWS streams the user's active session: a full state on every change, a
// tick when only the countdown moved, and finished with the redirect target.
// Dropping the connection leaves the session running.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	username, _ := auth.UserFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	session, ok := s.quizzes.Current(username)
	if !ok {
		_ = conn.WriteJSON(errorMessage("no active quiz"))
		_ = conn.WriteJSON(outboundMessage{Type: "finished", Payload: finishedPayload{Redirect: "/quiz"}})
		return
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write failed", "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var prev *app.SessionView
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				msg := viewMessage(prev, view)
				prev = &view
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
				if view.State == app.StateTerminated {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(errorMessage("invalid select payload"))
				continue
			}
			if err := s.quizzes.Select(r.Context(), username, payload.Option); err != nil {
				push(errorMessage(err.Error()))
			}
		case "next":
			if _, _, err := s.quizzes.Next(r.Context(), username); err != nil {
				push(errorMessage(err.Error()))
			}
		case "quit":
			if _, err := s.quizzes.Quit(r.Context(), username); err != nil {
				push(errorMessage(err.Error()))
			}
		default:
			push(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// viewMessage picks the smallest message that describes the change from prev.
func viewMessage(prev *app.SessionView, view app.SessionView) outboundMessage {
	if view.State == app.StateTerminated {
		return outboundMessage{Type: "finished", Payload: finishedPayload{Redirect: redirectOf(app.Outcome{Redirect: view.Redirect})}}
	}
	if prev != nil && prev.State == view.State && prev.Index == view.Index && prev.Selected == view.Selected {
		return outboundMessage{Type: "tick", Payload: tickPayload{Remaining: view.Remaining}}
	}
	return outboundMessage{Type: "state", Payload: view}
}
