package http

import (
	"net/http"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/config"
	"github.com/gorilla/websocket"
)

// ResultsWSHandler streams live quiz results to instructors.
type ResultsWSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewResultsWSHandler(service *app.QuizService) *ResultsWSHandler {
	return &ResultsWSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS sends the current results, then a "submission" message followed by
// refreshed "results" for every new submission to the quiz.
func (h *ResultsWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	initial, err := h.service.QuizResults(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	updates, cancel, err := h.service.Subscribe(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "submission", Payload: event}}
				results, err := h.service.QuizResults(r.Context(), quizID)
				if err != nil {
					msgs = append(msgs, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				} else {
					msgs = append(msgs, outboundMessage[any]{Type: "results", Payload: results})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "results", Payload: initial}

	// The feed is read-only; inbound frames only tell us the client is alive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
