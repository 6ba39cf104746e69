package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestResultsFeedOverWebSocket(t *testing.T) {
	service := newTestService()
	duration := 30
	quiz, err := service.CreateQuiz(context.Background(), app.QuizInput{
		Title: "Live", QuestionIDs: []int64{1, 2}, DurationMinutes: &duration,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	server := httptest.NewServer(NewRouter(service))
	defer server.Close()

	u := fmt.Sprintf("ws%s/quizzes/%d/results/ws", server.URL[len("http"):], quiz.ID)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect current results first.
	_, payload := readNext(conn, t, "results")
	if payload["totalParticipants"] != float64(0) {
		t.Fatalf("expected no participants yet, got %v", payload)
	}

	_, err = service.SubmitQuiz(context.Background(), quiz.ID, 7, []domain.Response{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, event := readNext(conn, t, "submission")
	if event["studentId"] != float64(7) {
		t.Fatalf("unexpected submission event %v", event)
	}
	_, payload = readNext(conn, t, "results")
	if payload["totalParticipants"] != float64(1) {
		t.Fatalf("expected refreshed results, got %v", payload)
	}
}

func TestResultsFeedUnknownQuiz(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/quizzes/42/results/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
