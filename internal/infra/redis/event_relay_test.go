package redis

import (
	"context"
	"testing"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func TestEventRelayForwardsToLocalFeed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := app.NewResultsFeed()
	relay := NewEventRelay(newClient(mr), feed, nil)
	ps, err := relay.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer ps.Close()
	done := make(chan error, 1)
	go func() { done <- relay.Forward(ctx, ps) }()

	events, unsubscribe := feed.Subscribe(7)
	defer unsubscribe()

	sent := domain.SubmissionEvent{QuizID: 7, SubmissionID: uuid.New(), StudentID: 3, Outcome: domain.StudentStatusPassed, SubmittedAt: time.Now().UTC()}
	if err := relay.PublishSubmission(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.SubmissionID != sent.SubmissionID || got.Outcome != domain.StudentStatusPassed {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for relayed event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("forward did not stop after cancel")
	}
}
