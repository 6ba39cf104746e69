package app

import (
	"testing"

	"exam-quiz-service/internal/domain"
	"github.com/google/uuid"
)

func TestResultsFeedRoutesByQuiz(t *testing.T) {
	feed := NewResultsFeed()
	quizOne, cancelOne := feed.Subscribe(1)
	quizTwo, cancelTwo := feed.Subscribe(2)
	defer cancelTwo()

	feed.Publish(domain.SubmissionEvent{QuizID: 1, SubmissionID: uuid.New()})

	select {
	case <-quizOne:
	default:
		t.Fatalf("expected event for quiz 1")
	}
	select {
	case ev := <-quizTwo:
		t.Fatalf("quiz 2 received foreign event %+v", ev)
	default:
	}

	cancelOne()
	cancelOne()
	if _, ok := <-quizOne; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	if feed.SubscriberCount(1) != 0 || feed.SubscriberCount(2) != 1 {
		t.Fatalf("unexpected subscriber counts")
	}
}

func TestResultsFeedDropsOldestWhenFull(t *testing.T) {
	feed := NewResultsFeed()
	ch, cancel := feed.Subscribe(1)
	defer cancel()

	var last uuid.UUID
	for i := 0; i < 20; i++ {
		last = uuid.New()
		feed.Publish(domain.SubmissionEvent{QuizID: 1, SubmissionID: last})
	}

	var got []domain.SubmissionEvent
	for len(ch) > 0 {
		got = append(got, <-ch)
	}
	if len(got) != 8 || got[len(got)-1].SubmissionID != last {
		t.Fatalf("expected the 8 newest events ending with the last one, got %d", len(got))
	}
}
