package app

import (
	"context"
	"sync"

	"exam-quiz-service/internal/domain"
)

// ResultsFeed fans submission events out to per-quiz subscribers in process.
type ResultsFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.SubmissionEvent]struct{}
}

func NewResultsFeed() *ResultsFeed {
	return &ResultsFeed{
		subscribers: make(map[int64]map[chan domain.SubmissionEvent]struct{}),
	}
}

// Subscribe returns a channel of events for quizID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ResultsFeed) Subscribe(quizID int64) (<-chan domain.SubmissionEvent, func()) {
	ch := make(chan domain.SubmissionEvent, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.SubmissionEvent]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish never blocks: a subscriber with a full buffer loses its oldest event.
func (f *ResultsFeed) Publish(event domain.SubmissionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[event.QuizID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// PublishSubmission lets the feed act as the service's SubmissionPublisher.
func (f *ResultsFeed) PublishSubmission(_ context.Context, event domain.SubmissionEvent) error {
	f.Publish(event)
	return nil
}

// SubscriberCount reports how many subscribers are attached to quizID.
func (f *ResultsFeed) SubscriberCount(quizID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
