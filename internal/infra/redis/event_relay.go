package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const submissionsChannel = "quiz:submissions"

// LocalFeed receives events relayed from Redis, normally app.ResultsFeed.
type LocalFeed interface {
	Publish(event domain.SubmissionEvent)
}

// EventRelay shares submission events between service instances over Redis
// pub/sub so that every instance's live results viewers see every submission.
type EventRelay struct {
	client *redis.Client
	feed   LocalFeed
	log    logrus.FieldLogger
}

func NewEventRelay(client *redis.Client, feed LocalFeed, log logrus.FieldLogger) *EventRelay {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventRelay{client: client, feed: feed, log: log}
}

// PublishSubmission sends the event to all instances, this one included.
func (r *EventRelay) PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, submissionsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe opens the pub/sub subscription and waits for Redis to confirm it.
func (r *EventRelay) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := r.client.Subscribe(ctx, submissionsChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", submissionsChannel, err)
	}
	return ps, nil
}

// Forward copies messages from ps into the local feed until ctx is done or
// the subscription closes.
func (r *EventRelay) Forward(ctx context.Context, ps *redis.PubSub) error {
	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event domain.SubmissionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.WithError(err).Warn("dropping malformed submission event")
				continue
			}
			r.feed.Publish(event)
		}
	}
}

// Run subscribes and forwards until ctx is cancelled.
func (r *EventRelay) Run(ctx context.Context) error {
	ps, err := r.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer ps.Close()
	return r.Forward(ctx, ps)
}
