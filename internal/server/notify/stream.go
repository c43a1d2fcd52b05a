package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamAdder is the part of *redis.Client used to enqueue messages.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamNotifier appends messages to a Redis stream consumed by the mailer
// worker, so the API never waits on SMTP.
type StreamNotifier struct {
	client StreamAdder
	stream string
}

func NewStreamNotifier(client StreamAdder, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) Send(ctx context.Context, msg Message) error {
	_, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: msg.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue reset email: %w", err)
	}
	return nil
}
