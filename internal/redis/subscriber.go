package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Subscriber reads envelopes back from Redis pub/sub for the live feed.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Subscribe(ctx context.Context, channels []string, handle func(channel string, payload []byte)) error {
	pubsub := s.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handle(msg.Channel, []byte(msg.Payload))
		}
	}
}
