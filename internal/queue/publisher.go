package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher appends activity events to the Redis stream. A nil *Publisher
// is a valid no-op so callers do not have to branch on whether the
// activity pipeline is configured.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish adds the event to the activity stream. Events with no recipient,
// or where actor and recipient are the same user, are dropped.
func (p *Publisher) Publish(ctx context.Context, event ActivityEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	if event.RecipientID == "" || event.RecipientID == event.ActorID {
		return nil
	}

	values, err := event.ToMap()
	if err != nil {
		return err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamActivity,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", StreamActivity, err)
	}

	log.Printf("[Queue] Published event type=%s recipient=%s id=%s", event.Type, event.RecipientID, id)
	return nil
}
