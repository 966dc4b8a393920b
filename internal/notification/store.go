package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxPerUser caps the notification list length per user. Older entries
// are trimmed away as new ones arrive.
const MaxPerUser = 50

// Notification is one entry in a user's notification list.
type Notification struct {
	Type      string    `json:"type"`
	ActorID   string    `json:"actor_id"`
	PostID    string    `json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists per-user notification lists in Redis.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID string) string {
	return "notifications:" + userID
}

// Push prepends a notification to the user's list and trims it to MaxPerUser.
func (s *Store) Push(ctx context.Context, userID string, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	k := key(userID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, k, data)
	pipe.LTrim(ctx, k, 0, MaxPerUser-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Notification] Push FAILED: user=%s type=%s err=%v", userID, n.Type, err)
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > MaxPerUser {
		limit = MaxPerUser
	}

	raw, err := s.client.LRange(ctx, key(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			log.Printf("[Notification] List decode error: user=%s err=%v", userID, err)
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
