package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the activity stream
const (
	EventPostLiked     = "post_liked"
	EventPostCommented = "post_commented"
	EventUserFollowed  = "user_followed"
)

// Stream and consumer group names
const (
	StreamActivity        = "stream:activity"
	ConsumerGroupActivity = "activity_workers"
)

// ActivityEvent is one social action published after a successful mutation.
// RecipientID is the user whose notification list the event lands in.
type ActivityEvent struct {
	Type        string `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	ActorID     string `json:"actor_id"`
	RecipientID string `json:"recipient_id"`
	PostID      string `json:"post_id,omitempty"`
}

// NewPostLikedEvent records actor liking recipient's post.
func NewPostLikedEvent(postID, actorID, recipientID string) ActivityEvent {
	return ActivityEvent{
		Type:        EventPostLiked,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: recipientID,
		PostID:      postID,
	}
}

// NewPostCommentedEvent records actor commenting on recipient's post.
func NewPostCommentedEvent(postID, actorID, recipientID string) ActivityEvent {
	return ActivityEvent{
		Type:        EventPostCommented,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: recipientID,
		PostID:      postID,
	}
}

// NewUserFollowedEvent records actor following recipient.
func NewUserFollowedEvent(actorID, recipientID string) ActivityEvent {
	return ActivityEvent{
		Type:        EventUserFollowed,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// ToMap serializes the event for XADD. The stream stores field-value pairs,
// so the full event rides in a "data" field.
func (e ActivityEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseActivityEvent decodes an event from stream message values.
func ParseActivityEvent(values map[string]interface{}) (ActivityEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ActivityEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}
	var event ActivityEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ActivityEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
