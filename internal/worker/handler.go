package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"waveline/internal/notification"
	"waveline/internal/queue"
)

// NotificationSink defines the interface for storing notifications.
// This abstracts the notification store so the handler can be tested
// without Redis.
type NotificationSink interface {
	Push(ctx context.Context, userID string, n notification.Notification) error
}

// Handler processes activity events from the queue and turns them into
// per-user notifications.
type Handler struct {
	notifications NotificationSink
}

// NewHandler creates a new event handler.
func NewHandler(notifications NotificationSink) *Handler {
	return &Handler{notifications: notifications}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ActivityEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostLiked, queue.EventPostCommented, queue.EventUserFollowed:
		err = h.handleNotify(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleNotify stores a notification for the event's recipient.
func (h *Handler) handleNotify(ctx context.Context, event queue.ActivityEvent) error {
	// Don't notify users about their own actions
	if event.ActorID == event.RecipientID || event.RecipientID == "" {
		return nil
	}

	n := notification.Notification{
		Type:      event.Type,
		ActorID:   event.ActorID,
		PostID:    event.PostID,
		CreatedAt: time.Unix(event.Timestamp, 0).UTC(),
	}

	if err := h.notifications.Push(ctx, event.RecipientID, n); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}
