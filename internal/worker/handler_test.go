package worker

import (
	"context"
	"testing"
	"time"

	"waveline/internal/notification"
	"waveline/internal/queue"
)

// =============================================================================
// MOCK SINK
// =============================================================================

type mockSink struct {
	pushFn func(ctx context.Context, userID string, n notification.Notification) error

	pushes []sinkPush
}

type sinkPush struct {
	UserID       string
	Notification notification.Notification
}

func (m *mockSink) Push(ctx context.Context, userID string, n notification.Notification) error {
	m.pushes = append(m.pushes, sinkPush{UserID: userID, Notification: n})
	if m.pushFn != nil {
		return m.pushFn(ctx, userID, n)
	}
	return nil
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestHandler_LikeEventStoresNotification(t *testing.T) {
	sink := &mockSink{}
	h := NewHandler(sink)

	event := queue.NewPostLikedEvent("p1", "u1", "u2")
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if len(sink.pushes) != 1 {
		t.Fatalf("pushes = %d, want 1", len(sink.pushes))
	}
	push := sink.pushes[0]
	if push.UserID != "u2" {
		t.Errorf("recipient = %q, want u2", push.UserID)
	}
	if push.Notification.Type != queue.EventPostLiked {
		t.Errorf("type = %q", push.Notification.Type)
	}
	if push.Notification.ActorID != "u1" || push.Notification.PostID != "p1" {
		t.Errorf("notification = %+v", push.Notification)
	}
}

func TestHandler_FollowEventStoresNotification(t *testing.T) {
	sink := &mockSink{}
	h := NewHandler(sink)

	if err := h.HandleEvent(context.Background(), queue.NewUserFollowedEvent("u1", "u2")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(sink.pushes) != 1 || sink.pushes[0].Notification.Type != queue.EventUserFollowed {
		t.Errorf("pushes = %+v", sink.pushes)
	}
}

func TestHandler_SkipsSelfNotification(t *testing.T) {
	sink := &mockSink{}
	h := NewHandler(sink)

	event := queue.ActivityEvent{
		Type:        queue.EventPostCommented,
		Timestamp:   time.Now().Unix(),
		ActorID:     "u1",
		RecipientID: "u1",
		PostID:      "p1",
	}
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(sink.pushes) != 0 {
		t.Errorf("pushes = %d, want 0 for self action", len(sink.pushes))
	}
}

func TestHandler_UnknownEventType(t *testing.T) {
	h := NewHandler(&mockSink{})

	err := h.HandleEvent(context.Background(), queue.ActivityEvent{Type: "bogus", RecipientID: "u2"})
	if err == nil {
		t.Error("want error for unknown event type")
	}
}
