package handler

import (
	"net/http"
	"strconv"

	"waveline/internal/httputil"
	"waveline/internal/notification"
	"waveline/internal/transport/http/middleware"
)

// NotificationHandler serves the acting user's notification list.
type NotificationHandler struct {
	store *notification.Store // nil when the activity pipeline is not configured
}

func NewNotificationHandler(store *notification.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List returns the acting user's notifications, newest first
// GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if h.store == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": []notification.Notification{}})
		return
	}

	limit := int64(notification.MaxPerUser)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	notifications, err := h.store.List(r.Context(), sess.User.ID, limit)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to load notifications")
		return
	}
	if notifications == nil {
		notifications = []notification.Notification{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}
