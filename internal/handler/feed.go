package handler

import (
	"context"
	"net/http"
	"time"

	"waveline/internal/backend"
	"waveline/internal/httputil"
	"waveline/internal/service"
	"waveline/internal/state"
	"waveline/internal/transport/http/middleware"
	"waveline/internal/view"
)

// FeedHandler serves the home timeline.
type FeedHandler struct {
	feedService *service.FeedService
	state       *state.Store
}

func NewFeedHandler(feedService *service.FeedService, st *state.Store) *FeedHandler {
	return &FeedHandler{feedService: feedService, state: st}
}

// Get returns the timeline, loading the snapshot on first access
// GET /feed
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	feed := view.BuildFeed(h.state.Posts(), sess.User.ID, time.Now())
	httputil.WriteJSON(w, http.StatusOK, feed)
}

// ensureSnapshot lazily runs the initial load. Every snapshot-reading
// endpoint goes through it, so the first request after startup can land
// anywhere without seeing an empty snapshot.
func ensureSnapshot(ctx context.Context, feedService *service.FeedService, st *state.Store) error {
	if st.Loaded() {
		return nil
	}
	return feedService.LoadAll(ctx)
}

// Refresh reloads the full snapshot from the backend
// POST /feed/refresh
func (h *FeedHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := h.feedService.LoadAll(ctx); err != nil {
		writeBackendError(w, err)
		return
	}

	feed := view.BuildFeed(h.state.Posts(), sess.User.ID, time.Now())
	httputil.WriteJSON(w, http.StatusOK, feed)
}
