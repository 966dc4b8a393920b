package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"waveline/internal/backend"
	"waveline/internal/httputil"
	"waveline/internal/model"
	"waveline/internal/service"
	"waveline/internal/state"
	"waveline/internal/transport/http/middleware"
	"waveline/internal/view"
)

// UserHandler serves other users' profiles, search, suggestions, and the
// follow toggle.
type UserHandler struct {
	feedService *service.FeedService
	state       *state.Store
}

func NewUserHandler(feedService *service.FeedService, st *state.Store) *UserHandler {
	return &UserHandler{feedService: feedService, state: st}
}

// Profile returns a user's profile with their posts from the snapshot
// GET /users/{id}
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	userID := chi.URLParam(r, "id")

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	user, ok := h.state.User(userID)
	if !ok {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	isFollowing := false
	if userID != sess.User.ID {
		// A failed check renders as "not following", same as an error on
		// the follow state would in the UI
		if following, err := h.feedService.IsFollowing(ctx, sess.User.ID, userID); err == nil {
			isFollowing = following
		}
	}

	posts := h.state.PostsByUser(userID)
	httputil.WriteJSON(w, http.StatusOK, view.BuildProfile(user, posts, sess.User.ID, isFollowing, time.Now()))
}

// Follow toggles the follow relationship and returns the refreshed profile
// POST /users/{id}/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	userID := chi.URLParam(r, "id")

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	following, err := h.feedService.ToggleFollow(ctx, &sess.User, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "You cannot follow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			writeBackendError(w, err)
		}
		return
	}

	user, ok := h.state.User(userID)
	if !ok {
		httputil.WriteNotFound(w, "User not found")
		return
	}
	posts := h.state.PostsByUser(userID)
	httputil.WriteJSON(w, http.StatusOK, view.BuildProfile(user, posts, sess.User.ID, following, time.Now()))
}

// Search matches users in the loaded snapshot
// GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, "q", "Please enter a search term")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	results := h.feedService.SearchUsers(query)
	httputil.WriteJSON(w, http.StatusOK, view.BuildSearch(query, results))
}

// Suggested returns users other than the actor, in snapshot order
// GET /users/suggested?limit=
func (h *UserHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	users := h.feedService.SuggestedUsers(sess.User.ID, limit)
	cards := make([]view.UserCard, 0, len(users))
	for _, u := range users {
		cards = append(cards, view.UserCardFrom(u))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": cards})
}
