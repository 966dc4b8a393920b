package handler

import (
	"encoding/json"
	"errors"
	"net/http"
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

// PostHandler serves post mutations, likes, and the post detail.
type PostHandler struct {
	feedService *service.FeedService
	state       *state.Store
}

func NewPostHandler(feedService *service.FeedService, st *state.Store) *PostHandler {
	return &PostHandler{feedService: feedService, state: st}
}

type createPostRequest struct {
	Content string `json:"content"`
}

// Create inserts a new post
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	post, err := h.feedService.CreatePost(ctx, &sess.User, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, "content", "Please write something before posting!")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, "content", "Post is too long")
		default:
			writeBackendError(w, err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, view.BuildPost(*post, sess.User.ID, time.Now()))
}

// Delete removes the actor's own post
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	postID := chi.URLParam(r, "id")

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := h.feedService.DeletePost(ctx, &sess.User, postID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			writeBackendError(w, err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Like toggles the actor's like on a post
// POST /posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	postID := chi.URLParam(r, "id")

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	liked, count, err := h.feedService.ToggleLike(ctx, &sess.User, postID)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"liked":      liked,
		"like_count": count,
	})
}

// Detail returns a post with its comments, oldest first
// GET /posts/{id}
func (h *PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	postID := chi.URLParam(r, "id")

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	if err := ensureSnapshot(ctx, h.feedService, h.state); err != nil {
		writeBackendError(w, err)
		return
	}

	post, ok := h.state.Post(postID)
	if !ok {
		httputil.WriteNotFound(w, "Post not found")
		return
	}

	comments, err := h.feedService.Comments(ctx, postID)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view.BuildPostDetail(post, comments, sess.User.ID, time.Now()))
}

type addCommentRequest struct {
	Content string `json:"content"`
}

// Comment adds a comment and returns the refreshed comment list
// POST /posts/{id}/comments
func (h *PostHandler) Comment(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	postID := chi.URLParam(r, "id")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	comments, err := h.feedService.AddComment(ctx, &sess.User, postID, req.Content)
	if err != nil {
		if errors.Is(err, model.ErrCommentRequired) {
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, "content", "Please write a comment!")
			return
		}
		writeBackendError(w, err)
		return
	}

	now := time.Now()
	out := make([]view.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, view.BuildComment(c, now))
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"comments": out})
}
