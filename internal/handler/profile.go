package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"waveline/internal/backend"
	"waveline/internal/httputil"
	"waveline/internal/model"
	"waveline/internal/service"
	"waveline/internal/session"
	"waveline/internal/state"
	"waveline/internal/transport/http/middleware"
	"waveline/internal/view"
)

// ProfileHandler serves the acting user's own profile: view, edit, and
// avatar upload.
type ProfileHandler struct {
	feedService  *service.FeedService
	mediaService *service.MediaService // nil when R2 is not configured
	sessions     session.Store
	state        *state.Store
}

func NewProfileHandler(feedService *service.FeedService, mediaService *service.MediaService, sessions session.Store, st *state.Store) *ProfileHandler {
	return &ProfileHandler{feedService: feedService, mediaService: mediaService, sessions: sessions, state: st}
}

// Get returns the acting user's profile
// GET /profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	user := sess.User
	if cached, ok := h.state.User(user.ID); ok {
		user = cached
	}
	posts := h.state.PostsByUser(user.ID)
	httputil.WriteJSON(w, http.StatusOK, view.BuildProfile(user, posts, sess.User.ID, false, time.Now()))
}

// Update patches the acting user's profile and refreshes the session snapshot
// PUT /profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	updated, err := h.feedService.UpdateProfile(ctx, &sess.User, req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, verr.Field, verr.Message)
			return
		}
		writeBackendError(w, err)
		return
	}

	// Keep the session's profile snapshot in step with the row
	sess.User = *updated
	if err := h.sessions.Put(r.Context(), sess); err != nil {
		httputil.WriteInternalError(w, "Failed to update session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}

// UploadAvatar stores a new avatar image and points the profile at it
// POST /profile/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	if h.mediaService == nil {
		httputil.WriteError(w, http.StatusNotImplemented, "MEDIA_DISABLED", "Avatar uploads are not configured")
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "Avatar file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			httputil.WriteInternalError(w, "Failed to upload avatar")
		}
		return
	}

	ctx := backend.WithAccessToken(r.Context(), sess.AccessToken)
	updated, err := h.feedService.UpdateProfile(ctx, &sess.User, model.UpdateProfileRequest{
		FullName:  sess.User.FullName,
		Username:  sess.User.Username,
		Bio:       sess.User.Bio,
		AvatarURL: upload.URL,
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}

	sess.User = *updated
	if err := h.sessions.Put(r.Context(), sess); err != nil {
		httputil.WriteInternalError(w, "Failed to update session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, upload)
}
