package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"waveline/internal/backend"
	"waveline/internal/httputil"
	"waveline/internal/model"
	"waveline/internal/service"
	"waveline/internal/transport/http/middleware"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	authService   *service.AuthService
	sessionMaxAge int
	cookieSecure  bool
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(authService *service.AuthService, sessionMaxAge int, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, sessionMaxAge: sessionMaxAge, cookieSecure: cookieSecure}
}

// Register handles user registration
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, verr.Field, verr.Message)
		case errors.Is(err, model.ErrSignupRateLimited):
			httputil.WriteError(w, http.StatusTooManyRequests, httputil.ErrCodeRateLimited,
				"Too many registration attempts. Please wait a few minutes and try again.")
		case errors.Is(err, model.ErrEmailRegistered):
			httputil.WriteConflict(w, "Email already registered. Please use a different email or login.")
		default:
			writeBackendError(w, err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess, err := h.authService.Login(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.WriteFieldError(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, verr.Field, verr.Message)
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteFieldError(w, http.StatusNotFound, httputil.ErrCodeNotFound, "username", "User not found")
		case errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteFieldError(w, http.StatusUnauthorized, httputil.ErrCodeUnauthorized, "password", "Invalid username or password")
		case errors.Is(err, model.ErrEmailNotConfirmed):
			httputil.WriteUnauthorized(w, "Please verify your email first. Check your email for a verification link.")
		default:
			writeBackendError(w, err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   h.sessionMaxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, sess.User)
}

// Logout revokes the session
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.authService.Logout(r.Context(), sess); err != nil {
		httputil.WriteInternalError(w, "Failed to log out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the currently authenticated user
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.User)
}

// writeBackendError surfaces a backend error message verbatim; anything
// else becomes a plain internal error.
func writeBackendError(w http.ResponseWriter, err error) {
	var berr *backend.Error
	if errors.As(err, &berr) {
		status := http.StatusBadGateway
		if berr.Status >= 400 && berr.Status < 500 {
			status = berr.Status
		}
		httputil.WriteError(w, status, "BACKEND_ERROR", berr.Message)
		return
	}
	httputil.WriteInternalError(w, err.Error())
}
