package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"waveline/internal/handler"
	"waveline/internal/httputil"
	"waveline/internal/session"
	sessionmw "waveline/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	UserHandler         *handler.UserHandler
	ProfileHandler      *handler.ProfileHandler
	NotificationHandler *handler.NotificationHandler
	Sessions            session.Store
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Protected routes - require a live session
	r.Group(func(r chi.Router) {
		r.Use(sessionmw.SessionMiddleware(cfg.Sessions, cfg.JWTSecret))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)

		r.Get("/feed", cfg.FeedHandler.Get)
		r.Post("/feed/refresh", cfg.FeedHandler.Refresh)

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", cfg.PostHandler.Create)
			r.Get("/{id}", cfg.PostHandler.Detail)
			r.Delete("/{id}", cfg.PostHandler.Delete)
			r.Post("/{id}/like", cfg.PostHandler.Like)
			r.Post("/{id}/comments", cfg.PostHandler.Comment)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", cfg.UserHandler.Search)
			r.Get("/suggested", cfg.UserHandler.Suggested)
			r.Get("/{id}", cfg.UserHandler.Profile)
			r.Post("/{id}/follow", cfg.UserHandler.Follow)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", cfg.ProfileHandler.Get)
			r.Put("/", cfg.ProfileHandler.Update)
			r.Post("/avatar", cfg.ProfileHandler.UploadAvatar)
		})

		r.Get("/notifications", cfg.NotificationHandler.List)
	})

	return r
}
