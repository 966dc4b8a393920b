package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waveline/internal/backend"
	backendpg "waveline/internal/backend/postgres"
	backendrest "waveline/internal/backend/rest"
	"waveline/internal/config"
	"waveline/internal/database"
	"waveline/internal/handler"
	"waveline/internal/notification"
	"waveline/internal/queue"
	"waveline/internal/redis"
	"waveline/internal/service"
	"waveline/internal/session"
	"waveline/internal/state"
	"waveline/internal/store"
	"waveline/internal/worker"
)

// Run wires the whole application and serves HTTP until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, admin, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	st := store.New(client)
	snapshot := state.New()

	// Redis backs sessions, the activity stream, and notification lists.
	// Without it sessions fall back to process memory and the activity
	// pipeline stays off.
	var (
		sessions  session.Store
		publisher *queue.Publisher
		notifs    *notification.Store
		workers   *worker.Manager
	)
	sessionMaxAge := time.Duration(cfg.SessionMaxAge) * time.Second

	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		if err := rdb.Ping(context.Background()); err != nil {
			return err
		}
		defer rdb.Close()

		sessions = session.NewRedisStore(rdb.Client, sessionMaxAge)
		publisher = queue.NewPublisher(rdb.Client)
		notifs = notification.NewStore(rdb.Client)

		workers = worker.NewManager(
			queue.NewConsumer(rdb.Client),
			worker.NewHandler(notifs),
			worker.DefaultManagerConfig(),
		)
		if err := workers.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer workers.Stop()
	} else {
		log.Println("REDIS_URL not set, using in-memory sessions and no activity pipeline")
		sessions = session.NewMemoryStore(sessionMaxAge)
	}

	feedService := service.NewFeedService(st, snapshot, publisher)
	authService := service.NewAuthService(st, client.Auth(), admin, sessions)

	var mediaService *service.MediaService
	if cfg.R2AccountID != "" {
		mediaService, err = service.NewMediaService(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create media service: %w", err)
		}
	} else {
		log.Println("R2 not configured, avatar uploads disabled")
	}

	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(authService, cfg.SessionMaxAge, cfg.CookieSecure),
		FeedHandler:         handler.NewFeedHandler(feedService, snapshot),
		PostHandler:         handler.NewPostHandler(feedService, snapshot),
		UserHandler:         handler.NewUserHandler(feedService, snapshot),
		ProfileHandler:      handler.NewProfileHandler(feedService, mediaService, sessions, snapshot),
		NotificationHandler: handler.NewNotificationHandler(notifs),
		Sessions:            sessions,
		JWTSecret:           cfg.BackendJWTSecret,
	})

	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s (backend mode: %s)", cfg.ServerPort, cfg.BackendMode)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackend selects the executor and auth implementation for the
// configured mode.
func buildBackend(cfg *config.Config) (*backend.Client, backend.AdminAuth, error) {
	switch cfg.BackendMode {
	case "rest":
		if cfg.BackendURL == "" || cfg.BackendAnonKey == "" {
			return nil, nil, fmt.Errorf("rest mode requires BACKEND_URL and BACKEND_ANON_KEY")
		}
		exec := backendrest.NewExecutor(cfg.BackendURL, cfg.BackendAnonKey)
		auth := backendrest.NewAuth(cfg.BackendURL, cfg.BackendAnonKey, cfg.BackendServiceKey)

		var admin backend.AdminAuth
		if auth.HasAdmin() {
			admin = auth
		} else {
			log.Println("BACKEND_SERVICE_KEY not set, failed registrations cannot be compensated")
		}
		return backend.NewClient(exec, auth), admin, nil

	case "postgres":
		if cfg.BackendJWTSecret == "" {
			return nil, nil, fmt.Errorf("postgres mode requires BACKEND_JWT_SECRET")
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		exec := backendpg.NewExecutor(db)
		auth := backendpg.NewAuth(db, cfg.BackendJWTSecret, cfg.SessionMaxAge, cfg.AutoConfirm)
		return backend.NewClient(exec, auth), auth, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.BackendMode)
	}
}
