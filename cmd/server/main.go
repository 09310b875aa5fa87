// Chatgate - chat-platform authentication gateway
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glxlabs/chatgate/internal/agent"
	"github.com/glxlabs/chatgate/internal/config"
	"github.com/glxlabs/chatgate/internal/dispatch"
	"github.com/glxlabs/chatgate/internal/middleware"
	"github.com/glxlabs/chatgate/internal/notify"
	"github.com/glxlabs/chatgate/internal/session"
	"github.com/glxlabs/chatgate/internal/store"
	"github.com/glxlabs/chatgate/internal/webhook"
	"github.com/glxlabs/chatgate/internal/whatsapp"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "session_backend", cfg.SessionBackend)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Surface cross-field identity collisions before taking traffic.
	conflicts, err := repo.CheckDirectoryInvariant(context.Background())
	if err != nil {
		slog.Error("Directory invariant check failed", "error", err)
		os.Exit(1)
	}
	for _, c := range conflicts {
		slog.Error("Directory conflict: client code collides with another user's phone",
			"code_owner", c.CodeOwnerID, "phone_owner", c.PhoneOwnerID, "value", c.Value)
	}

	// Session store backend.
	var sessions session.Store
	switch cfg.SessionBackend {
	case "sqlite":
		sessions = session.NewSQLiteStore(repo)
	default:
		sessions = session.NewMemoryStore()
	}

	// Notifier: SMTP when configured, log-only otherwise.
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(
			cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.SMTP.From, cfg.AppName,
		)
		slog.Info("SMTP notifier configured", "host", cfg.SMTP.Host)
	} else {
		slog.Info("SMTP not configured, confirmations will be logged only")
	}

	// Handler registry: authentication plus the default task handler.
	registry := agent.NewRegistry()
	registry.Register(agent.NewAuthHandler(repo, notifier, cfg.LookupTimeout, cfg.NotifyTimeout))
	registry.RegisterDefault(agent.Greeter{})

	dispatcher, err := dispatch.New(sessions, registry)
	if err != nil {
		slog.Error("Failed to initialize dispatcher", "error", err)
		os.Exit(1)
	}

	outbound := whatsapp.NewClient(cfg.WhatsApp.APIToken, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.GraphVersion)

	webhookHandler := webhook.NewHandler(dispatcher, outbound, cfg.WhatsApp.VerifyToken,
		cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	adminHandler := webhook.NewAdminHandler(dispatcher, repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	webhookHandler.RegisterRoutes(r)
	adminHandler.RegisterRoutes(r)

	// Dev console endpoint (simulator client).
	if cfg.IsDevelopment() {
		consoleHandler := webhook.NewConsoleHandler(dispatcher)
		r.Get("/ws/console", consoleHandler.ServeHTTP)
		slog.Info("Dev console enabled", "path", "/ws/console")
	}

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional session expiry worker (disabled when SESSION_TTL is 0).
	session.StartExpiryWorker(ctx, sessions, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
