// LeetMentor - interview mentor API for the browser extension.
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/leetmentor/internal/agent"
	"github.com/ashureev/leetmentor/internal/api"
	"github.com/ashureev/leetmentor/internal/browser"
	"github.com/ashureev/leetmentor/internal/config"
	"github.com/ashureev/leetmentor/internal/extractor"
	"github.com/ashureev/leetmentor/internal/identity"
	"github.com/ashureev/leetmentor/internal/mentor"
	"github.com/ashureev/leetmentor/internal/middleware"
	"github.com/ashureev/leetmentor/internal/news"
	"github.com/ashureev/leetmentor/internal/store"
	"github.com/ashureev/leetmentor/internal/videos"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	conversationLogger, err := mentor.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Warn("failed to close conversation logger", "error", closeErr)
		}
	}()

	opts := []mentor.Option{mentor.WithConversationLogger(conversationLogger)}
	deps := mentor.Deps{
		News:   news.NewService(cfg.News, repo, logger),
		Videos: videos.NewClient(cfg.YouTubeAPIKey),
	}

	// The model provider is optional; without it the mentor still tracks sessions and serves hints.
	processor, err := agent.NewProcessor(ctx, agent.Config{
		Provider:         cfg.Agent.Provider,
		ModelName:        cfg.Agent.Model,
		GoogleAPIKey:     cfg.Agent.GoogleAPIKey,
		OpenAIAPIKey:     cfg.Agent.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.Agent.OpenRouterAPIKey,
		AnthropicAPIKey:  cfg.Agent.AnthropicAPIKey,
		MaxTokens:        cfg.Agent.MaxTokens,
	}, logger)
	aiEnabled := err == nil
	if aiEnabled {
		opts = append(opts, mentor.WithProcessor(processor))
		deps.AI = agent.NewService(processor)
	} else {
		slog.Warn("AI features disabled", "provider", cfg.Agent.Provider, "error", err)
	}

	var renderer *browser.Renderer
	if cfg.Browser.Enabled {
		renderer = browser.NewRenderer(cfg.Browser, logger)
		opts = append(opts, mentor.WithRenderer(renderer))
		defer func() {
			if closeErr := renderer.Close(); closeErr != nil {
				slog.Warn("failed to close browser", "error", closeErr)
			}
		}()
	}

	svc := mentor.NewService(mentor.NewRegistry(), extractor.New(logger), repo, logger, opts...)
	mentorHandler := mentor.NewHandler(svc, deps, cfg)
	defer mentorHandler.Close()

	baseHandler := api.NewHandler(repo, api.Features{
		Provider: cfg.Agent.Provider,
		AI:       aiEnabled,
		Renderer: renderer != nil,
		Videos:   deps.Videos.Enabled(),
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	baseHandler.RegisterRoutes(r)
	mentorHandler.RegisterRoutes(r)

	// Note: SSE connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	mentor.StartReaper(ctx, svc, repo, cfg.Session)

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
