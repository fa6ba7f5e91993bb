// Sales insights assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/saleslens/sales_insights/internal/api"
	"github.com/saleslens/sales_insights/internal/assist"
	"github.com/saleslens/sales_insights/internal/config"
	"github.com/saleslens/sales_insights/internal/history"
	"github.com/saleslens/sales_insights/internal/llm"
	"github.com/saleslens/sales_insights/internal/mirror"
	"github.com/saleslens/sales_insights/internal/safesql"
	"github.com/saleslens/sales_insights/internal/session"
	"github.com/saleslens/sales_insights/internal/transcripts"
)

func main() {
	resetHistory := flag.Bool("reset-history", false, "clear stored prompt history and model audit rows on startup")
	flag.Parse()

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

	db, err := mirror.Open(cfg.MirrorDSN)
	if err != nil {
		slog.Error("Failed to connect to mirror database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Mirror database connected")

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		slog.Error("Failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *resetHistory {
		if err := store.Reset(); err != nil {
			slog.Error("Failed to reset history store", "error", err)
			os.Exit(1)
		}
		slog.Info("History store cleared")
	}

	client := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, nil)

	generator := assist.NewGenerator(history.NewAuditedModel(client, store, history.StageGeneration), llm.GenerationOptions{
		Model:       cfg.GenerationModel,
		MaxTokens:   cfg.GenerationMaxTokens,
		Temperature: cfg.GenerationTemperature,
	})
	synthesizer := assist.NewSynthesizer(history.NewAuditedModel(client, store, history.StageSynthesis), llm.GenerationOptions{
		Model:       cfg.SynthesisModel,
		MaxTokens:   cfg.SynthesisMaxTokens,
		Temperature: cfg.SynthesisTemperature,
	})
	gate := safesql.NewGate(db, cfg.StatementTimeout)
	searcher := transcripts.NewSearcher(db, client, logger)

	processor := assist.NewProcessor(generator, synthesizer, gate, searcher, cfg.TranscriptSource, logger).
		WithTranscriptLimit(cfg.TranscriptLimit)
	sessions := session.NewManager(cfg.SessionTTL)
	handler := api.NewHandler(processor, sessions, store, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	allowedOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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

func sweepSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := sessions.Sweep(); dropped > 0 {
				slog.Info("Idle chat sessions dropped", "count", dropped)
			}
		}
	}
}
