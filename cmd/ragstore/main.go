package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingocache/internal/backend"
	"lingocache/internal/config"
	"lingocache/internal/logging"
	"lingocache/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"
)

func main() {
	logging.SetupLogger()

	slog.Info("Starting ragstore backend", slog.String("version", "1.0.0"))

	cfg := config.Load()
	if err := cfg.ValidateBackend(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open database connection", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		slog.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	store := backend.NewPgStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := store.InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}
	cancel()

	embedder := backend.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
	chat := backend.NewOpenAIChat(cfg.OpenAIAPIKey)
	srv := backend.NewServer(store, embedder, chat)

	mux := http.NewServeMux()
	mux.Handle("/", middleware.LoggingMiddleware(middleware.MetricsMiddleware(srv)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	port := os.Getenv("RAGSTORE_PORT")
	if port == "" {
		port = "8090"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Backend starting", slog.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Backend failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Backend shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Backend forced to shutdown", "error", err)
	}
	store.Close()

	slog.Info("Backend exited gracefully")
}
