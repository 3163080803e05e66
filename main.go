package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingocache/internal/config"
	"lingocache/internal/handlers"
	"lingocache/internal/logging"
	"lingocache/internal/middleware"
	"lingocache/internal/notify"
	"lingocache/internal/rag"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logging.SetupLogger()

	slog.Info("Starting lingocache orchestration service", slog.String("version", "1.0.0"))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	client := rag.NewClient(cfg.BackendURL, nil)

	// The backend may come up after us; a failed probe just means we start
	// degraded and /ready reflects it until the next probe succeeds.
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Initialize(initCtx); err != nil {
		slog.Warn("Backend not reachable at startup, running degraded",
			slog.String("backend", cfg.BackendURL),
			slog.String("error", err.Error()))
	}
	initCancel()

	notifier := notify.New(cfg.SlackBotToken, cfg.SlackOpsChannel)
	store := rag.NewDocumentStore(client, cfg.DefaultLanguage)
	searcher := rag.NewSearcher(client)
	queue := rag.NewPersistQueue(store, cfg.PersistBuffer, nil)
	generator := rag.NewGenerator(client, searcher, queue)
	analytics := rag.NewAnalyticsService(client)

	answerHandler := handlers.NewAnswerHandler(generator)
	generateHandler := handlers.NewGenerateHandler(generator)
	searchHandler := handlers.NewSearchHandler(searcher)
	storeHandler := handlers.NewStoreHandler(store)
	quizHandler := handlers.NewQuizHandler(generator, notifier)
	adminHandler := handlers.NewAdminHandler(analytics, store, notifier)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.APIRateLimitMiddleware())
	apiRouter.HandleFunc("/answer", answerHandler.HandleAnswer).Methods("POST")
	apiRouter.HandleFunc("/generate", generateHandler.HandleGenerate).Methods("POST")
	apiRouter.HandleFunc("/translate", generateHandler.HandleTranslate).Methods("POST")
	apiRouter.HandleFunc("/story", generateHandler.HandleStory).Methods("POST")
	apiRouter.HandleFunc("/vocabulary", generateHandler.HandleVocabulary).Methods("POST")
	apiRouter.HandleFunc("/quiz", quizHandler.HandleQuiz).Methods("POST")
	apiRouter.HandleFunc("/search", searchHandler.HandleSearch).Methods("POST")
	apiRouter.HandleFunc("/store", storeHandler.HandleStore).Methods("POST")

	adminRouter := router.PathPrefix("/api").Subrouter()
	adminRouter.Use(middleware.AdminRateLimitMiddleware())
	adminRouter.HandleFunc("/analytics", adminHandler.HandleAnalytics).Methods("GET")
	adminRouter.HandleFunc("/cleanup", adminHandler.HandleCleanup).Methods("POST")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := client.Initialize(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("backend unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Drain pending best-effort persists before exiting.
	queue.Close()

	slog.Info("Server exited gracefully")
}
