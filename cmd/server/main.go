package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callwatch/backend/internal/api"
	"github.com/callwatch/backend/internal/broadcast"
	"github.com/callwatch/backend/internal/config"
	"github.com/callwatch/backend/internal/engine"
	"github.com/callwatch/backend/internal/metrics"
	"github.com/callwatch/backend/internal/presence"
	"github.com/callwatch/backend/internal/queue"
	"github.com/callwatch/backend/internal/registry"
	"github.com/callwatch/backend/internal/reminder"
	"github.com/callwatch/backend/internal/rollover"
	"github.com/callwatch/backend/internal/storage"
	"github.com/callwatch/backend/internal/talktime"
	"github.com/callwatch/backend/internal/websocket"
	"github.com/callwatch/backend/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting callwatch backend server")

	loc, err := cfg.Tracker.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve reporting timezone")
	}

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage (DynamoDB or noop depending on DYNAMO_MODE)
	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// In-memory state
	reg := registry.New(store, log.Logger)
	pres := presence.NewStore(cfg.Tracker.PresenceTTL)
	talk := talktime.NewTracker(loc)

	// Restore the roster from storage
	if records, err := store.ListAgents(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted roster")
	} else if len(records) > 0 {
		reg.Seed(records)
		log.Info().Int("agents", len(records)).Msg("roster restored from storage")
	}

	// Delivery queue draining into storage
	recordQueue := queue.New(storage.NewSink(store), cfg.Tracker.QueueBackoff, cfg.Tracker.QueueBatchSize, log.Logger)
	go recordQueue.Run(ctx)

	// Observer hub and dashboard broadcaster
	hub := websocket.NewHub(log.Logger)
	broadcaster := broadcast.New(hub, reg, pres, talk, log.Logger)
	hub.SetSnapshotProvider(broadcaster)

	// Session engine driven by the agent hub
	eng := engine.New(reg, pres, talk, recordQueue, store, broadcaster, cfg.Tracker.IdleThreshold, log.Logger)
	agentHub := websocket.NewAgentHub(eng, log.Logger)

	// Reminder scheduler feeding connected agent devices
	scheduler := reminder.NewScheduler(reg, pres, agentHub, cfg.Tracker.ReminderTick, cfg.Tracker.ReminderMarkCapacity, log.Logger)
	hub.SetReminderInvoker(scheduler)

	go hub.Run()
	go agentHub.Run()
	go scheduler.Start(ctx)

	// Midnight talk time rollover and presence sweeping
	watcher := rollover.NewWatcher(talk, pres, broadcaster, log.Logger)
	go watcher.Start(ctx)

	// WebSocket handlers
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)
	agentWSHandler := websocket.NewAgentHandler(agentHub, log.Logger)

	// REST handlers
	agentsHandler := api.NewAgentsHandler(reg, pres, broadcaster, scheduler, log.Logger)
	historyHandler := api.NewHistoryHandler(store, log.Logger)
	dashboardHandler := api.NewDashboardHandler(broadcaster, recordQueue, log.Logger)
	adminHandler := api.NewAdminHandler(reg, pres, talk, eng, store, broadcaster, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	r.Get("/ws", wsHandler.ServeHTTP)
	r.Get("/ws/agent", agentWSHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", agentsHandler.ListAgents)
		r.Post("/agents", agentsHandler.UpsertAgent)
		r.Delete("/agents/{agentCode}", agentsHandler.RemoveAgent)
		r.Put("/agents/{agentCode}/reminder", agentsHandler.UpdateReminderConfig)
		r.Post("/agents/{agentCode}/reminder/send", agentsHandler.SendReminder)

		r.Get("/agents/{agentCode}/calls", historyHandler.GetAgentCalls)
		r.Get("/agents/{agentCode}/idle-sessions", historyHandler.GetIdleSessions)
		r.Get("/agents/{agentCode}/talktime", historyHandler.GetTalkTime)
		r.Get("/history/calls", historyHandler.GetCalls)

		r.Get("/dashboard", dashboardHandler.GetDashboard)
		r.Get("/queue/status", dashboardHandler.GetQueueStatus)

		r.Post("/admin/reset", adminHandler.Reset)
		r.Post("/admin/truncate", adminHandler.Truncate)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop background services
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"callwatch-backend"}`)
}
