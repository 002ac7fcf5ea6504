package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-intake/internal/api"
	"github.com/dvloznov/ledger-intake/internal/app"
	"github.com/dvloznov/ledger-intake/internal/config"
	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-intake/internal/logger"
	"github.com/dvloznov/ledger-intake/internal/session"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("LEDGER_CONFIG"), "Path to ledger-intake.yaml (or set LEDGER_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Initialize logger
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to create logger")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer a.Close()

	if a.Archiver == nil {
		log.Warn().Msg("No GCS bucket configured - backup archiving will be disabled")
	}

	ingestor, err := a.NewIngestor(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ingestion pipeline")
	}
	sessions := session.NewManager(ingestor, a.Store)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Config{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		Backoff:    cfg.Jobs.Backoff,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewExtractionHandler(sessions)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	deps := api.Deps{
		Ledger:    a.Store,
		Sessions:  sessions,
		Publisher: jobQueue,
		Jobs:      jobStore,
		AuthToken: cfg.Server.AuthToken,
		Logger:    log,
	}
	if a.Archiver != nil {
		deps.Archiver = a.Archiver
	}
	if cfg.Server.AuthToken == "" {
		log.Warn().Msg("No API token configured - authentication is disabled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("backend", cfg.Ledger.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
