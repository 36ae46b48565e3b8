package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banking-transfer-engine/internal/api"
	"github.com/banking-transfer-engine/internal/api/service"
	"github.com/banking-transfer-engine/internal/config"
	"github.com/banking-transfer-engine/internal/data/postgres"
	"github.com/banking-transfer-engine/internal/engine/dispatcher"
	"github.com/banking-transfer-engine/internal/engine/executor"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/banking-transfer-engine/internal/logger"
	"github.com/banking-transfer-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(log, postgresDB)
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	jobResultRepo := postgres.NewJobResultRepository(log, postgresDB)

	// Initialize the job queue producer side
	queue := jobqueue.NewPostgresQueue(log, &cfg.Queue, jobRepo, jobResultRepo)

	// Initialize the engine. The API books deposits directly, so it needs the
	// executor with the dispatcher attached to fan out on-deposit transfers.
	exec := executor.NewExecutor(log, postgresDB, accountRepo, ledgerRepo)
	disp := dispatcher.NewDispatcher(log, transferRepo, queue)
	exec.SetDepositListener(disp)
	sched := scheduler.NewScheduler(log, transferRepo, queue)

	// Initialize services
	userService := service.NewUserService(log, userRepo)
	accountService := service.NewAccountService(log, accountRepo, userRepo, ledgerRepo, exec)
	transferService := service.NewTransferService(log, sched, queue, ledgerRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, userService, accountService, transferService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
